package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultChannels    = 512
	DefaultLevel       = 255
	DefaultType        = "dimmer"
	DefaultFrameRate   = 40
	DefaultSourceName  = "mqtt2dmx"
	DefaultPriority    = 100
	DefaultTopicPrefix = "dmx"
)

// Config структура конфигурации.
type Config struct {
	Logger    LogConf        `toml:"logger"`   // Logger - конфигурация регистратора.
	MQTT      MQTTConf       `toml:"mqtt"`     // MQTT - конфигурация MQTT клиента.
	Universes []UniverseConf `toml:"universe"` // Universes - DMX шлюзы.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level string `toml:"log-level"` // Level - уровень логирования.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	ClientID    string `toml:"clientID"`     // ClientID - имя клиента.
	Host        string `toml:"server"`       // Host - адрес MQTT сервера.
	Port        string `toml:"port"`         // Port - порт MQTT сервера.
	User        string `toml:"user"`         // User - логин для подключения к MQTT серверу.
	Password    string `toml:"password"`     // Password - пароль для подключения к MQTT серверу.
	Qos         byte   `toml:"qos"`          // Qos - качество обслуживания.
	TopicPrefix string `toml:"topic-prefix"` // TopicPrefix - корень дерева топиков.
}

// UniverseConf describes one gateway session.
type UniverseConf struct {
	Name                string        `toml:"name"`
	Host                string        `toml:"host"`
	Protocol            string        `toml:"protocol"` // artnet, kinet, sacn.
	Port                int           `toml:"port"`     // 0 - порт протокола по умолчанию.
	Universe            int           `toml:"universe"`
	Channels            int           `toml:"channels"`
	DefaultLevel        *int          `toml:"default-level"`
	DefaultType         string        `toml:"default-type"`
	FrameRate           int           `toml:"frame-rate"`
	RefreshInterval     string        `toml:"refresh-interval"`
	BindCIDR            string        `toml:"bind-cidr"`
	SendLevelsOnStartup *bool         `toml:"send-levels-on-startup"`
	SourceName          string        `toml:"source-name"`
	Priority            *int          `toml:"priority"`
	CID                 string        `toml:"cid"`
	Fixtures            []FixtureConf `toml:"fixture"`
}

// FixtureConf describes one light occupying consecutive channels.
type FixtureConf struct {
	Name         string  `toml:"name"`
	Channel      int     `toml:"channel"`
	Type         string  `toml:"type"`
	DefaultLevel *int    `toml:"default-level"`
	DefaultRGB   []int   `toml:"default-rgb"`
	White        int     `toml:"white"`
	Transition   float64 `toml:"transition"` // Transition - время перехода в секундах.
	ChannelSetup string  `toml:"channel-setup"`
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Config{
		Logger: LogConf{Level: "info"},
		MQTT:   MQTTConf{},
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return &cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
	for i := range c.Universes {
		u := &c.Universes[i]
		if u.Name == "" {
			u.Name = fmt.Sprintf("universe%d", u.Universe)
		}
		if u.Channels == 0 {
			u.Channels = DefaultChannels
		}
		if u.DefaultLevel == nil {
			level := DefaultLevel
			u.DefaultLevel = &level
		}
		if u.DefaultType == "" {
			u.DefaultType = DefaultType
		}
		if u.FrameRate == 0 {
			u.FrameRate = DefaultFrameRate
		}
		if u.SendLevelsOnStartup == nil {
			send := true
			u.SendLevelsOnStartup = &send
		}
		if u.SourceName == "" {
			u.SourceName = DefaultSourceName
		}
		if u.Priority == nil {
			priority := DefaultPriority
			u.Priority = &priority
		}
	}
}

// Validate checks errors that make the whole configuration unusable.
// Per-fixture mistakes are left to fixture construction.
func (c *Config) Validate() error {
	if len(c.Universes) == 0 {
		return errors.New("no [[universe]] configured")
	}
	names := map[string]bool{}
	for _, u := range c.Universes {
		if names[u.Name] {
			return fmt.Errorf("duplicate universe name %q", u.Name)
		}
		names[u.Name] = true
		if _, err := u.Refresh(); err != nil {
			return fmt.Errorf("universe %q: %w", u.Name, err)
		}
		if u.FrameRate < 0 {
			return fmt.Errorf("universe %q: negative frame-rate %d", u.Name, u.FrameRate)
		}
		if *u.Priority < 0 || *u.Priority > 200 {
			return fmt.Errorf("universe %q: priority %d not in [0, 200]", u.Name, *u.Priority)
		}
	}
	return nil
}

// Refresh parses RefreshInterval; an empty value disables the refresh.
func (u UniverseConf) Refresh() (time.Duration, error) {
	if u.RefreshInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(u.RefreshInterval)
	if err != nil {
		return 0, fmt.Errorf("bad refresh-interval: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative refresh-interval %s", d)
	}
	return d, nil
}

// TransitionDuration converts the configured fade time.
func (f FixtureConf) TransitionDuration() time.Duration {
	return time.Duration(f.Transition * float64(time.Second))
}
