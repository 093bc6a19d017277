package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conf.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sample = `
[logger]
log-level = "debug"

[mqtt]
clientID = "stage"
server = "broker.local"
port = "1883"

[[universe]]
name = "stage"
host = "192.168.6.10"
protocol = "sacn"
universe = 3
channels = 24
default-level = 0
refresh-interval = "1s"
priority = 0

  [[universe.fixture]]
  name = "Front Wash"
  channel = 1
  type = "rgbw"
  default-rgb = [255, 128, 0]
  transition = 1.5

  [[universe.fixture]]
  name = "Fog"
  channel = 10
  type = "switch"

[[universe]]
host = "10.0.0.5"
protocol = "kinet"
`

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("NewConfig error: %v", err)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if cfg.MQTT.Host != "broker.local" || cfg.MQTT.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if len(cfg.Universes) != 2 {
		t.Fatalf("len(Universes) = %d, want 2", len(cfg.Universes))
	}

	stage := cfg.Universes[0]
	if stage.Protocol != "sacn" || stage.Universe != 3 || stage.Channels != 24 {
		t.Errorf("stage = %+v", stage)
	}
	if *stage.DefaultLevel != 0 {
		t.Errorf("explicit default-level 0 was overwritten: %d", *stage.DefaultLevel)
	}
	if *stage.Priority != 0 {
		t.Errorf("explicit priority 0 was overwritten: %d", *stage.Priority)
	}
	if d, _ := stage.Refresh(); d != time.Second {
		t.Errorf("Refresh() = %s, want 1s", d)
	}
	if len(stage.Fixtures) != 2 {
		t.Fatalf("len(Fixtures) = %d, want 2", len(stage.Fixtures))
	}
	wash := stage.Fixtures[0]
	if wash.Type != "rgbw" || len(wash.DefaultRGB) != 3 || wash.TransitionDuration() != 1500*time.Millisecond {
		t.Errorf("wash = %+v", wash)
	}

	second := cfg.Universes[1]
	if second.Name != "universe0" || second.Channels != DefaultChannels || *second.DefaultLevel != DefaultLevel {
		t.Errorf("defaults not applied: %+v", second)
	}
	if *second.Priority != DefaultPriority {
		t.Errorf("Priority = %d, want %d", *second.Priority, DefaultPriority)
	}
	if second.FrameRate != DefaultFrameRate || !*second.SendLevelsOnStartup || second.DefaultType != DefaultType {
		t.Errorf("defaults not applied: %+v", second)
	}
}

func TestNewConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no universes", `[logger]`, "no [[universe]]"},
		{"duplicate names", "[[universe]]\nname='a'\n[[universe]]\nname='a'\n", "duplicate"},
		{"bad refresh", "[[universe]]\nrefresh-interval='often'\n", "refresh-interval"},
		{"bad priority", "[[universe]]\npriority=201\n", "priority"},
		{"syntax", "[[universe", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("NewConfig accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestNewConfig_MissingFile(t *testing.T) {
	if _, err := NewConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("NewConfig accepted a missing file")
	}
}
