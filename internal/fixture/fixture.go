// Package fixture maps light state (on/off, brightness, color) onto the
// channel group a light occupies in a universe.
package fixture

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/gateway"
	"mqtt2dmx/internal/logger"
)

// Gateway is the part of *gateway.Gateway a fixture drives.
type Gateway interface {
	SetChannels(channels []int, values []byte, sendNow bool) error
	BeginTransition(channels []int, values []byte, duration time.Duration, frameRate int, sendNow bool) (*gateway.Transition, error)
	CheckChannels(channels []int) error
	DefaultLevel() byte
}

// Fixture is one light. Its first channel keys its transitions.
type Fixture struct {
	log      logger.Logger
	gw       Gateway
	name     string
	typ      Type
	channels []int
	setup    string
	fade     time.Duration

	mu sync.Mutex
	light
}

// light is the mutable part of a fixture. rgb is replaced, never
// modified in place, so a copy of light is a snapshot.
type light struct {
	on         bool
	brightness int
	rgb        []int
	white      int
	colorTemp  int
}

// New validates cfg and writes the fixture's default values into the
// gateway, sending them when sendNow is set.
func New(log logger.Logger, gw Gateway, cfg Config, sendNow bool) (*Fixture, error) {
	typ, err := ParseType(cfg.Type)
	if err != nil {
		return nil, err
	}

	count := channelCount[typ]
	if typ == TypeCustomWhite {
		if cfg.ChannelSetup == "" {
			return nil, fmt.Errorf("%w: custom_white needs channel-setup", ErrChannelSetup)
		}
		for _, r := range cfg.ChannelSetup {
			if !strings.ContainsRune(customWhiteLetter, r) {
				return nil, fmt.Errorf("%w: unknown letter %q", ErrChannelSetup, r)
			}
		}
		count = len(cfg.ChannelSetup)
	}

	channels := make([]int, count)
	for i := range channels {
		channels[i] = cfg.Channel + i
	}
	if err := gw.CheckChannels(channels); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutOfUniverse, err)
	}

	brightness := int(gw.DefaultLevel())
	if cfg.DefaultLevel != nil {
		if err := dmx.CheckLevel(*cfg.DefaultLevel); err != nil {
			return nil, err
		}
		brightness = *cfg.DefaultLevel
	}
	if err := dmx.CheckLevel(cfg.White); err != nil {
		return nil, fmt.Errorf("white: %w", err)
	}
	if err := checkTransition(cfg.Transition); err != nil {
		return nil, err
	}

	var rgb []int
	if typ.HasColor() {
		rgb = []int{255, 255, 255}
		if cfg.DefaultRGB != nil {
			if err := checkRGB(cfg.DefaultRGB); err != nil {
				return nil, err
			}
			rgb = append([]int(nil), cfg.DefaultRGB...)
		}
		// Яркость - максимальная компонента цвета.
		brightness = round(float64(maxOf(rgb...)) * float64(brightness) / 255)
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("DMX Channel %d", cfg.Channel)
	}

	f := &Fixture{
		log:      log,
		gw:       gw,
		name:     name,
		typ:      typ,
		channels: channels,
		setup:    cfg.ChannelSetup,
		fade:     cfg.Transition,
		light: light{
			on:         brightness > 0 || cfg.White > 0,
			brightness: brightness,
			rgb:        rgb,
			white:      cfg.White,
			colorTemp:  (MinMireds + MaxMireds) / 2,
		},
	}

	if err := gw.SetChannels(channels, f.Values(), sendNow); err != nil {
		return nil, err
	}
	f.logger().Debugf("initialized %s on channels %v with %v", typ, channels, f.Values())
	return f, nil
}

func (f *Fixture) logger() *logger.Log {
	return f.log.With(logger.Fields{"module": "fixture", "fixture": f.name})
}

func (f *Fixture) Name() string { return f.name }

func (f *Fixture) Type() Type { return f.typ }

// Channels returns the channel group.
func (f *Fixture) Channels() []int {
	return append([]int(nil), f.channels...)
}

// TurnOn applies cmd and fades to the resulting values. A brightness of 0
// turns into full brightness. The fixture state is left untouched when
// the transition cannot be started.
func (f *Fixture) TurnOn(cmd Command) (*gateway.Transition, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}

	// f.mu держится до запуска перехода.
	f.mu.Lock()
	defer f.mu.Unlock()

	prev := f.light
	f.on = true
	if cmd.Brightness != nil {
		f.brightness = *cmd.Brightness
	}
	if f.brightness == 0 {
		f.brightness = 255
	}
	if cmd.RGB != nil && f.rgb != nil {
		f.rgb = append([]int(nil), cmd.RGB...)
	}
	if cmd.White != nil {
		f.white = *cmd.White
	}
	if cmd.ColorTemp != nil {
		f.colorTemp = *cmd.ColorTemp
	}
	transition := f.fade
	if cmd.Transition != nil {
		transition = *cmd.Transition
	}
	values := f.valuesLocked()

	f.logger().Debugf("setting to %v with transition %s", values, transition)
	tr, err := f.gw.BeginTransition(f.channels, values, transition, 0, true)
	if err != nil {
		f.light = prev
		return nil, err
	}
	return tr, nil
}

// TurnOff fades every channel of the fixture to zero.
func (f *Fixture) TurnOff(transition *time.Duration) (*gateway.Transition, error) {
	d := f.fade
	if transition != nil {
		if err := checkTransition(*transition); err != nil {
			return nil, err
		}
		d = *transition
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.logger().Debugf("turning off with transition %s", d)
	tr, err := f.gw.BeginTransition(f.channels, []byte{0}, d, 0, true)
	if err != nil {
		return nil, err
	}
	f.on = false
	return tr, nil
}

// Values returns the channel values for the current state.
func (f *Fixture) Values() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.valuesLocked()
}

// State returns a snapshot of the fixture.
func (f *Fixture) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := State{
		Name:       f.name,
		Type:       f.typ,
		On:         f.on,
		Brightness: f.brightness,
		Channels:   f.Channels(),
		Values:     f.valuesLocked(),
		Transition: f.fade,
	}
	if f.rgb != nil {
		s.RGB = append([]int(nil), f.rgb...)
	}
	if f.typ.HasWhite() {
		w := f.white
		s.White = &w
	}
	if f.typ == TypeCustomWhite {
		ct := f.colorTemp
		s.ColorTemp = &ct
	}
	return s
}

func (c Command) validate() error {
	if c.Brightness != nil {
		if err := dmx.CheckLevel(*c.Brightness); err != nil {
			return fmt.Errorf("brightness: %w", err)
		}
	}
	if c.White != nil {
		if err := dmx.CheckLevel(*c.White); err != nil {
			return fmt.Errorf("white: %w", err)
		}
	}
	if c.RGB != nil {
		if err := checkRGB(c.RGB); err != nil {
			return err
		}
	}
	if c.ColorTemp != nil && (*c.ColorTemp < MinMireds || *c.ColorTemp > MaxMireds) {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrColorTemp, *c.ColorTemp, MinMireds, MaxMireds)
	}
	if c.Transition != nil {
		return checkTransition(*c.Transition)
	}
	return nil
}

func checkTransition(d time.Duration) error {
	if d < 0 || d > MaxTransition {
		return fmt.Errorf("%w: %s not in [0, %s]", ErrTransition, d, MaxTransition)
	}
	return nil
}

func checkRGB(rgb []int) error {
	if len(rgb) != 3 {
		return fmt.Errorf("%w: got %v", ErrColor, rgb)
	}
	for _, c := range rgb {
		if dmx.CheckLevel(c) != nil {
			return fmt.Errorf("%w: got %v", ErrColor, rgb)
		}
	}
	return nil
}
