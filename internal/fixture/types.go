package fixture

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is a light's channel layout.
type Type string

const (
	TypeDimmer      Type = "dimmer"
	TypeRGB         Type = "rgb"
	TypeRGBA        Type = "rgba"
	TypeRGBAW       Type = "rgbaw"
	TypeRGBD        Type = "rgbd"
	TypeRGBW        Type = "rgbw"
	TypeRGBWAuto    Type = "rgbw_auto"
	TypeDRGB        Type = "drgb"
	TypeDRGBW       Type = "drgbw"
	TypeRGBWD       Type = "rgbwd"
	TypeSwitch      Type = "switch"
	TypeCustomWhite Type = "custom_white"
)

// Color temperature range in mireds.
const (
	MinMireds = 192
	MaxMireds = 448
)

// MaxTransition is the longest accepted fade time.
const MaxTransition = 60 * time.Second

var (
	ErrUnknownType    = errors.New("unknown light type")
	ErrChannelSetup   = errors.New("invalid channel setup")
	ErrOutOfUniverse  = errors.New("fixture does not fit in universe")
	ErrColor          = errors.New("color must have 3 components 0-255")
	ErrColorTemp      = errors.New("color temperature out of range")
	ErrTransition     = errors.New("transition out of range")
	customWhiteLetter = "dtThHcC"
)

// channelCount - кол-во каналов для каждого типа.
var channelCount = map[Type]int{
	TypeDimmer:   1,
	TypeRGB:      3,
	TypeRGBA:     4,
	TypeRGBAW:    5,
	TypeRGBD:     4,
	TypeRGBW:     4,
	TypeRGBWAuto: 4,
	TypeDRGB:     4,
	TypeDRGBW:    5,
	TypeRGBWD:    5,
	TypeSwitch:   1,
}

// ParseType validates a configured type name.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := channelCount[t]; ok || t == TypeCustomWhite {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// HasColor reports whether the type carries an rgb color.
func (t Type) HasColor() bool {
	switch t {
	case TypeRGB, TypeRGBA, TypeRGBAW, TypeRGBD, TypeRGBW, TypeRGBWAuto, TypeDRGB, TypeDRGBW, TypeRGBWD:
		return true
	}
	return false
}

// HasWhite reports whether the type has a separately controlled white channel.
func (t Type) HasWhite() bool {
	switch t {
	case TypeRGBW, TypeRGBWD, TypeDRGBW, TypeRGBAW:
		return true
	}
	return false
}

// Config описывает один светильник.
type Config struct {
	Name         string
	Channel      int    // Channel - первый канал (1-512).
	Type         string // Type - тип светильника.
	DefaultLevel *int   // DefaultLevel - nil: уровень шлюза.
	DefaultRGB   []int
	White        int
	Transition   time.Duration // Transition - время перехода по умолчанию.
	ChannelSetup string        // ChannelSetup - только для custom_white.
}

// Command is a turn-on request. Nil fields keep the current value.
type Command struct {
	Brightness *int
	RGB        []int
	White      *int
	ColorTemp  *int
	Transition *time.Duration
}

// State is a read-only view of a fixture.
type State struct {
	Name       string
	Type       Type
	On         bool
	Brightness int
	RGB        []int
	White      *int
	ColorTemp  *int
	Channels   []int
	Values     []byte
	Transition time.Duration
}
