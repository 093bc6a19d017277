// Package dmx holds the channel state of a single DMX universe.
package dmx

import (
	"errors"
	"fmt"
)

// MaxChannels is the size of a full DMX512 universe.
const MaxChannels = 512

var (
	ErrChannelCount      = errors.New("channel count out of range")
	ErrChannelOutOfRange = errors.New("channel index out of range")
	ErrLevel             = errors.New("level out of range 0-255")
	ErrNoValues          = errors.New("no values given")
)

// Buffer is the channel array of one universe. Channels are 1-indexed in
// the public API. The buffer is not safe for concurrent use, the owner
// serializes access.
type Buffer struct {
	channels []byte
}

// NewBuffer конструктор. count is rounded up to an even number.
func NewBuffer(count int, level int) (*Buffer, error) {
	if count < 1 || count > MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrChannelCount, count)
	}
	if err := CheckLevel(level); err != nil {
		return nil, err
	}
	if count%2 != 0 {
		count++
	}

	b := &Buffer{channels: make([]byte, count)}
	for i := range b.channels {
		b.channels[i] = byte(level)
	}
	return b, nil
}

// CheckLevel rejects integer levels that do not fit in a channel.
func CheckLevel(level int) error {
	if level < 0 || level > 255 {
		return fmt.Errorf("%w: %d", ErrLevel, level)
	}
	return nil
}

// Len returns the number of channels.
func (b *Buffer) Len() int {
	return len(b.channels)
}

// Get returns the level of channel.
func (b *Buffer) Get(channel int) (byte, error) {
	if err := b.Check(channel); err != nil {
		return 0, err
	}
	return b.channels[channel-1], nil
}

// Set writes a single channel.
func (b *Buffer) Set(channel int, value byte) error {
	if err := b.Check(channel); err != nil {
		return err
	}
	b.channels[channel-1] = value
	return nil
}

// SetMany writes values to channels positionally. A single value is
// broadcast to every channel; a shorter list repeats its last element.
// Nothing is written if any channel is out of range.
func (b *Buffer) SetMany(channels []int, values []byte) error {
	if err := b.CheckAll(channels); err != nil {
		return err
	}
	expanded, err := Expand(values, len(channels))
	if err != nil {
		return err
	}
	for i, ch := range channels {
		b.channels[ch-1] = expanded[i]
	}
	return nil
}

// Check validates a 1-based channel index.
func (b *Buffer) Check(channel int) error {
	if channel < 1 || channel > len(b.channels) {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrChannelOutOfRange, channel, len(b.channels))
	}
	return nil
}

// CheckAll validates every index of a group.
func (b *Buffer) CheckAll(channels []int) error {
	for _, ch := range channels {
		if err := b.Check(ch); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the live channel slice. Callers must not keep it past the
// owner's lock.
func (b *Buffer) Bytes() []byte {
	return b.channels
}

// Snapshot returns a copy of the channel array.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, len(b.channels))
	copy(out, b.channels)
	return out
}

// Expand stretches values to n entries, repeating the last one.
func Expand(values []byte, n int) ([]byte, error) {
	if len(values) == 0 {
		return nil, ErrNoValues
	}
	out := make([]byte, n)
	for i := range out {
		if i < len(values) {
			out[i] = values[i]
		} else {
			out[i] = values[len(values)-1]
		}
	}
	return out, nil
}
