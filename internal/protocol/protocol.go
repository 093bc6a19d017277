// Package protocol encodes a universe's channel array into DMX-over-IP datagrams.
package protocol

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind selects the wire protocol of a universe.
type Kind string

const (
	KindArtNet Kind = "artnet"
	KindKiNet  Kind = "kinet"
	KindSACN   Kind = "sacn"
)

// Default UDP destination ports.
const (
	ArtNetPort = 6454
	KiNetPort  = 6038
	SACNPort   = 5568
)

var (
	ErrUnknownProtocol = errors.New("unknown protocol")
	ErrUniverseRange   = errors.New("universe out of range")
)

// Encoder builds the outbound datagram for the current channel array.
// The header is built once; Encode copies it and never mutates it.
// Encode is not safe for concurrent use (sACN advances its sequence).
type Encoder interface {
	Kind() Kind
	Encode(channels []byte) []byte
}

// Session holds the per-universe metadata an encoder needs.
type Session struct {
	Universe   int
	Channels   int       // Channels - размер буфера (чётный, не больше 512).
	SourceName string    // SourceName - только для sACN.
	Priority   byte      // Priority - только для sACN, 0 допустим.
	CID        uuid.UUID // CID - идентификатор источника sACN.
}

// ParseKind accepts the protocol names used in configuration.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "artnet", "art-net", "":
		return KindArtNet, nil
	case "kinet":
		return KindKiNet, nil
	case "sacn", "e131", "e1.31":
		return KindSACN, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

// DefaultPort returns the standard destination port for k.
func (k Kind) DefaultPort() int {
	switch k {
	case KindKiNet:
		return KiNetPort
	case KindSACN:
		return SACNPort
	default:
		return ArtNetPort
	}
}

// New builds the encoder for k.
func New(k Kind, s Session) (Encoder, error) {
	switch k {
	case KindArtNet:
		return NewArtNet(s)
	case KindKiNet:
		return NewKiNet(s)
	case KindSACN:
		return NewSACN(s)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, string(k))
}

func appendPayload(header, channels []byte) []byte {
	packet := make([]byte, len(header), len(header)+len(channels))
	copy(packet, header)
	return append(packet, channels...)
}
