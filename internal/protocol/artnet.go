package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/Haba1234/go-artnet"
)

const (
	artNetOpDMX   uint16 = 0x5000
	artNetVersion uint16 = 14

	// artNetMaxUniverse - 15-битный Port-Address.
	artNetMaxUniverse = 0x7fff
)

var artNetID = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

// ArtNet encodes ArtDMX packets.
type ArtNet struct {
	address artnet.Address
	header  []byte
}

// NewArtNet builds the ArtDMX header for s.
func NewArtNet(s Session) (*ArtNet, error) {
	if s.Universe < 0 || s.Universe > artNetMaxUniverse {
		return nil, fmt.Errorf("%w: art-net universe %d", ErrUniverseRange, s.Universe)
	}
	a := &ArtNet{address: universeToAddress(uint16(s.Universe))}

	h := make([]byte, 18)
	copy(h[0:8], artNetID)
	binary.LittleEndian.PutUint16(h[8:10], artNetOpDMX)
	binary.BigEndian.PutUint16(h[10:12], artNetVersion)
	h[12] = 0 // Sequence (выключен).
	h[13] = 0 // Physical.
	h[14] = a.address.SubUni
	h[15] = a.address.Net
	binary.BigEndian.PutUint16(h[16:18], uint16(s.Channels))
	a.header = h
	return a, nil
}

// universeToAddress converts a universe number to an art-net address:
// low byte - SubUni, high byte - Net.
func universeToAddress(universe uint16) artnet.Address {
	return artnet.Address{
		Net:    uint8(universe >> 8),
		SubUni: uint8(universe),
	}
}

func (a *ArtNet) Kind() Kind { return KindArtNet }

// Address returns the port address the packets are sent to.
func (a *ArtNet) Address() artnet.Address { return a.address }

func (a *ArtNet) Encode(channels []byte) []byte {
	return appendPayload(a.header, channels)
}
