package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// E1.31 layout constants.
const (
	sacnHeaderSize    = 126
	sacnRootVector    = 0x00000004
	sacnFramingVector = 0x00000002
	sacnDMPVector     = 0x02
	sacnAddressType   = 0xa1
	sacnSourceNameLen = 64
	sacnMaxUniverse   = 63999

	// SACNMaxSequence is the last sequence number before wrapping back to 1.
	SACNMaxSequence = 200

	sacnSequenceOffset = 111
)

var acnPacketIdentifier = []byte{0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00}

// SACN encodes E1.31 data packets.
type SACN struct {
	header   []byte
	sequence byte
}

// NewSACN builds the root, framing and DMP headers for s. Lengths are
// fixed because the channel count never changes after creation.
func NewSACN(s Session) (*SACN, error) {
	if s.Universe < 0 || s.Universe > sacnMaxUniverse {
		return nil, fmt.Errorf("%w: sacn universe %d", ErrUniverseRange, s.Universe)
	}
	total := sacnHeaderSize + s.Channels
	h := make([]byte, sacnHeaderSize)

	// Root layer.
	binary.BigEndian.PutUint16(h[0:2], 0x0010) // preamble size
	binary.BigEndian.PutUint16(h[2:4], 0x0000) // postamble size
	copy(h[4:16], acnPacketIdentifier)
	binary.BigEndian.PutUint16(h[16:18], flagsLength(total-16))
	binary.BigEndian.PutUint32(h[18:22], sacnRootVector)
	copy(h[22:38], s.CID[:])

	// Framing layer.
	binary.BigEndian.PutUint16(h[38:40], flagsLength(total-38))
	binary.BigEndian.PutUint32(h[40:44], sacnFramingVector)
	name := []byte(s.SourceName)
	if len(name) > sacnSourceNameLen-1 {
		name = name[:sacnSourceNameLen-1]
	}
	copy(h[44:44+sacnSourceNameLen], name)
	h[108] = s.Priority
	binary.BigEndian.PutUint16(h[109:111], 0) // sync universe
	h[sacnSequenceOffset] = 0
	h[112] = 0 // options
	binary.BigEndian.PutUint16(h[113:115], uint16(s.Universe))

	// DMP layer.
	binary.BigEndian.PutUint16(h[115:117], flagsLength(total-115))
	h[117] = sacnDMPVector
	h[118] = sacnAddressType
	binary.BigEndian.PutUint16(h[119:121], 0x0000) // first property address
	binary.BigEndian.PutUint16(h[121:123], 0x0001) // address increment
	binary.BigEndian.PutUint16(h[123:125], uint16(s.Channels+1))
	h[125] = 0x00 // DMX start code

	return &SACN{header: h}, nil
}

func flagsLength(n int) uint16 {
	return 0x7000 | uint16(n&0x0fff)
}

func (s *SACN) Kind() Kind { return KindSACN }

// Encode advances the sequence (1..200, then 1 again) and stamps it into
// the copied header.
func (s *SACN) Encode(channels []byte) []byte {
	s.sequence++
	if s.sequence > SACNMaxSequence {
		s.sequence = 1
	}
	packet := appendPayload(s.header, channels)
	packet[sacnSequenceOffset] = s.sequence
	return packet
}

// Sequence returns the last sequence number written.
func (s *SACN) Sequence() byte {
	return s.sequence
}

// MulticastAddress returns the E1.31 multicast group of a universe.
func MulticastAddress(universe int) net.IP {
	return net.IPv4(239, 255, byte(universe>>8), byte(universe))
}
