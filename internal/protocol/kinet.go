package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	kinetMagic   uint32 = 0x0401dc4a
	kinetVersion uint16 = 0x0100
	kinetTypeDMX uint16 = 0x0101

	// KiNetPayload is the fixed DMX payload size of a KiNet DMXOUT packet.
	KiNetPayload = 512
)

// KiNet encodes KiNet v1 DMXOUT packets. The payload is always 512 bytes.
type KiNet struct {
	header []byte
}

// NewKiNet builds the DMXOUT header for s.
func NewKiNet(s Session) (*KiNet, error) {
	if s.Universe < 0 || s.Universe > 0xff {
		return nil, fmt.Errorf("%w: kinet universe %d", ErrUniverseRange, s.Universe)
	}

	h := make([]byte, 21)
	binary.BigEndian.PutUint32(h[0:4], kinetMagic)
	binary.BigEndian.PutUint16(h[4:6], kinetVersion)
	binary.BigEndian.PutUint16(h[6:8], kinetTypeDMX)
	binary.BigEndian.PutUint32(h[8:12], 0) // sequence
	h[12] = 0                              // port
	h[13] = 0                              // padding
	binary.BigEndian.PutUint16(h[14:16], 0)
	binary.BigEndian.PutUint32(h[16:20], 0xffffffff) // timer
	h[20] = byte(s.Universe)
	return &KiNet{header: h}, nil
}

func (k *KiNet) Kind() Kind { return KindKiNet }

func (k *KiNet) Encode(channels []byte) []byte {
	packet := make([]byte, len(k.header)+KiNetPayload)
	copy(packet, k.header)
	copy(packet[len(k.header):], channels)
	return packet
}
