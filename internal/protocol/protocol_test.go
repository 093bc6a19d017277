package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Haba1234/go-artnet/packet"
	"github.com/google/uuid"
)

func TestArtNet_Encode(t *testing.T) {
	enc, err := NewArtNet(Session{Universe: 0, Channels: 4})
	if err != nil {
		t.Fatalf("NewArtNet error: %v", err)
	}
	got := enc.Encode([]byte{10, 20, 30, 40})
	want := []byte{
		'A', 'r', 't', '-', 'N', 'e', 't', 0x00,
		0x00, 0x50, // OpDmx, little endian
		0x00, 0x0e, // version 14
		0x00, 0x00, // sequence, physical
		0x00, 0x00, // universe
		0x00, 0x04, // length
		0x0a, 0x14, 0x1e, 0x28,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() =\n% x\nwant\n% x", got, want)
	}
}

func TestArtNet_UniverseAddress(t *testing.T) {
	enc, err := NewArtNet(Session{Universe: 0x0213, Channels: 2})
	if err != nil {
		t.Fatalf("NewArtNet error: %v", err)
	}
	got := enc.Encode([]byte{1, 2})
	if got[14] != 0x13 || got[15] != 0x02 {
		t.Errorf("universe bytes = %#x %#x, want 0x13 0x02", got[14], got[15])
	}
	if a := enc.Address(); a.Net != 0x02 || a.SubUni != 0x13 {
		t.Errorf("Address() = %+v", a)
	}
	if _, err := NewArtNet(Session{Universe: 0x8000}); !errors.Is(err, ErrUniverseRange) {
		t.Errorf("NewArtNet(0x8000) error = %v, want ErrUniverseRange", err)
	}
}

func TestArtNet_DecodesWithGoArtnet(t *testing.T) {
	enc, err := NewArtNet(Session{Universe: 0x0105, Channels: 512})
	if err != nil {
		t.Fatalf("NewArtNet error: %v", err)
	}
	channels := make([]byte, 512)
	for i := range channels {
		channels[i] = byte(i * 7)
	}

	var p packet.ArtDMXPacket
	if err := p.UnmarshalBinary(enc.Encode(channels)); err != nil {
		t.Fatalf("UnmarshalBinary error: %v", err)
	}
	if p.SubUni != 0x05 || p.Net != 0x01 {
		t.Errorf("SubUni/Net = %#x/%#x, want 0x05/0x01", p.SubUni, p.Net)
	}
	if p.Length != 512 {
		t.Errorf("Length = %d, want 512", p.Length)
	}
	if !bytes.Equal(p.Data[:], channels) {
		t.Error("decoded DMX data differs from the encoded channels")
	}
}

func TestArtNet_HeaderNotMutated(t *testing.T) {
	enc, _ := NewArtNet(Session{Universe: 1, Channels: 2})
	first := enc.Encode([]byte{1, 2})
	first[0] = 'X'
	second := enc.Encode([]byte{3, 4})
	if second[0] != 'A' || !bytes.Equal(second[18:], []byte{3, 4}) {
		t.Errorf("header template was mutated: % x", second)
	}
}

func TestKiNet_Encode(t *testing.T) {
	enc, err := NewKiNet(Session{Universe: 7, Channels: 4})
	if err != nil {
		t.Fatalf("NewKiNet error: %v", err)
	}
	got := enc.Encode([]byte{1, 2, 3, 4})
	header := []byte{
		0x04, 0x01, 0xdc, 0x4a, // magic
		0x01, 0x00, // version
		0x01, 0x01, // type
		0x00, 0x00, 0x00, 0x00, // sequence
		0x00,       // port
		0x00,       // padding
		0x00, 0x00, // flags
		0xff, 0xff, 0xff, 0xff, // timer
		0x07, // universe
	}
	if !bytes.Equal(got[:len(header)], header) {
		t.Errorf("header =\n% x\nwant\n% x", got[:len(header)], header)
	}
	payload := got[len(header):]
	if len(payload) != KiNetPayload {
		t.Fatalf("payload length = %d, want %d", len(payload), KiNetPayload)
	}
	if !bytes.Equal(payload[:4], []byte{1, 2, 3, 4}) {
		t.Errorf("payload head = %v", payload[:4])
	}
	for i, v := range payload[4:] {
		if v != 0 {
			t.Fatalf("payload[%d] = %d, want zero padding", i+4, v)
		}
	}
}

func TestKiNet_PayloadAlways512(t *testing.T) {
	enc, _ := NewKiNet(Session{Universe: 0, Channels: 512})
	for _, n := range []int{2, 100, 512, 600} {
		got := enc.Encode(make([]byte, n))
		if len(got)-21 != KiNetPayload {
			t.Errorf("Encode(%d channels) payload = %d bytes, want %d", n, len(got)-21, KiNetPayload)
		}
	}
	if _, err := NewKiNet(Session{Universe: 256}); !errors.Is(err, ErrUniverseRange) {
		t.Errorf("NewKiNet(256) error = %v, want ErrUniverseRange", err)
	}
}

func TestSACN_Layout(t *testing.T) {
	cid := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	enc, err := NewSACN(Session{Universe: 1025, Channels: 4, SourceName: "mqtt2dmx", Priority: 150, CID: cid})
	if err != nil {
		t.Fatalf("NewSACN error: %v", err)
	}
	p := enc.Encode([]byte{9, 8, 7, 6})

	if len(p) != sacnHeaderSize+4 {
		t.Fatalf("packet length = %d, want %d", len(p), sacnHeaderSize+4)
	}
	if !bytes.Equal(p[0:4], []byte{0x00, 0x10, 0x00, 0x00}) {
		t.Errorf("preamble/postamble = % x", p[0:4])
	}
	if !bytes.Equal(p[4:16], []byte("ASC-E1.17\x00\x00\x00")) {
		t.Errorf("packet identifier = %q", p[4:16])
	}
	if got := binary.BigEndian.Uint16(p[16:18]); got != 0x7000|uint16(len(p)-16) {
		t.Errorf("root flags/length = %#x", got)
	}
	if got := binary.BigEndian.Uint32(p[18:22]); got != sacnRootVector {
		t.Errorf("root vector = %#x", got)
	}
	if !bytes.Equal(p[22:38], cid[:]) {
		t.Errorf("cid = % x", p[22:38])
	}
	if got := binary.BigEndian.Uint16(p[38:40]); got != 0x7000|uint16(len(p)-38) {
		t.Errorf("framing flags/length = %#x", got)
	}
	if got := binary.BigEndian.Uint32(p[40:44]); got != sacnFramingVector {
		t.Errorf("framing vector = %#x", got)
	}
	if !bytes.Equal(p[44:52], []byte("mqtt2dmx")) || p[52] != 0 {
		t.Errorf("source name = %q", p[44:108])
	}
	if p[108] != 150 {
		t.Errorf("priority = %d, want 150", p[108])
	}
	if p[111] != 1 {
		t.Errorf("first sequence = %d, want 1", p[111])
	}
	if got := binary.BigEndian.Uint16(p[113:115]); got != 1025 {
		t.Errorf("universe = %d, want 1025", got)
	}
	if got := binary.BigEndian.Uint16(p[115:117]); got != 0x7000|uint16(len(p)-115) {
		t.Errorf("dmp flags/length = %#x", got)
	}
	if p[117] != 0x02 || p[118] != 0xa1 {
		t.Errorf("dmp vector/address type = %#x %#x", p[117], p[118])
	}
	if !bytes.Equal(p[119:126], []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x05, 0x00}) {
		t.Errorf("dmp fields = % x", p[119:126])
	}
	if !bytes.Equal(p[126:], []byte{9, 8, 7, 6}) {
		t.Errorf("payload = %v", p[126:])
	}
}

func TestSACN_SequenceWraps(t *testing.T) {
	enc, _ := NewSACN(Session{Universe: 1, Channels: 2})
	for i := 1; i <= 450; i++ {
		p := enc.Encode([]byte{0, 0})
		want := byte((i-1)%SACNMaxSequence + 1)
		if p[sacnSequenceOffset] != want {
			t.Fatalf("send %d: sequence = %d, want %d", i, p[sacnSequenceOffset], want)
		}
		if p[sacnSequenceOffset] == 0 || p[sacnSequenceOffset] > SACNMaxSequence {
			t.Fatalf("send %d: sequence %d outside 1..200", i, p[sacnSequenceOffset])
		}
		if enc.Sequence() != want {
			t.Fatalf("send %d: Sequence() = %d, want %d", i, enc.Sequence(), want)
		}
	}
}

func TestSACN_ZeroPriority(t *testing.T) {
	enc, err := NewSACN(Session{Universe: 1, Channels: 2, Priority: 0})
	if err != nil {
		t.Fatalf("NewSACN error: %v", err)
	}
	if enc.Sequence() != 0 {
		t.Errorf("Sequence() before the first packet = %d, want 0", enc.Sequence())
	}
	if p := enc.Encode([]byte{0, 0}); p[108] != 0 {
		t.Errorf("priority = %d, want 0", p[108])
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"artnet": KindArtNet, "Art-Net": KindArtNet, "": KindArtNet,
		"kinet": KindKiNet, "sACN": KindSACN, "e1.31": KindSACN, "E131": KindSACN,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseKind("dmxking"); !errors.Is(err, ErrUnknownProtocol) {
		t.Errorf("ParseKind(dmxking) error = %v, want ErrUnknownProtocol", err)
	}
}

func TestKind_DefaultPort(t *testing.T) {
	if KindArtNet.DefaultPort() != 6454 || KindKiNet.DefaultPort() != 6038 || KindSACN.DefaultPort() != 5568 {
		t.Error("unexpected default ports")
	}
}

func TestMulticastAddress(t *testing.T) {
	if got := MulticastAddress(0x0102).String(); got != "239.255.1.2" {
		t.Errorf("MulticastAddress = %s, want 239.255.1.2", got)
	}
}
