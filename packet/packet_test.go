package packet

/*
MIT License

Copyright (c) 2015-2017 University Corporation for Atmospheric Research

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

import (
	"bytes"
	"testing"
)

func TestBuildRawRejectsUnknownType(t *testing.T) {
	if _, err := BuildRaw(Unknown, Now(), nil); err == nil {
		t.Error("expected an error building a packet of type UNKNOWN")
	}
}

func TestBuildRawRejectsOversizePayload(t *testing.T) {
	big := make([]byte, MaxPayloadSize+1)
	if _, err := BuildRaw(DataFromInstrument, Now(), big); err == nil {
		t.Error("expected an error building a packet whose payload overflows the wire size")
	}
}

func TestChecksumRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("a"),
		[]byte("the quick brown fox"),
		make([]byte, 4096),
		make([]byte, MaxPayloadSize),
	}
	for _, payload := range payloads {
		p, err := BuildRaw(DataFromInstrument, Now(), payload)
		if err != nil {
			t.Fatalf("BuildRaw: %v", err)
		}
		got, err := FromWire(p.Bytes())
		if err != nil {
			t.Fatalf("FromWire: %v", err)
		}
		if !bytes.Equal(got.Bytes(), p.Bytes()) {
			t.Error("round-tripped packet bytes differ from the original")
		}
	}
}

func TestChecksumRejection(t *testing.T) {
	p, err := BuildRaw(DataFromInstrument, Now(), []byte("some data"))
	if err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	for i := range p.Bytes() {
		corrupted := append([]byte{}, p.Bytes()...)
		corrupted[i] ^= 0x01
		if _, err := FromWire(corrupted); err == nil {
			t.Errorf("flipping bit in byte %d should have produced a checksum failure", i)
		}
	}
}

func TestHeaderEndianness(t *testing.T) {
	for n := 0; n <= 300; n++ {
		payload := make([]byte, n)
		p, err := BuildRaw(DataFromInstrument, Now(), payload)
		if err != nil {
			t.Fatalf("BuildRaw: %v", err)
		}
		if p.Size() != n+HeaderSize {
			t.Fatalf("payload %d: size field %d != %d", n, p.Size(), n+HeaderSize)
		}
		got := int(p.Bytes()[offSize])<<8 | int(p.Bytes()[offSize+1])
		if got != n+HeaderSize {
			t.Fatalf("payload %d: big-endian size byte read %d != %d", n, got, n+HeaderSize)
		}
	}
}

// TestInstrumentDataPacketRoundTrip builds a DATA_FROM_INSTRUMENT
// packet built from bytes 0x01 0x02 0x03 at NTP time 3800000000.0.
func TestInstrumentDataPacketRoundTrip(t *testing.T) {
	ts := Timestamp{Seconds: 3800000000, Frac: 0}
	p, err := BuildRaw(DataFromInstrument, ts, []byte{0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	if p.Size() != 19 {
		t.Fatalf("expected total size 19, got %d", p.Size())
	}
	if !bytes.Equal(p.Payload(), []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("unexpected payload %v", p.Payload())
	}

	want := byte(0)
	for _, b := range []byte{0xA3, 0x9D, 0x7A, 0x01, 0x00, 0x13, 0x00, 0x00, 0xE2, 0x7F, 0x66, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x02, 0x03} {
		want ^= b
	}
	if p.Checksum() != uint16(want) {
		t.Fatalf("checksum = 0x%04X, want 0x%04X", p.Checksum(), want)
	}

	if _, err := FromWire(p.Bytes()); err != nil {
		t.Fatalf("FromWire on freshly-built packet failed: %v", err)
	}
}

func TestFromWireRSNDoesNotRejectOnChecksumMismatch(t *testing.T) {
	ts := Timestamp{Seconds: 3800000000, Frac: 0}
	p, err := BuildRaw(DataFromInstrument, ts, []byte("digi framed this"))
	if err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	raw := append([]byte{}, p.Bytes()...)
	raw[len(raw)-1] ^= 0xFF // corrupt payload without touching the checksum field's own meaning for this path

	got, err := FromWireRSN(raw)
	if err != nil {
		t.Fatalf("FromWireRSN should not validate checksum, got error: %v", err)
	}
	if got.Type() != DataFromRSN {
		t.Fatalf("expected DataFromRSN, got %v", got.Type())
	}
}

func TestASCIIProjection(t *testing.T) {
	p, err := BuildRaw(DataFromInstrument, Timestamp{Seconds: 100, Frac: 0}, []byte("hello"))
	if err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	ascii := p.ASCII()
	if !bytes.Contains([]byte(ascii), []byte("hello")) {
		t.Errorf("ASCII projection missing payload: %q", ascii)
	}
	if !bytes.HasSuffix([]byte(ascii), []byte("</port_agent_packet>\r\n")) {
		t.Errorf("ASCII projection missing closing tag: %q", ascii)
	}
}
