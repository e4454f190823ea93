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
	"testing"
	"time"
)

func TestBufferedFlushBySize(t *testing.T) {
	const maxPayload = 16
	bp := NewBuffered(DataFromInstrument, maxPayload, time.Hour, nil)
	now := Timestamp{Seconds: 1000}

	data := make([]byte, maxPayload+5)
	for i := range data {
		data[i] = byte(i)
	}
	bp.Push(data, now)

	if !bp.Ready() {
		t.Fatal("expected accumulator to be READY after exceeding maxPayload")
	}
	p, err := bp.Drain(now)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(p.Payload()) != maxPayload {
		t.Fatalf("drained payload len = %d, want %d", len(p.Payload()), maxPayload)
	}
	if bp.Ready() {
		t.Fatal("accumulator should not be READY immediately after Drain unless overflow alone exceeds maxPayload")
	}
}

func TestBufferedFlushByTime(t *testing.T) {
	bp := NewBuffered(DataFromInstrument, 4096, 40*time.Millisecond, nil)
	start := Timestamp{Seconds: 2000}
	bp.Push([]byte{0x7F}, start)

	if bp.Ready() {
		t.Fatal("should not be ready immediately")
	}

	later := FromUnix(start.Unix().Add(41 * time.Millisecond))

	if ready := bp.Tick(later); !ready {
		t.Fatal("expected Tick to flip to READY after flushTimeout elapsed")
	}

	p, err := bp.Drain(later)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(p.Payload()) != 1 || p.Payload()[0] != 0x7F {
		t.Fatalf("unexpected drained payload: %v", p.Payload())
	}
	if p.Timestamp() != start {
		t.Fatalf("drained packet timestamp = %+v, want first-byte time %+v", p.Timestamp(), start)
	}
}

func TestBufferedFlushBySentinel(t *testing.T) {
	sentinel := []byte("\r\n")
	bp := NewBuffered(DataFromInstrument, 4096, time.Hour, sentinel)
	now := Timestamp{Seconds: 3000}

	bp.Push([]byte("partial"), now)
	if bp.Ready() {
		t.Fatal("should not be ready before sentinel observed")
	}
	bp.Push([]byte(" line\r\n"), now)
	if !bp.Ready() {
		t.Fatal("expected sentinel suffix to trigger READY")
	}
	p, err := bp.Drain(now)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if string(p.Payload()) != "partial line\r\n" {
		t.Fatalf("unexpected payload %q", p.Payload())
	}
}

func TestBufferedRetainsOverflow(t *testing.T) {
	bp := NewBuffered(DataFromInstrument, 4, time.Hour, nil)
	now := Timestamp{Seconds: 4000}
	bp.Push([]byte{1, 2, 3, 4, 5, 6}, now)

	p, err := bp.Drain(now)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if len(p.Payload()) != 4 {
		t.Fatalf("expected first drain to carry 4 bytes, got %d", len(p.Payload()))
	}

	later := FromUnix(now.Unix().Add(time.Millisecond))
	if bp.Tick(later) {
		t.Fatal("two leftover bytes should not be READY immediately after the prior drain")
	}
}
