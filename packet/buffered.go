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
	"time"
)

// bufState mirrors the OPEN -> READY transition of a Buffered accumulator,
// dispatched as a plain tag rather than as separate interface types, per
// the design notes' preference for sum types over virtual dispatch.
type bufState int

const (
	bufOpen bufState = iota
	bufReady
)

/*Buffered accumulates streamed bytes into a single Raw Packet once one of
three conditions is met: the payload reaches maxPayload, the tail of the
payload matches sentinel, or flushTimeout has elapsed since the first byte
of the current packet arrived. It is a single-producer, single-consumer
type: Push and Tick must be called from the same goroutine that will call
Drain.*/
type Buffered struct {
	typ          Type
	maxPayload   int
	flushTimeout time.Duration
	sentinel     []byte

	state        bufState
	pending      bytes.Buffer
	firstByteAt  Timestamp
}

/*NewBuffered returns an empty, OPEN accumulator. sentinel may be nil to
disable the sentinel-boundary rule.*/
func NewBuffered(typ Type, maxPayload int, flushTimeout time.Duration, sentinel []byte) *Buffered {
	return &Buffered{
		typ:          typ,
		maxPayload:   maxPayload,
		flushTimeout: flushTimeout,
		sentinel:     sentinel,
		state:        bufOpen,
	}
}

/*Push appends b to the pending payload, recording now as the first-byte
time if the accumulator was empty, then evaluates the READY transitions in
the order mandated by the design: size, then sentinel, then timeout.*/
func (bp *Buffered) Push(b []byte, now Timestamp) {
	if bp.pending.Len() == 0 && len(b) > 0 {
		bp.firstByteAt = now
	}
	bp.pending.Write(b)
	bp.evaluate(now)
}

/*Tick re-evaluates only the timeout rule, so that a quiescent stream with
bytes already pending still flushes even absent further Push calls. It is
meant to be invoked once per event-loop iteration.*/
func (bp *Buffered) Tick(now Timestamp) bool {
	if bp.state == bufOpen && bp.pending.Len() > 0 && now.Sub(bp.firstByteAt) >= bp.flushTimeout {
		bp.state = bufReady
	}
	return bp.Ready()
}

func (bp *Buffered) evaluate(now Timestamp) {
	switch {
	case bp.pending.Len() >= bp.maxPayload:
		bp.state = bufReady
	case len(bp.sentinel) > 0 && bytes.HasSuffix(bp.pending.Bytes(), bp.sentinel):
		bp.state = bufReady
	case now.Sub(bp.firstByteAt) >= bp.flushTimeout:
		bp.state = bufReady
	}
}

/*Ready reports whether the accumulator has a packet ready to Drain.*/
func (bp *Buffered) Ready() bool {
	return bp.state == bufReady
}

/*Drain produces one Raw Packet from the pending payload (truncated to
maxPayload if the accumulator overshot it) and resets the accumulator to
OPEN, retaining any overflow bytes for the next packet. The emitted
packet's timestamp is the first-byte time of the drained payload, not the
time of the Drain call. now is the time at which the overflow bytes (if
any) are deemed to have arrived, so their own first-byte time is correct
rather than inherited from the packet just drained.*/
func (bp *Buffered) Drain(now Timestamp) (*Packet, error) {
	all := bp.pending.Bytes()
	n := len(all)
	if n > bp.maxPayload {
		n = bp.maxPayload
	}
	payload := make([]byte, n)
	copy(payload, all[:n])
	ts := bp.firstByteAt

	remainder := make([]byte, len(all)-n)
	copy(remainder, all[n:])

	bp.pending.Reset()
	bp.state = bufOpen
	if len(remainder) > 0 {
		bp.pending.Write(remainder)
		bp.firstByteAt = now
		bp.evaluate(now)
	}

	return BuildRaw(bp.typ, ts, payload)
}
