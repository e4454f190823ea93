package publish

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
	"errors"
	"testing"

	"github.com/deverett/port-agent/packet"
)

func TestListFansOutToEveryPublisher(t *testing.T) {
	l := NewList(nil)
	a, b := &recordingSink{}, &recordingSink{}
	l.Add(NewDriverDataPublisher(a))
	l.Add(NewDriverDataPublisher(b))

	pk, err := packet.BuildRaw(packet.DataFromInstrument, packet.Now(), []byte("x"))
	if err != nil {
		t.Fatalf("BuildRaw: %v", err)
	}
	l.Publish(pk)

	if len(a.written) != 1 || len(b.written) != 1 {
		t.Fatalf("expected both publishers to receive the packet, got %d and %d", len(a.written), len(b.written))
	}
}

func TestListRemoveStopsDelivery(t *testing.T) {
	l := NewList(nil)
	a := &recordingSink{}
	pub := NewDriverDataPublisher(a)
	l.Add(pub)
	l.Remove(pub)

	pk, _ := packet.BuildRaw(packet.DataFromInstrument, packet.Now(), []byte("x"))
	l.Publish(pk)

	if len(a.written) != 0 {
		t.Fatal("expected no delivery after Remove")
	}
	if l.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", l.Len())
	}
}

// TestListFailurePublishesFaultOnce exercises the fault re-publish path: a
// failing publisher's error is converted into a single PORT_AGENT_FAULT
// packet re-published to every publisher, and that fault packet is never
// itself re-faulted even though the failing publisher fails on it again.
func TestListFailurePublishesFaultOnce(t *testing.T) {
	l := NewList(nil)
	failing := &recordingSink{err: errors.New("connection reset")}
	l.Add(NewDriverDataPublisher(failing))

	logBuf := &bytes.Buffer{}
	l.Add(NewLogFilePublisher(logBuf))

	pk, _ := packet.BuildRaw(packet.DataFromInstrument, packet.Now(), []byte("x"))
	l.Publish(pk)

	// The log file publisher accepts everything, including the original
	// packet and the single fault that resulted from the failed write.
	if bytes.Count(logBuf.Bytes(), []byte("PORT_AGENT_FAULT")) != 1 {
		t.Fatalf("expected exactly one fault packet logged, log = %q", logBuf.String())
	}
}

func TestListEmitHeartbeat(t *testing.T) {
	l := NewList(nil)
	sink := &recordingSink{}
	l.Add(NewDriverDataPublisher(sink))

	l.EmitHeartbeat()

	if len(sink.written) != 1 {
		t.Fatalf("expected one heartbeat delivered, got %d", len(sink.written))
	}
	pk, err := packet.FromWire(sink.written[0])
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if pk.Type() != packet.PortAgentHeartbeat {
		t.Fatalf("type = %v, want PORT_AGENT_HEARTBEAT", pk.Type())
	}
}

func TestListEmitFault(t *testing.T) {
	l := NewList(nil)
	sink := &recordingSink{}
	l.Add(NewDriverDataPublisher(sink))

	l.EmitFault("instrument connection lost")

	if len(sink.written) != 1 {
		t.Fatalf("expected one fault delivered, got %d", len(sink.written))
	}
	pk, err := packet.FromWire(sink.written[0])
	if err != nil {
		t.Fatalf("FromWire: %v", err)
	}
	if pk.Type() != packet.PortAgentFault {
		t.Fatalf("type = %v, want PORT_AGENT_FAULT", pk.Type())
	}
	if !bytes.Contains(pk.Payload(), []byte("instrument connection lost")) {
		t.Fatalf("fault payload = %q, want it to contain the reason", pk.Payload())
	}
}
