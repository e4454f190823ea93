package connection

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
	"context"
	"net"
	"testing"
	"time"
)

func echoServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				buf := make([]byte, 1024)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					c.Write(buf[:n])
				}
			}(conn)
		}
	}()
}

func mustListen(t *testing.T) (net.Listener, string, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	return ln, host, port
}

func TestTCPInstrumentLifecycle(t *testing.T) {
	ln, host, port := mustListen(t)
	defer ln.Close()
	echoServer(t, ln)

	c := NewTCPInstrument()
	if c.Configured() {
		t.Fatal("should not be configured before Configure")
	}
	c.Configure(host, port)
	if !c.Configured() {
		t.Fatal("should be configured after Configure")
	}

	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		c.ReadData(make([]byte, 16)) // drives the advance() state check
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatal("never became connected")
	}
	if c.State() != Ready {
		t.Fatalf("state = %v, want READY", c.State())
	}
}

// TestConnectionReconfigRebindsPort exercises reconfiguring a connected TCP
// connection's port: it closes the prior socket and reconnects on the new
// one.
func TestConnectionReconfigRebindsPort(t *testing.T) {
	ln1, host, port1 := mustListen(t)
	defer ln1.Close()
	echoServer(t, ln1)

	ln2, _, port2 := mustListen(t)
	defer ln2.Close()
	echoServer(t, ln2)

	c := NewTCPInstrument()
	c.Configure(host, port1)
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		c.ReadData(make([]byte, 16))
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatal("never became connected on first port")
	}

	if err := c.Reconfigure(ctx, host, port2); err != nil {
		t.Fatalf("Reconfigure: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		c.ReadData(make([]byte, 16))
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatal("never reconnected on the new port")
	}
}

// TestWriteDataFalseOnBackpressureDoesNotDisconnect drives a connection into
// a write timeout by never draining the peer's socket, then checks that
// WriteData reports false without moving the connection out of READY: a
// transient deadline expiry must be retryable, not fatal.
func TestWriteDataFalseOnBackpressureDoesNotDisconnect(t *testing.T) {
	ln, host, port := mustListen(t)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	c := NewTCPInstrument()
	c.Configure(host, port)
	ctx := context.Background()
	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		c.ReadData(make([]byte, 16))
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatal("never became connected")
	}

	select {
	case conn := <-accepted:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("server side never accepted")
	}

	chunk := make([]byte, 64*1024)
	sawFalse := false
	for i := 0; i < 200; i++ {
		if !c.WriteData(chunk) {
			sawFalse = true
			break
		}
	}
	if !sawFalse {
		t.Fatal("expected WriteData to report false once the peer stopped draining the socket")
	}
	if c.State() != Ready {
		t.Fatalf("state = %v, want READY: a write timeout must not disconnect", c.State())
	}
	if !c.Connected() {
		t.Fatal("connection should still report Connected() after a transient write timeout")
	}
}
