package transport

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

func TestTCPClientRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	echoServer(t, ln)

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := DialTCP(ctx, host, port, time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatalf("client never became connected: %v", c.DialErr())
	}
	_ = c.String()

	msg := []byte("a dead cow sings the blues")
	n, err := c.Write(msg)
	if err != nil || n != len(msg) {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	read := make([]byte, 1024)
	var total int
	deadline = time.Now().Add(2 * time.Second)
	for total < len(msg) && time.Now().Before(deadline) {
		n, err := c.Read(read[total:])
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		total += n
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	if total != len(msg) {
		t.Fatalf("read %d bytes, want %d", total, len(msg))
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if c.Connected() {
		t.Fatal("expected Connected() == false after Close")
	}
}

func TestDialTCPRequiresHostAndPort(t *testing.T) {
	if _, err := DialTCP(context.Background(), "", "4242", time.Millisecond); err == nil {
		t.Error("expected an error dialing with an empty host")
	}
}

// TestTCPClientWriteTimeoutDoesNotDisconnect drives a write past its
// deadline by never reading the peer side, and checks that Write reports a
// timeout SockError rather than (n, nil), and that the client stays
// Connected() afterward.
func TestTCPClientWriteTimeoutDoesNotDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := DialTCP(ctx, host, port, time.Second)
	if err != nil {
		t.Fatalf("DialTCP: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !c.Connected() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !c.Connected() {
		t.Fatalf("client never became connected: %v", c.DialErr())
	}

	select {
	case conn := <-accepted:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("server side never accepted")
	}

	chunk := make([]byte, 64*1024)
	var timeoutErr error
	for i := 0; i < 200; i++ {
		if _, err := c.Write(chunk); err != nil {
			timeoutErr = err
			break
		}
	}
	if timeoutErr == nil {
		t.Fatal("expected Write to eventually report a timeout once the peer stopped draining the socket")
	}
	if !IsTimeout(timeoutErr) {
		t.Fatalf("Write error = %v, want a timeout SockError", timeoutErr)
	}
	if !c.Connected() {
		t.Fatal("a transient write timeout should not disconnect the client")
	}
}
