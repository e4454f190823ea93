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
	"net"
	"testing"
	"time"
)

func TestTCPListenerReplacesPriorPeer(t *testing.T) {
	ln, err := Bind(0)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	defer ln.Close()

	addr := ln.ln.Addr().String()

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()

	waitForPeer(t, ln)

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()

	time.Sleep(50 * time.Millisecond) // give the accept loop time to install the second peer

	buf := make([]byte, 16)
	first.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, err := first.Read(buf); err == nil {
		t.Error("expected the first peer's connection to be closed once a second peer connects")
	}
}

func waitForPeer(t *testing.T, ln *TCPListener) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ln.Peer() != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("listener never accepted a peer")
}
