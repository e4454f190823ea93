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
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

/*TCPListener binds one TCP port and accepts at most one peer at a time.
A second accept replaces the prior peer, closing it. The listen(2) backlog
is a parameter the Go runtime sets internally and does not expose past
net.Listen; accepting at most one peer at a time is enforced here
regardless of what the kernel queues.*/
type TCPListener struct {
	port int

	mux     sync.Mutex
	ln      net.Listener
	peer    *acceptedConn
	closeCh chan struct{}
}

/*Bind listens on port (with the runtime's default backlog; see
TCPListener) and starts an accept loop in the
background that installs each newly-accepted connection as the current
peer, closing whatever peer preceded it.*/
func Bind(port int) (*TCPListener, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, errors.Wrapf(ErrSocketCreateFailure, "bind :%d: %v", port, err)
	}
	t := &TCPListener{port: port, ln: ln, closeCh: make(chan struct{})}
	go t.acceptLoop()
	return t, nil
}

func (t *TCPListener) acceptLoop() {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			select {
			case <-t.closeCh:
				return
			default:
				continue
			}
		}
		t.installPeer(&acceptedConn{conn: conn})
	}
}

func (t *TCPListener) installPeer(ac *acceptedConn) {
	t.mux.Lock()
	prior := t.peer
	t.peer = ac
	t.mux.Unlock()
	if prior != nil {
		prior.Close()
	}
}

/*Peer returns the currently accepted connection, or nil if none has
connected yet.*/
func (t *TCPListener) Peer() Conn {
	t.mux.Lock()
	defer t.mux.Unlock()
	if t.peer == nil {
		return nil
	}
	return t.peer
}

/*Port returns the bound port.*/
func (t *TCPListener) Port() int { return t.port }

/*Close stops accepting new peers and closes the current one, if any.*/
func (t *TCPListener) Close() error {
	t.mux.Lock()
	defer t.mux.Unlock()
	select {
	case <-t.closeCh:
	default:
		close(t.closeCh)
	}
	if t.peer != nil {
		t.peer.Close()
		t.peer = nil
	}
	return t.ln.Close()
}

/*acceptedConn wraps one accepted net.Conn with the same non-blocking,
deadline-per-call discipline as TCPClient.*/
type acceptedConn struct {
	conn      net.Conn
	mux       sync.Mutex
	closed    bool
	rwTimeout time.Duration
}

var _ Conn = &acceptedConn{}

func (a *acceptedConn) String() string {
	return fmt.Sprintf("accepted connection from %s", a.conn.RemoteAddr())
}

func (a *acceptedConn) Connected() bool {
	a.mux.Lock()
	defer a.mux.Unlock()
	return !a.closed
}

func (a *acceptedConn) rwDeadline() time.Duration {
	if a.rwTimeout > 0 {
		return a.rwTimeout
	}
	return time.Millisecond
}

func (a *acceptedConn) Read(b []byte) (int, error) {
	if !a.Connected() {
		return 0, nil
	}
	a.conn.SetReadDeadline(time.Now().Add(a.rwDeadline()))
	n, err := a.conn.Read(b)
	if err == nil {
		return n, nil
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return n, nil
	}
	a.Close()
	return n, NewSockError(false, false, err)
}

// Write reports a transient write-deadline expiry as a timeout SockError,
// not as (n, nil): a peer whose receive buffer is momentarily full still
// has bytes outstanding, and a caller that can't distinguish that from a
// completed write has no way to retry it.
func (a *acceptedConn) Write(b []byte) (int, error) {
	if !a.Connected() {
		return 0, nil
	}
	a.conn.SetWriteDeadline(time.Now().Add(a.rwDeadline()))
	n, err := a.conn.Write(b)
	if err == nil {
		return n, nil
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return n, NewSockError(true, true, err)
	}
	a.Close()
	return n, NewSockError(false, false, err)
}

func (a *acceptedConn) Close() error {
	a.mux.Lock()
	defer a.mux.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.conn.Close()
}
