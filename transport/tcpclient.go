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
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var _ Conn = &TCPClient{}

/*TCPClient is an outbound, non-blocking TCP socket: dialing happens
asynchronously (mirroring a non-blocking connect() that returns
EINPROGRESS), and every Read/Write call
carries a short per-call deadline so a caller on the event loop never
blocks waiting on the kernel. A read deadline expiry is reported as "no
data" (0, nil) rather than as an error, so a caller can poll a quiet socket;
a write deadline expiry is reported as a timeout SockError (see Write).*/
type TCPClient struct {
	host, port string

	mux       sync.Mutex
	conn      net.Conn
	connected bool
	dialErr   error

	rwTimeout time.Duration
}

/*DialTCP starts a non-blocking connection attempt to host:port. It returns
immediately; the caller polls Connected() to learn when the kernel confirms
the connection (or DialErr() to learn why it failed). timeout bounds how
long the background dial attempt itself is allowed to take.*/
func DialTCP(ctx context.Context, host, port string, timeout time.Duration) (*TCPClient, error) {
	if host == "" || port == "" {
		return nil, errors.Wrap(ErrSocketMissingConfig, "host and port are required")
	}
	c := &TCPClient{host: host, port: port, rwTimeout: time.Millisecond}
	c.connectAsync(ctx, timeout)
	return c, nil
}

func (c *TCPClient) connectAsync(ctx context.Context, timeout time.Duration) {
	go func() {
		dialer := net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(c.host, c.port))
		c.mux.Lock()
		defer c.mux.Unlock()
		if err != nil {
			c.dialErr = errors.Wrapf(ErrSocketConnectFailure, "dial %s:%s: %v", c.host, c.port, err)
			return
		}
		c.conn = conn
		c.connected = true
	}()
}

/*String implements fmt.Stringer.*/
func (c *TCPClient) String() string {
	return fmt.Sprintf("tcp connection to %s:%s", c.host, c.port)
}

/*Connected reports whether the kernel has confirmed the connection.*/
func (c *TCPClient) Connected() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.connected
}

/*DialErr returns the error from the most recent failed connect attempt, if
any.*/
func (c *TCPClient) DialErr() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.dialErr
}

/*Read returns 0, nil on no-data/deadline-expired (the non-blocking "EAGAIN"
case), n > 0 on success, and disconnects the socket on EOF or any other
fatal error.*/
func (c *TCPClient) Read(b []byte) (int, error) {
	c.mux.Lock()
	conn := c.conn
	connected := c.connected
	c.mux.Unlock()
	if !connected || conn == nil {
		return 0, nil
	}

	conn.SetReadDeadline(time.Now().Add(c.rwTimeout))
	n, err := conn.Read(b)
	if err == nil {
		return n, nil
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return n, nil
	}
	c.disconnect()
	return n, NewSockError(false, false, err)
}

/*Write returns a timeout SockError (without disconnecting) on a transient
deadline expiry, (n, nil) on success, and disconnects the socket on any
fatal error. A timeout is deliberately reported as an error rather than as
(n, nil): a caller that can't tell "no bytes accepted this tick" apart from
"wrote successfully" has no way to retry, which is exactly the EAGAIN
behavior write_data must preserve.*/
func (c *TCPClient) Write(b []byte) (int, error) {
	c.mux.Lock()
	conn := c.conn
	connected := c.connected
	c.mux.Unlock()
	if !connected || conn == nil {
		return 0, nil
	}

	conn.SetWriteDeadline(time.Now().Add(c.rwTimeout))
	n, err := conn.Write(b)
	if err == nil {
		return n, nil
	}
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return n, NewSockError(true, true, err)
	}
	c.disconnect()
	return n, NewSockError(false, false, err)
}

/*Close closes the underlying connection, if any.*/
func (c *TCPClient) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.closeLocked()
}

func (c *TCPClient) disconnect() {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.closeLocked()
}

func (c *TCPClient) closeLocked() error {
	c.connected = false
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
