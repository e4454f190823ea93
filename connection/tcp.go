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
	"sync"
	"time"

	"github.com/deverett/port-agent/transport"
	"github.com/pkg/errors"
)

var _ Connection = &TCPInstrument{}

/*TCPInstrument is a plain TCP-attached instrument: a single outbound data
socket, no command channel.*/
type TCPInstrument struct {
	mux   sync.Mutex
	host  string
	port  string
	state State
	data  *transport.TCPClient
}

/*NewTCPInstrument returns an UNCONFIGURED TCPInstrument. Configure must be
called before Initialize.*/
func NewTCPInstrument() *TCPInstrument {
	return &TCPInstrument{state: Unconfigured}
}

/*Configure records the instrument's host and port, transitioning
UNCONFIGURED -> CONFIGURED once both are set.*/
func (c *TCPInstrument) Configure(host, port string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.host, c.port = host, port
	if c.host != "" && c.port != "" && c.state == Unconfigured {
		c.state = Configured
	}
}

func (c *TCPInstrument) Kind() Kind { return KindTCP }

func (c *TCPInstrument) State() State {
	c.advance()
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

func (c *TCPInstrument) Configured() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.host != "" && c.port != ""
}

func (c *TCPInstrument) Initialized() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.data != nil
}

func (c *TCPInstrument) Connected() bool {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	return data != nil && data.Connected()
}

/*Initialize opens the data socket and moves the state machine to
INITIALIZING; once the connect succeeds, the next State or ReadData call
observes it and advances the state machine to READY.*/
func (c *TCPInstrument) Initialize(ctx context.Context) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.host == "" || c.port == "" {
		return errors.New("connection: TCPInstrument not configured")
	}
	client, err := transport.DialTCP(ctx, c.host, c.port, 5*time.Second)
	if err != nil {
		c.state = Disconnected
		return err
	}
	c.data = client
	c.state = Initializing
	return nil
}

/*Disconnect closes the data socket and returns to DISCONNECTED, from which
the port-agent core will retry Initialize on a later tick.*/
func (c *TCPInstrument) Disconnect() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = Disconnected
	if c.data == nil {
		return nil
	}
	err := c.data.Close()
	c.data = nil
	return err
}

func (c *TCPInstrument) ReadData(buf []byte) (int, error) {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	if data == nil {
		return 0, nil
	}
	n, err := data.Read(buf)
	c.advance()
	return n, err
}

func (c *TCPInstrument) WriteData(b []byte) bool {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	if data == nil {
		return false
	}
	_, err := data.Write(b)
	return err == nil
}

// advance promotes INITIALIZING to READY once the kernel has confirmed the
// connect, and demotes to DISCONNECTED if the socket has dropped out from
// under a READY connection.
func (c *TCPInstrument) advance() {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.data == nil {
		return
	}
	switch c.state {
	case Initializing:
		if c.data.Connected() {
			c.state = Ready
		}
	case Ready:
		if !c.data.Connected() {
			c.state = Disconnected
		}
	}
}

/*Reconfigure mutates host or port in place. If the connection was already
connected and host or port changed, it forces an immediate
disconnect-and-reinitialize cycle; otherwise the new values are recorded
silently and picked up on the next Initialize.*/
func (c *TCPInstrument) Reconfigure(ctx context.Context, host, port string) error {
	c.mux.Lock()
	changed := c.host != host || c.port != port
	c.mux.Unlock()
	wasConnected := c.Connected()
	c.Configure(host, port)
	if !wasConnected || !changed {
		return nil
	}
	if err := c.Disconnect(); err != nil {
		return err
	}
	c.mux.Lock()
	c.state = Configured
	c.mux.Unlock()
	return c.Initialize(ctx)
}
