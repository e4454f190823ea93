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

var _ Connection = &SerialInstrument{}
var _ Commander = &SerialInstrument{}

/*SerialInstrument is a serial-attached instrument: one serial port doubles
as both the data and command channel.*/
type SerialInstrument struct {
	mux    sync.Mutex
	device string
	baud   int
	state  State
	port   *transport.SerialConn
}

/*NewSerialInstrument returns an UNCONFIGURED SerialInstrument.*/
func NewSerialInstrument() *SerialInstrument {
	return &SerialInstrument{state: Unconfigured}
}

/*Configure records the device path and baud rate.*/
func (c *SerialInstrument) Configure(device string, baud int) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.device, c.baud = device, baud
	if c.device != "" && c.baud > 0 && c.state == Unconfigured {
		c.state = Configured
	}
}

func (c *SerialInstrument) Kind() Kind { return KindSerial }

func (c *SerialInstrument) State() State {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

func (c *SerialInstrument) Configured() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.device != "" && c.baud > 0
}

func (c *SerialInstrument) Initialized() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.port != nil
}

func (c *SerialInstrument) Connected() bool {
	c.mux.Lock()
	port := c.port
	c.mux.Unlock()
	return port != nil && port.Connected()
}

/*Initialize opens the serial port. Unlike a TCP dial, a successful open()
is synchronous, so the state machine advances straight to READY.*/
func (c *SerialInstrument) Initialize(ctx context.Context) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.device == "" || c.baud <= 0 {
		return errors.New("connection: SerialInstrument not configured")
	}
	port, err := transport.OpenSerial(c.device, c.baud)
	if err != nil {
		c.state = Disconnected
		return err
	}
	c.port = port
	c.state = Ready
	return nil
}

func (c *SerialInstrument) Disconnect() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = Disconnected
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

func (c *SerialInstrument) ReadData(buf []byte) (int, error) {
	c.mux.Lock()
	port := c.port
	c.mux.Unlock()
	if port == nil {
		return 0, nil
	}
	n, err := port.Read(buf)
	if !port.Connected() {
		c.Disconnect()
	}
	return n, err
}

func (c *SerialInstrument) WriteData(b []byte) bool {
	c.mux.Lock()
	port := c.port
	c.mux.Unlock()
	if port == nil {
		return false
	}
	_, err := port.Write(b)
	return err == nil
}

/*SendBreak sends a break condition for ms milliseconds.*/
func (c *SerialInstrument) SendBreak(ms int) error {
	c.mux.Lock()
	port := c.port
	c.mux.Unlock()
	if port == nil {
		return errors.New("connection: serial port not initialized")
	}
	return port.SendBreak(time.Duration(ms) * time.Millisecond)
}

/*SendCommand writes a raw command sequence to the serial line.*/
func (c *SerialInstrument) SendCommand(b []byte) error {
	if !c.WriteData(b) {
		return errors.New("connection: failed to write command to serial port")
	}
	return nil
}
