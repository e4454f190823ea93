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

var _ Connection = &BotptInstrument{}
var _ Commander = &BotptInstrument{}

/*BotptInstrument is a dual-socket instrument like RSNInstrument but
without a DIGI in front of it: no banner/timestamping handshake gates
READY, since there is no terminal server dialogue to complete. Both
sockets are held open continuously once connected, unlike RSN's
open-per-command command channel.*/
type BotptInstrument struct {
	mux         sync.Mutex
	host        string
	dataPort    string
	commandPort string
	state       State
	data        *transport.TCPClient
	command     *transport.TCPClient
}

/*NewBotptInstrument returns an UNCONFIGURED BotptInstrument.*/
func NewBotptInstrument() *BotptInstrument {
	return &BotptInstrument{state: Unconfigured}
}

func (c *BotptInstrument) Configure(host, dataPort, commandPort string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.host, c.dataPort, c.commandPort = host, dataPort, commandPort
	if c.host != "" && c.dataPort != "" && c.commandPort != "" && c.state == Unconfigured {
		c.state = Configured
	}
}

func (c *BotptInstrument) Kind() Kind { return KindBotpt }

func (c *BotptInstrument) State() State {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

func (c *BotptInstrument) Configured() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.host != "" && c.dataPort != "" && c.commandPort != ""
}

func (c *BotptInstrument) Initialized() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.data != nil && c.command != nil
}

/*Connected reports both sockets connected, since — unlike RSN's on-demand
command channel — botpt holds both open continuously.*/
func (c *BotptInstrument) Connected() bool {
	c.mux.Lock()
	data, command := c.data, c.command
	c.mux.Unlock()
	return data != nil && data.Connected() && command != nil && command.Connected()
}

func (c *BotptInstrument) Initialize(ctx context.Context) error {
	c.mux.Lock()
	if c.host == "" || c.dataPort == "" || c.commandPort == "" {
		c.mux.Unlock()
		return errors.New("connection: BotptInstrument not configured")
	}
	host, dataPort, commandPort := c.host, c.dataPort, c.commandPort
	c.state = Initializing
	c.mux.Unlock()

	data, err := transport.DialTCP(ctx, host, dataPort, 5*time.Second)
	if err != nil {
		c.fail()
		return err
	}
	command, err := transport.DialTCP(ctx, host, commandPort, 5*time.Second)
	if err != nil {
		data.Close()
		c.fail()
		return err
	}

	waitUntilConnected(data, 5*time.Second)
	waitUntilConnected(command, 5*time.Second)
	if !data.Connected() || !command.Connected() {
		data.Close()
		command.Close()
		c.fail()
		return errors.New("connection: botpt sockets failed to connect")
	}

	c.mux.Lock()
	c.data, c.command = data, command
	c.state = Ready
	c.mux.Unlock()
	return nil
}

func (c *BotptInstrument) fail() {
	c.mux.Lock()
	c.state = Disconnected
	c.mux.Unlock()
}

func (c *BotptInstrument) Disconnect() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = Disconnected
	var err error
	if c.data != nil {
		err = c.data.Close()
		c.data = nil
	}
	if c.command != nil {
		if cerr := c.command.Close(); cerr != nil && err == nil {
			err = cerr
		}
		c.command = nil
	}
	return err
}

func (c *BotptInstrument) ReadData(buf []byte) (int, error) {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	if data == nil {
		return 0, nil
	}
	n, err := data.Read(buf)
	if err != nil || !data.Connected() {
		c.Disconnect()
	}
	return n, err
}

func (c *BotptInstrument) WriteData(b []byte) bool {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	if data == nil {
		return false
	}
	_, err := data.Write(b)
	return err == nil
}

func (c *BotptInstrument) SendBreak(ms int) error {
	c.mux.Lock()
	command := c.command
	c.mux.Unlock()
	if command == nil {
		return errors.New("connection: botpt command socket not initialized")
	}
	_, err := command.Write(nil)
	return err
}

func (c *BotptInstrument) SendCommand(b []byte) error {
	c.mux.Lock()
	command := c.command
	c.mux.Unlock()
	if command == nil {
		return errors.New("connection: botpt command socket not initialized")
	}
	_, err := command.Write(b)
	return err
}
