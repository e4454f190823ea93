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
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/deverett/port-agent/transport"
	"github.com/pkg/errors"
)

// The DIGI terminal server's banner and acknowledgement strings that gate
// the INITIALIZING -> READY transition for an RSN instrument.
const (
	digiBanner            = "OOI - Digi Command Interface\r\ntype help for command information\r\n"
	digiTimestampingCmd   = "timestamping 2\r\n"
	digiTimestampingAck   = "Set Timestamping:On(binary)\r\n\r\n"
	commandPollInterval   = 100 * time.Millisecond
	commandPollIterations = 30 // 30 * 100ms = 3s command response budget
	commandReadBufSize    = 1000
)

var _ Connection = &RSNInstrument{}
var _ Commander = &RSNInstrument{}

/*RSNInstrument is an instrument fronted by a DIGI terminal server: a data
socket held open continuously, and a command socket opened on demand per
command and closed immediately after that command's acknowledgement is
read. The only exception is the initial timestamping handshake, whose
command socket stays open until the ack is confirmed.*/
type RSNInstrument struct {
	mux             sync.Mutex
	host            string
	dataPort        string
	commandPort     string
	state           State
	data            *transport.TCPClient
	binaryTSOn      bool
	handshakeDone   bool
}

/*NewRSNInstrument returns an UNCONFIGURED RSNInstrument.*/
func NewRSNInstrument() *RSNInstrument {
	return &RSNInstrument{state: Unconfigured}
}

/*Configure records the shared host and the two ports.*/
func (c *RSNInstrument) Configure(host, dataPort, commandPort string) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.host, c.dataPort, c.commandPort = host, dataPort, commandPort
	if c.host != "" && c.dataPort != "" && c.commandPort != "" && c.state == Unconfigured {
		c.state = Configured
	}
}

func (c *RSNInstrument) Kind() Kind { return KindRSN }

func (c *RSNInstrument) State() State {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.state
}

func (c *RSNInstrument) Configured() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.host != "" && c.dataPort != "" && c.commandPort != ""
}

func (c *RSNInstrument) Initialized() bool {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.data != nil
}

/*Connected reports whether the data socket is connected and the
banner/timestamping handshake has completed. The command socket is
opened on demand and torn down between commands, so per the design notes'
resolution of the "dual RSN semantics" open question, it does not gate
Connected().*/
func (c *RSNInstrument) Connected() bool {
	c.mux.Lock()
	data := c.data
	handshakeDone := c.handshakeDone
	c.mux.Unlock()
	return data != nil && data.Connected() && handshakeDone
}

/*Initialize opens the data socket, then runs the banner/timestamping
handshake over a command socket opened for that purpose and closed once the
ack is confirmed.*/
func (c *RSNInstrument) Initialize(ctx context.Context) error {
	c.mux.Lock()
	if c.host == "" || c.dataPort == "" || c.commandPort == "" {
		c.mux.Unlock()
		return errors.New("connection: RSNInstrument not configured")
	}
	host, dataPort, commandPort := c.host, c.dataPort, c.commandPort
	c.state = Initializing
	c.handshakeDone = false
	c.mux.Unlock()

	data, err := transport.DialTCP(ctx, host, dataPort, 5*time.Second)
	if err != nil {
		c.fail()
		return err
	}

	waitUntilConnected(data, 5*time.Second)
	if !data.Connected() {
		data.Close()
		c.fail()
		return errors.New("connection: RSN data socket failed to connect")
	}

	c.mux.Lock()
	c.data = data
	c.mux.Unlock()

	if err := c.runHandshake(ctx, host, commandPort); err != nil {
		c.fail()
		return err
	}

	c.mux.Lock()
	c.handshakeDone = true
	c.binaryTSOn = true
	c.state = Ready
	c.mux.Unlock()
	return nil
}

func (c *RSNInstrument) fail() {
	c.mux.Lock()
	c.state = Disconnected
	c.mux.Unlock()
}

/*runHandshake opens the command socket, waits for the DIGI banner, sends
the "timestamping 2" command, waits for its ack, and only then closes the
command socket. This is the one documented exception to "open per command,
close after ack" — the handshake's socket stays open across the banner read
and the command/ack exchange.*/
func (c *RSNInstrument) runHandshake(ctx context.Context, host, commandPort string) error {
	cmd, err := transport.DialTCP(ctx, host, commandPort, 5*time.Second)
	if err != nil {
		return err
	}
	defer cmd.Close()

	waitUntilConnected(cmd, 5*time.Second)
	if !cmd.Connected() {
		return errors.New("connection: RSN command socket failed to connect")
	}

	if err := readCommandResponse(cmd, []byte(digiBanner)); err != nil {
		return errors.Wrap(err, "connection: did not receive DIGI banner")
	}

	if _, err := cmd.Write([]byte(digiTimestampingCmd)); err != nil {
		return errors.Wrap(err, "connection: unable to send timestamping command")
	}

	if err := readCommandResponse(cmd, []byte(digiTimestampingAck)); err != nil {
		return errors.Wrap(err, "connection: did not receive timestamping ack")
	}
	return nil
}

func (c *RSNInstrument) Disconnect() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.state = Disconnected
	c.handshakeDone = false
	if c.data == nil {
		return nil
	}
	err := c.data.Close()
	c.data = nil
	return err
}

func (c *RSNInstrument) ReadData(buf []byte) (int, error) {
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

func (c *RSNInstrument) WriteData(b []byte) bool {
	c.mux.Lock()
	data := c.data
	c.mux.Unlock()
	if data == nil {
		return false
	}
	_, err := data.Write(b)
	return err == nil
}

/*SendBreak opens the command socket on demand, issues a break, and closes
the socket again, per the RSN command discipline: not held open between
commands.*/
func (c *RSNInstrument) SendBreak(ms int) error {
	c.mux.Lock()
	host, commandPort := c.host, c.commandPort
	c.mux.Unlock()

	cmd, err := transport.DialTCP(context.Background(), host, commandPort, 5*time.Second)
	if err != nil {
		return err
	}
	defer cmd.Close()
	waitUntilConnected(cmd, 5*time.Second)
	if !cmd.Connected() {
		return errors.New("connection: RSN command socket failed to connect for break")
	}
	// A break is a line condition, not a byte sequence; writing a
	// zero-length payload after connect is this transport's stand-in
	// since transport.TCPClient has no raw line-break primitive.
	_, err = cmd.Write(nil)
	return err
}

/*SendCommand opens the command socket on demand, writes b, and closes the
socket — the same open-per-command discipline as the handshake, minus the
handshake's "stay open" exception. No response is read: the socket is
closed as soon as the write returns.*/
func (c *RSNInstrument) SendCommand(b []byte) error {
	c.mux.Lock()
	host, commandPort := c.host, c.commandPort
	c.mux.Unlock()

	cmd, err := transport.DialTCP(context.Background(), host, commandPort, 5*time.Second)
	if err != nil {
		return err
	}
	defer cmd.Close()
	waitUntilConnected(cmd, 5*time.Second)
	if !cmd.Connected() {
		return errors.New("connection: RSN command socket failed to connect")
	}
	if _, err := cmd.Write(b); err != nil {
		return err
	}
	return nil
}

/*Reconfigure applies the same runtime reconfiguration rule as the other
Connection kinds, adapted for RSN's three-argument Configure.*/
func (c *RSNInstrument) Reconfigure(ctx context.Context, host, dataPort, commandPort string) error {
	c.mux.Lock()
	changed := c.host != host || c.dataPort != dataPort || c.commandPort != commandPort
	c.mux.Unlock()
	wasConnected := c.Connected()
	c.Configure(host, dataPort, commandPort)
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

// waitUntilConnected polls a freshly-dialed TCPClient until it reports
// Connected() or the timeout elapses, since DialTCP itself returns
// immediately (the non-blocking "EINPROGRESS" connect contract).
func waitUntilConnected(c *transport.TCPClient, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Connected() || c.DialErr() != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

/*readCommandResponse polls the command socket up to commandPollIterations
times at commandPollInterval, accumulating the bytes it reads in
commandReadBufSize chunks, and declares success iff the first len(expected)
accumulated bytes equal expected byte-for-byte. Timeout or mismatch returns
failure with no retransmission.*/
func readCommandResponse(c *transport.TCPClient, expected []byte) error {
	var acc bytes.Buffer
	buf := make([]byte, commandReadBufSize)
	for i := 0; i < commandPollIterations; i++ {
		n, err := c.Read(buf)
		if err != nil {
			return err
		}
		if n > 0 {
			acc.Write(buf[:n])
			if acc.Len() >= len(expected) && bytes.Equal(acc.Bytes()[:len(expected)], expected) {
				return nil
			}
		}
		time.Sleep(commandPollInterval)
	}
	return errors.New("connection: command response timed out or did not match")
}
