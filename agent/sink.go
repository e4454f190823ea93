package agent

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
	"github.com/deverett/port-agent/connection"
	"github.com/deverett/port-agent/transport"
	"github.com/pkg/errors"
)

/*listenerSink adapts a transport.TCPListener to the publish package's
minimal sink interface: a write with no peer currently accepted is a
no-op success, since "zero drivers connected" is the normal idle state,
not a failure.*/
type listenerSink struct {
	ln *transport.TCPListener
}

func (s *listenerSink) Write(b []byte) (int, error) {
	peer := s.ln.Peer()
	if peer == nil {
		return 0, nil
	}
	return peer.Write(b)
}

/*instrumentSink adapts a connection.Connection's WriteData(b) bool to the
publish package's Write(b) (int, error) sink contract, so
InstrumentDataPublisher and InstrumentCommandPublisher can target it
without connection importing publish.*/
type instrumentSink struct {
	conn connection.Connection
}

func (s *instrumentSink) Write(b []byte) (int, error) {
	if s.conn.WriteData(b) {
		return len(b), nil
	}
	return 0, errors.New("agent: instrument write failed")
}

/*commandSink adapts a connection.Commander's SendCommand to the same
sink contract, for the instrument command channel of RSN/botpt/serial
connections.*/
type commandSink struct {
	cmd connection.Commander
}

func (s *commandSink) Write(b []byte) (int, error) {
	if err := s.cmd.SendCommand(b); err != nil {
		return 0, err
	}
	return len(b), nil
}
