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

import "context"

/*State is the shared state every Connection variant moves through.*/
type State int

const (
	Unconfigured State = iota
	Configured
	Initializing
	Ready
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "UNCONFIGURED"
	case Configured:
		return "CONFIGURED"
	case Initializing:
		return "INITIALIZING"
	case Ready:
		return "READY"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

/*Kind tags which of the four Connection variants a config record
describes.*/
type Kind int

const (
	KindTCP Kind = iota
	KindSerial
	KindRSN
	KindBotpt
)

/*Connection is implemented by all four instrument attachment variants:
TCPInstrument, SerialInstrument, RSNInstrument, BotptInstrument.*/
type Connection interface {
	Kind() Kind
	State() State
	Configured() bool
	Initialized() bool
	Connected() bool

	Initialize(ctx context.Context) error
	Disconnect() error

	// ReadData reads instrument bytes into buf, returning the number read.
	// Zero, nil means no data was available this tick, not an error.
	ReadData(buf []byte) (int, error)

	// WriteData writes b to the instrument, returning true only if the
	// underlying socket accepted the write this call. A transient write
	// timeout and a fatal write error both return false, and the caller
	// handles both the same way: retry next tick. A fatal error
	// additionally drops the connection, so a false that persists past
	// one tick shows up as State() moving to DISCONNECTED.
	WriteData(b []byte) bool
}

/*Commander is implemented by the command-capable variants (RSN, botpt,
serial): anything that can inject a break or a raw command sequence to the
instrument's command channel.*/
type Commander interface {
	SendBreak(ms int) error
	SendCommand(b []byte) error
}
