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
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

var _ Conn = &SerialConn{}

/*SerialConn wraps a serial port in 8N1 mode using go.bug.st/serial, with
explicit device/baud fields supplied by config.Config rather than a
"serial://dev:baud" dial string.*/
type SerialConn struct {
	dev  string
	mode *serial.Mode

	mux  sync.Mutex
	conn serial.Port
}

/*OpenSerial opens dev at the given baud rate in 8N1 mode.*/
func OpenSerial(dev string, baud int) (*SerialConn, error) {
	if dev == "" || baud <= 0 {
		return nil, errors.Wrap(ErrSocketMissingConfig, "serial device and baud rate are required")
	}
	sc := &SerialConn{
		dev: dev,
		mode: &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
	}
	return sc, sc.open()
}

func (sc *SerialConn) open() error {
	sc.mux.Lock()
	defer sc.mux.Unlock()
	if sc.conn != nil {
		sc.conn.Close()
		sc.conn = nil
	}
	conn, err := serial.Open(sc.dev, sc.mode)
	if err != nil {
		return errors.Wrapf(ErrSocketCreateFailure, "unable to open serial device %q: %v", sc.dev, err)
	}
	sc.conn = conn
	return nil
}

/*String implements fmt.Stringer.*/
func (sc *SerialConn) String() string {
	return fmt.Sprintf("serial connection to %s:%d 8N1", sc.dev, sc.mode.BaudRate)
}

/*Connected reports whether the port is currently open.*/
func (sc *SerialConn) Connected() bool {
	sc.mux.Lock()
	defer sc.mux.Unlock()
	return sc.conn != nil
}

/*Read returns 0, nil if the port is not open; otherwise it delegates to
the underlying port, treating io.EOF (most likely a read timeout on a
serial line) as a non-fatal transient condition rather than disconnecting.*/
func (sc *SerialConn) Read(b []byte) (int, error) {
	sc.mux.Lock()
	conn := sc.conn
	sc.mux.Unlock()
	if conn == nil {
		return 0, nil
	}
	n, err := conn.Read(b)
	switch err {
	case nil:
		return n, nil
	case io.EOF:
		return n, NewSockError(true, true, err)
	default:
		sc.disconnect()
		return n, NewSockError(false, false, err)
	}
}

/*Write returns 0, nil if the port is not open; otherwise it delegates to
the underlying port with the same EOF-as-transient treatment as Read.*/
func (sc *SerialConn) Write(b []byte) (int, error) {
	sc.mux.Lock()
	conn := sc.conn
	sc.mux.Unlock()
	if conn == nil {
		return 0, nil
	}
	n, err := conn.Write(b)
	switch err {
	case nil:
		return n, nil
	case io.EOF:
		return n, NewSockError(true, true, err)
	default:
		sc.disconnect()
		return n, NewSockError(false, false, err)
	}
}

/*Close closes the serial port, if open.*/
func (sc *SerialConn) Close() error {
	sc.mux.Lock()
	defer sc.mux.Unlock()
	return sc.closeLocked()
}

func (sc *SerialConn) disconnect() {
	sc.mux.Lock()
	defer sc.mux.Unlock()
	sc.closeLocked()
}

func (sc *SerialConn) closeLocked() error {
	if sc.conn == nil {
		return nil
	}
	err := sc.conn.Close()
	sc.conn = nil
	return err
}

/*SendBreak sends a break condition on the line for the given duration.*/
func (sc *SerialConn) SendBreak(d time.Duration) error {
	sc.mux.Lock()
	conn := sc.conn
	sc.mux.Unlock()
	if conn == nil {
		return errors.New("transport: serial port not open")
	}
	return conn.Break(d)
}
