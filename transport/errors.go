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

import "github.com/pkg/errors"

// Setup-time errors. Unlike steady-state socket errors (surfaced through
// SockError below), these are fatal and propagate straight up to the
// caller attempting to construct a transport.
var (
	ErrSocketMissingConfig  = errors.New("transport: missing socket configuration")
	ErrSocketCreateFailure  = errors.New("transport: unable to create socket")
	ErrSocketHostFailure    = errors.New("transport: unable to resolve host")
	ErrSocketConnectFailure = errors.New("transport: unable to connect")
)

/*SockError wraps a steady-state I/O error with the timeout/temporary
classification callers need to decide whether to retry or disconnect.*/
type SockError struct {
	timeout   bool
	temporary bool
	err       error
}

/*NewSockError builds a SockError classifying err as a timeout and/or a
temporary condition.*/
func NewSockError(timeout, temporary bool, err error) error {
	if err == nil {
		return nil
	}
	return &SockError{timeout: timeout, temporary: temporary, err: err}
}

func (e *SockError) Error() string   { return e.err.Error() }
func (e *SockError) Unwrap() error   { return e.err }
func (e *SockError) Timeout() bool   { return e.timeout }
func (e *SockError) Temporary() bool { return e.temporary }

/*IsTimeout reports whether err (or anything it wraps) is a net.Error that
classifies itself as a timeout. It panics on a nil error.*/
func IsTimeout(err error) bool {
	if err == nil {
		panic("transport: IsTimeout called with a nil error")
	}
	if nerr, ok := err.(interface{ Timeout() bool }); ok {
		return nerr.Timeout()
	}
	return false
}

/*IsTemporary reports whether err (or anything it wraps) is a net.Error
that classifies itself as temporary. It panics on a nil error.*/
func IsTemporary(err error) bool {
	if err == nil {
		panic("transport: IsTemporary called with a nil error")
	}
	if nerr, ok := err.(interface{ Temporary() bool }); ok {
		return nerr.Temporary()
	}
	return false
}
