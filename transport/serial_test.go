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

import "testing"

func TestOpenSerialRejectsMissingConfig(t *testing.T) {
	if _, err := OpenSerial("", 9600); err == nil {
		t.Error("expected an error opening a serial device with an empty path")
	}
	if _, err := OpenSerial("/dev/ttyUSB0", 0); err == nil {
		t.Error("expected an error opening a serial device with a zero baud rate")
	}
}

func TestOpenSerialFailsOnUnknownDevice(t *testing.T) {
	// No real hardware is available in this environment; this exercises
	// the failure path, confirming setup-time I/O errors propagate rather
	// than get swallowed.
	if _, err := OpenSerial("/dev/this-device-does-not-exist", 9600); err == nil {
		t.Error("expected an error opening a non-existent serial device")
	}
}
