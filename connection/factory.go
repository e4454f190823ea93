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

// New dispatches on kind to produce a fresh UNCONFIGURED Connection of the
// matching variant. Configure must be called before Initialize; the
// argument count and meaning of Configure differ by kind, so callers
// dispatch on kind a second time to call the right Configure overload.
func New(kind Kind) Connection {
	switch kind {
	case KindTCP:
		return NewTCPInstrument()
	case KindSerial:
		return NewSerialInstrument()
	case KindRSN:
		return NewRSNInstrument()
	case KindBotpt:
		return NewBotptInstrument()
	default:
		return NewTCPInstrument()
	}
}
