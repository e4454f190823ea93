package packet

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
	"time"
)

// ntpEpochOffset is the number of seconds between the NTP epoch (1 Jan 1900
// UTC) and the Unix epoch (1 Jan 1970 UTC).
const ntpEpochOffset = 2208988800

/*Timestamp is the wire-format NTP-style timestamp used in every packet
header: a 32-bit seconds-since-1900 field and a 32-bit fractional-second
field in units of 1/2^32 s.*/
type Timestamp struct {
	Seconds uint32
	Frac    uint32
}

/*Now returns the current wall-clock time as a Timestamp.*/
func Now() Timestamp {
	return FromUnix(time.Now())
}

/*FromUnix converts a time.Time to the NTP-epoch Timestamp used on the wire.*/
func FromUnix(t time.Time) Timestamp {
	secs := t.Unix() + ntpEpochOffset
	frac := uint32((uint64(t.Nanosecond()) << 32) / 1e9)
	return Timestamp{Seconds: uint32(secs), Frac: frac}
}

/*Unix converts a Timestamp back to a time.Time in the Unix epoch.*/
func (ts Timestamp) Unix() time.Time {
	secs := int64(ts.Seconds) - ntpEpochOffset
	nsec := (int64(ts.Frac) * 1e9) >> 32
	return time.Unix(secs, nsec).UTC()
}

/*Sub returns the duration ts - other, with sub-second resolution recovered
from the fractional fields.*/
func (ts Timestamp) Sub(other Timestamp) time.Duration {
	return ts.Unix().Sub(other.Unix())
}

/*String renders the timestamp as "SSSSSSSS.FFFF", the form used in the
ASCII log projection of a packet.*/
func (ts Timestamp) String() string {
	return fmt.Sprintf("%d.%04d", ts.Seconds, (uint64(ts.Frac)*10000)>>32)
}
