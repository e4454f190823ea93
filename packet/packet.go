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
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// Wire layout constants, per the packet header table.
const (
	HeaderSize     = 16
	MaxPacketSize  = 65535
	MaxPayloadSize = MaxPacketSize - HeaderSize

	offSync      = 0
	offType      = 3
	offSize      = 4
	offChecksum  = 6
	offTimestamp = 8
)

// sync is the constant 3-byte sync sequence that opens every packet.
var sync = [3]byte{0xA3, 0x9D, 0x7A}

// ErrParamOutOfRange is returned by BuildRaw when the requested type or
// payload length cannot be represented on the wire.
var ErrParamOutOfRange = errors.New("packet: parameter out of range")

// ErrPacketMalformed is returned by FromWire when the sync bytes, declared
// size, or checksum of a candidate buffer do not check out.
var ErrPacketMalformed = errors.New("packet: malformed")

/*Type enumerates the kinds of packet this agent moves in either direction.*/
type Type uint8

const (
	Unknown Type = iota
	DataFromInstrument
	DataFromDriver
	PortAgentCommand
	PortAgentStatus
	PortAgentFault
	InstrumentCommand
	PortAgentHeartbeat
	DataFromRSN
)

var typeNames = map[Type]string{
	Unknown:            "UNKNOWN",
	DataFromInstrument: "DATA_FROM_INSTRUMENT",
	DataFromDriver:     "DATA_FROM_DRIVER",
	PortAgentCommand:   "PORT_AGENT_COMMAND",
	PortAgentStatus:    "PORT_AGENT_STATUS",
	PortAgentFault:     "PORT_AGENT_FAULT",
	InstrumentCommand:  "INSTRUMENT_COMMAND",
	PortAgentHeartbeat: "PORT_AGENT_HEARTBEAT",
	DataFromRSN:        "DATA_FROM_RSN",
}

/*String implements fmt.Stringer for Type.*/
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

/*Packet is an immutable, single-owner binary packet: a 16-byte header
followed by its payload, held in one contiguous buffer. Once built or
parsed, neither the header fields nor the payload may change; the buffer is
passed along the pipeline by pointer, never copied.*/
type Packet struct {
	raw []byte
}

/*BuildRaw allocates a new Packet of the given type, timestamp, and payload.
It fails with ErrParamOutOfRange if typ is Unknown or the payload is too
large to fit a 16-bit packet size.*/
func BuildRaw(typ Type, ts Timestamp, payload []byte) (*Packet, error) {
	if typ == Unknown {
		return nil, errors.Wrap(ErrParamOutOfRange, "packet type must not be UNKNOWN")
	}
	if len(payload) > MaxPayloadSize {
		return nil, errors.Wrapf(ErrParamOutOfRange, "payload of %d bytes exceeds max of %d", len(payload), MaxPayloadSize)
	}

	size := HeaderSize + len(payload)
	raw := make([]byte, size)
	copy(raw[offSync:offSync+3], sync[:])
	raw[offType] = byte(typ)
	binary.BigEndian.PutUint16(raw[offSize:offSize+2], uint16(size))
	binary.BigEndian.PutUint16(raw[offChecksum:offChecksum+2], 0)
	binary.BigEndian.PutUint32(raw[offTimestamp:offTimestamp+4], ts.Seconds)
	binary.BigEndian.PutUint32(raw[offTimestamp+4:offTimestamp+8], ts.Frac)
	copy(raw[HeaderSize:], payload)

	cksum := checksum(raw)
	binary.BigEndian.PutUint16(raw[offChecksum:offChecksum+2], cksum)

	return &Packet{raw: raw}, nil
}

/*FromWire parses and validates a buffer received off the wire, verifying
sync bytes, declared size, and checksum. It fails with ErrPacketMalformed if
any of those checks fail.*/
func FromWire(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, errors.Wrapf(ErrPacketMalformed, "buffer of %d bytes shorter than header", len(b))
	}
	if !bytes.Equal(b[offSync:offSync+3], sync[:]) {
		return nil, errors.Wrap(ErrPacketMalformed, "bad sync bytes")
	}
	size := int(binary.BigEndian.Uint16(b[offSize : offSize+2]))
	if size < HeaderSize || size > MaxPacketSize || size != len(b) {
		return nil, errors.Wrapf(ErrPacketMalformed, "declared size %d does not match buffer length %d", size, len(b))
	}

	want := binary.BigEndian.Uint16(b[offChecksum : offChecksum+2])
	if verifyChecksum(b) != want {
		return nil, errors.Wrap(ErrPacketMalformed, "checksum mismatch")
	}

	raw := make([]byte, size)
	copy(raw, b)
	return &Packet{raw: raw}, nil
}

/*FromWireRSN classifies an already-framed 16-byte-header blob produced by a
DIGI terminal server as a DATA_FROM_RSN packet. Per the open question in the
design notes, the checksum the DIGI computed is not known to agree with this
agent's algorithm, so a mismatch is not treated as malformed: the blob is
forwarded opaquely.*/
func FromWireRSN(b []byte) (*Packet, error) {
	if len(b) < HeaderSize {
		return nil, errors.Wrapf(ErrPacketMalformed, "buffer of %d bytes shorter than header", len(b))
	}
	size := int(binary.BigEndian.Uint16(b[offSize : offSize+2]))
	if size < HeaderSize || size > MaxPacketSize || size != len(b) {
		return nil, errors.Wrapf(ErrPacketMalformed, "declared size %d does not match buffer length %d", size, len(b))
	}
	raw := make([]byte, size)
	copy(raw, b)
	raw[offType] = byte(DataFromRSN)
	return &Packet{raw: raw}, nil
}

/*checksum computes the packet checksum with the checksum field itself
treated as zero, per the header table's algorithm.*/
func checksum(raw []byte) uint16 {
	var c uint16
	for i, b := range raw {
		if i == offChecksum || i == offChecksum+1 {
			continue
		}
		c ^= uint16(b)
	}
	return c
}

/*verifyChecksum recomputes the checksum of a received buffer exactly as
checksum does, skipping the stored checksum field; FromWire compares the
result against that stored field.*/
func verifyChecksum(raw []byte) uint16 {
	return checksum(raw)
}

/*Type returns the packet's declared type.*/
func (p *Packet) Type() Type {
	return Type(p.raw[offType])
}

/*Size returns the total packet size, header included.*/
func (p *Packet) Size() int {
	return len(p.raw)
}

/*Checksum returns the stored 16-bit checksum field.*/
func (p *Packet) Checksum() uint16 {
	return binary.BigEndian.Uint16(p.raw[offChecksum : offChecksum+2])
}

/*Timestamp returns the packet's header timestamp.*/
func (p *Packet) Timestamp() Timestamp {
	return Timestamp{
		Seconds: binary.BigEndian.Uint32(p.raw[offTimestamp : offTimestamp+4]),
		Frac:    binary.BigEndian.Uint32(p.raw[offTimestamp+4 : offTimestamp+8]),
	}
}

/*Bytes returns the packet's full wire representation, header and payload.
The caller must not modify the returned slice.*/
func (p *Packet) Bytes() []byte {
	return p.raw
}

/*Payload returns the packet's payload bytes. The caller must not modify
the returned slice.*/
func (p *Packet) Payload() []byte {
	return p.raw[HeaderSize:]
}

/*ASCII renders the packet in the log-file projection:
<port_agent_packet type="NAME" time="SSSSSSSS.FFFF">...payload...</port_agent_packet>\r\n*/
func (p *Packet) ASCII() string {
	return fmt.Sprintf("<port_agent_packet type=%q time=%q>%s</port_agent_packet>\r\n",
		p.Type().String(), p.Timestamp().String(), p.Payload())
}

/*String renders a human-readable dump of the packet's header fields.*/
func (p *Packet) String() string {
	buf := &bytes.Buffer{}
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Type", "Size", "Checksum", "Timestamp", "Payload Len"})
	tw.Append([]string{
		p.Type().String(),
		fmt.Sprintf("%d", p.Size()),
		fmt.Sprintf("0x%04X", p.Checksum()),
		p.Timestamp().String(),
		fmt.Sprintf("%d", len(p.Payload())),
	})
	tw.Render()
	return buf.String()
}
