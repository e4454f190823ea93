package publish

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
	"io"

	"github.com/deverett/port-agent/packet"
	"github.com/google/uuid"
)

/*Kind tags which of the six sink varieties a Publisher is.*/
type Kind int

const (
	KindDriverData Kind = iota
	KindDriverCommand
	KindInstrumentData
	KindInstrumentCommand
	KindLogFile
	KindTCPDataListener
)

/*Publisher is a non-owning handle to one sink. It accepts a fixed set of
PacketTypes; publishing a type outside that set is a no-op success, never
an I/O operation.*/
type Publisher interface {
	Kind() Kind
	Accepts(t packet.Type) bool
	Publish(p *packet.Packet) error
}

// sink is the minimal write surface every non-logfile publisher needs.
// transport.Conn satisfies it; so does anything else with a Write(b
// []byte) (int, error) method, which keeps this package from importing
// transport just to name a type.
type sink interface {
	Write(b []byte) (int, error)
}

// identifiable is implemented by the publisher kinds that front a driver
// socket, where more than one instance of the same Kind can be live at
// once (two driver-data sockets, say) and log
// lines need a way to tell them apart. identifiable publishers carry a
// uuid.UUID set once at construction.
type identifiable interface {
	PublisherID() uuid.UUID
}

func accepts(set map[packet.Type]bool, t packet.Type) bool {
	return set[t]
}

/*DriverDataPublisher writes raw packet bytes to a driver's data socket.
Accepts DATA_FROM_INSTRUMENT, DATA_FROM_RSN, PORT_AGENT_STATUS,
PORT_AGENT_FAULT, PORT_AGENT_HEARTBEAT.*/
type DriverDataPublisher struct {
	ID   uuid.UUID
	Sink sink
}

var driverDataAccepts = map[packet.Type]bool{
	packet.DataFromInstrument: true,
	packet.DataFromRSN:        true,
	packet.PortAgentStatus:    true,
	packet.PortAgentFault:     true,
	packet.PortAgentHeartbeat: true,
}

func NewDriverDataPublisher(s sink) *DriverDataPublisher {
	return &DriverDataPublisher{ID: uuid.New(), Sink: s}
}

func (p *DriverDataPublisher) PublisherID() uuid.UUID { return p.ID }

func (p *DriverDataPublisher) Kind() Kind                  { return KindDriverData }
func (p *DriverDataPublisher) Accepts(t packet.Type) bool  { return accepts(driverDataAccepts, t) }
func (p *DriverDataPublisher) Publish(pk *packet.Packet) error {
	if !p.Accepts(pk.Type()) {
		return nil
	}
	_, err := p.Sink.Write(pk.Bytes())
	return err
}

/*DriverCommandPublisher writes command responses and status to a driver's
command socket. Accepts PORT_AGENT_COMMAND, PORT_AGENT_STATUS,
PORT_AGENT_FAULT.*/
type DriverCommandPublisher struct {
	ID   uuid.UUID
	Sink sink
}

var driverCommandAccepts = map[packet.Type]bool{
	packet.PortAgentCommand: true,
	packet.PortAgentStatus:  true,
	packet.PortAgentFault:   true,
}

func NewDriverCommandPublisher(s sink) *DriverCommandPublisher {
	return &DriverCommandPublisher{ID: uuid.New(), Sink: s}
}

func (p *DriverCommandPublisher) PublisherID() uuid.UUID { return p.ID }

func (p *DriverCommandPublisher) Kind() Kind                 { return KindDriverCommand }
func (p *DriverCommandPublisher) Accepts(t packet.Type) bool { return accepts(driverCommandAccepts, t) }
func (p *DriverCommandPublisher) Publish(pk *packet.Packet) error {
	if !p.Accepts(pk.Type()) {
		return nil
	}
	_, err := p.Sink.Write(pk.Bytes())
	return err
}

/*InstrumentDataPublisher forwards driver-originated data to the
instrument. Accepts only DATA_FROM_DRIVER.*/
type InstrumentDataPublisher struct {
	Sink sink
}

func NewInstrumentDataPublisher(s sink) *InstrumentDataPublisher {
	return &InstrumentDataPublisher{Sink: s}
}

func (p *InstrumentDataPublisher) Kind() Kind { return KindInstrumentData }
func (p *InstrumentDataPublisher) Accepts(t packet.Type) bool {
	return t == packet.DataFromDriver
}
func (p *InstrumentDataPublisher) Publish(pk *packet.Packet) error {
	if !p.Accepts(pk.Type()) {
		return nil
	}
	_, err := p.Sink.Write(pk.Payload())
	return err
}

/*InstrumentCommandPublisher forwards commands to the instrument's command
channel. Accepts only INSTRUMENT_COMMAND.*/
type InstrumentCommandPublisher struct {
	Sink sink
}

func NewInstrumentCommandPublisher(s sink) *InstrumentCommandPublisher {
	return &InstrumentCommandPublisher{Sink: s}
}

func (p *InstrumentCommandPublisher) Kind() Kind { return KindInstrumentCommand }
func (p *InstrumentCommandPublisher) Accepts(t packet.Type) bool {
	return t == packet.InstrumentCommand
}
func (p *InstrumentCommandPublisher) Publish(pk *packet.Packet) error {
	if !p.Accepts(pk.Type()) {
		return nil
	}
	_, err := p.Sink.Write(pk.Payload())
	return err
}

/*LogFilePublisher writes every packet type to a local log file in its
ASCII projection.*/
type LogFilePublisher struct {
	File io.Writer
}

func NewLogFilePublisher(w io.Writer) *LogFilePublisher {
	return &LogFilePublisher{File: w}
}

func (p *LogFilePublisher) Kind() Kind                { return KindLogFile }
func (p *LogFilePublisher) Accepts(t packet.Type) bool { return true }
func (p *LogFilePublisher) Publish(pk *packet.Packet) error {
	_, err := p.File.Write([]byte(pk.ASCII()))
	return err
}

/*TCPDataListenerPublisher mirrors DriverDataPublisher but is bound to the
agent's data-port listener rather than a generic sink handle, so the
publisher list can tell listener-backed publishers apart from the command
port's in its log lines. It accepts the same types
as DriverDataPublisher.*/
type TCPDataListenerPublisher struct {
	ID   uuid.UUID
	Sink sink
}

func NewTCPDataListenerPublisher(s sink) *TCPDataListenerPublisher {
	return &TCPDataListenerPublisher{ID: uuid.New(), Sink: s}
}

func (p *TCPDataListenerPublisher) PublisherID() uuid.UUID { return p.ID }

func (p *TCPDataListenerPublisher) Kind() Kind { return KindTCPDataListener }
func (p *TCPDataListenerPublisher) Accepts(t packet.Type) bool {
	return accepts(driverDataAccepts, t)
}
func (p *TCPDataListenerPublisher) Publish(pk *packet.Packet) error {
	if !p.Accepts(pk.Type()) {
		return nil
	}
	_, err := p.Sink.Write(pk.Bytes())
	return err
}
