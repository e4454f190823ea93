package config

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
	"fmt"
	"time"

	"github.com/deverett/port-agent/connection"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

// ErrConfigInvalid is returned when a Config fails validation (instrument
// type unset, a required port missing, etc).
var ErrConfigInvalid = errors.New("config: invalid configuration")

/*Config is the port agent's full runtime configuration record: every field
the command language of the config port can mutate, plus the serial device
path and baud rate a serial instrument needs (carried in
InstrumentDataHost/InstrumentDataPort for that instrument type, since the
command language has no dedicated serial fields).*/
type Config struct {
	InstrumentType        connection.Kind
	InstrumentDataHost    string
	InstrumentDataPort    int
	InstrumentCommandPort int

	DataPort    int
	CommandPort int
	SnifferPort int

	LogDir            string
	HeartbeatInterval time.Duration
	MaxPacketSize     int

	PIDFile string
}

/*Default returns a Config with the same defaults the port agent ships
with: a 15s heartbeat and a 4096-byte max packet size.*/
func Default() *Config {
	return &Config{
		InstrumentType:    connection.KindTCP,
		HeartbeatInterval: 15 * time.Second,
		MaxPacketSize:     4096,
		PIDFile:           "/var/run/port_agent.pid",
	}
}

/*Clone returns a deep copy, safe for a caller to mutate independently of
the original.*/
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

/*Validate reports whether c has enough fields set to initialize a
Connection and bind the agent's listeners.*/
func (c *Config) Validate() error {
	if c.InstrumentDataHost == "" || c.InstrumentDataPort == 0 {
		return errors.Wrap(ErrConfigInvalid, "instrument_data_host and instrument_data_port are required")
	}
	if c.InstrumentType == connection.KindRSN || c.InstrumentType == connection.KindBotpt {
		if c.InstrumentCommandPort == 0 {
			return errors.Wrap(ErrConfigInvalid, "instrument_command_port is required for rsn and botpt instruments")
		}
	}
	if c.DataPort == 0 || c.CommandPort == 0 {
		return errors.Wrap(ErrConfigInvalid, "data_port and command_port are required")
	}
	if c.MaxPacketSize <= 0 {
		return errors.Wrap(ErrConfigInvalid, "max_packet_size must be positive")
	}
	return nil
}

func instrumentTypeName(k connection.Kind) string {
	switch k {
	case connection.KindTCP:
		return "tcp"
	case connection.KindSerial:
		return "serial"
	case connection.KindRSN:
		return "rsn"
	case connection.KindBotpt:
		return "botpt"
	default:
		return "unknown"
	}
}

/*String renders every field as a two-column table, the same pretty-print
idiom this repository uses for packet dumps.*/
func (c *Config) String() string {
	buf := &bytes.Buffer{}
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetHeader([]string{"Field", "Value"})
	rows := [][2]string{
		{"instrument_type", instrumentTypeName(c.InstrumentType)},
		{"instrument_data_host", c.InstrumentDataHost},
		{"instrument_data_port", fmt.Sprintf("%d", c.InstrumentDataPort)},
		{"instrument_command_port", fmt.Sprintf("%d", c.InstrumentCommandPort)},
		{"data_port", fmt.Sprintf("%d", c.DataPort)},
		{"command_port", fmt.Sprintf("%d", c.CommandPort)},
		{"sniffer_port", fmt.Sprintf("%d", c.SnifferPort)},
		{"log_dir", c.LogDir},
		{"heartbeat_interval", c.HeartbeatInterval.String()},
		{"max_packet_size", fmt.Sprintf("%d", c.MaxPacketSize)},
	}
	for _, r := range rows {
		tw.Append([]string{r[0], r[1]})
	}
	tw.Render()
	return buf.String()
}
