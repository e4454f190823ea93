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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/deverett/port-agent/connection"
	"github.com/pkg/errors"
)

// ErrUnknownCommand is returned by ParseCommand for any line that is not
// one of the recognized config-port verbs.
var ErrUnknownCommand = errors.New("config: unknown command")

/*Verb names every recognized line of the config-port command language.*/
type Verb string

const (
	VerbInstrumentType        Verb = "instrument_type"
	VerbInstrumentDataPort    Verb = "instrument_data_port"
	VerbInstrumentCommandPort Verb = "instrument_command_port"
	VerbInstrumentDataHost    Verb = "instrument_data_host"
	VerbDataPort              Verb = "data_port"
	VerbCommandPort           Verb = "command_port"
	VerbSnifferPort           Verb = "sniffer_port"
	VerbLogDir                Verb = "log_dir"
	VerbHeartbeatInterval     Verb = "heartbeat_interval"
	VerbMaxPacketSize         Verb = "max_packet_size"
	VerbShutdown              Verb = "shutdown"
	VerbGet                   Verb = "get"
	VerbSave                  Verb = "save"
)

/*Command is one parsed line of the config-port command language: a verb
plus whatever arguments followed it.*/
type Command struct {
	Verb Verb
	Args []string
}

/*ParseCommand splits line into a Command. Leading/trailing whitespace is
tolerated; a blank line or an unrecognized verb is reported as
ErrUnknownCommand rather than silently ignored, since the caller replies
with a PORT_AGENT_FAULT for exactly that case.*/
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.Wrap(ErrUnknownCommand, "empty command")
	}
	verb := Verb(strings.ToLower(fields[0]))
	switch verb {
	case VerbInstrumentType, VerbInstrumentDataPort, VerbInstrumentCommandPort,
		VerbInstrumentDataHost, VerbDataPort, VerbCommandPort, VerbSnifferPort,
		VerbLogDir, VerbHeartbeatInterval, VerbMaxPacketSize, VerbShutdown,
		VerbGet, VerbSave:
		return Command{Verb: verb, Args: fields[1:]}, nil
	default:
		return Command{}, errors.Wrapf(ErrUnknownCommand, "%q", fields[0])
	}
}

func parseInstrumentType(s string) (connection.Kind, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return connection.KindTCP, nil
	case "serial":
		return connection.KindSerial, nil
	case "rsn":
		return connection.KindRSN, nil
	case "botpt":
		return connection.KindBotpt, nil
	default:
		return 0, errors.Wrapf(ErrConfigInvalid, "unknown instrument_type %q", s)
	}
}

/*Apply mutates cfg according to the command's verb and arguments. It only
handles the Config-mutating verbs (instrument_type through
max_packet_size); Shutdown, Get, and Save carry agent-level semantics
beyond a Config mutation and are handled by the caller after inspecting
c.Verb.*/
func (c Command) Apply(cfg *Config) error {
	arg := func(i int) (string, error) {
		if i >= len(c.Args) {
			return "", errors.Wrapf(ErrConfigInvalid, "%s requires an argument", c.Verb)
		}
		return c.Args[i], nil
	}
	atoi := func(i int) (int, error) {
		s, err := arg(i)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.Wrapf(ErrConfigInvalid, "%s: %q is not an integer", c.Verb, s)
		}
		return n, nil
	}

	switch c.Verb {
	case VerbInstrumentType:
		s, err := arg(0)
		if err != nil {
			return err
		}
		kind, err := parseInstrumentType(s)
		if err != nil {
			return err
		}
		cfg.InstrumentType = kind
	case VerbInstrumentDataPort:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.InstrumentDataPort = n
	case VerbInstrumentCommandPort:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.InstrumentCommandPort = n
	case VerbInstrumentDataHost:
		s, err := arg(0)
		if err != nil {
			return err
		}
		cfg.InstrumentDataHost = s
	case VerbDataPort:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.DataPort = n
	case VerbCommandPort:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.CommandPort = n
	case VerbSnifferPort:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.SnifferPort = n
	case VerbLogDir:
		s, err := arg(0)
		if err != nil {
			return err
		}
		cfg.LogDir = s
	case VerbHeartbeatInterval:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.HeartbeatInterval = time.Duration(n) * time.Second
	case VerbMaxPacketSize:
		n, err := atoi(0)
		if err != nil {
			return err
		}
		cfg.MaxPacketSize = n
	case VerbShutdown, VerbGet, VerbSave:
		return nil
	default:
		return errors.Wrapf(ErrUnknownCommand, "%s", c.Verb)
	}
	return nil
}

/*Get renders the named field's current value, for the "get <field>"
command. It returns ErrUnknownCommand if field does not name a known
Config field.*/
func Get(cfg *Config, field string) (string, error) {
	switch Verb(strings.ToLower(field)) {
	case VerbInstrumentType:
		return instrumentTypeName(cfg.InstrumentType), nil
	case VerbInstrumentDataHost:
		return cfg.InstrumentDataHost, nil
	case VerbInstrumentDataPort:
		return fmt.Sprintf("%d", cfg.InstrumentDataPort), nil
	case VerbInstrumentCommandPort:
		return fmt.Sprintf("%d", cfg.InstrumentCommandPort), nil
	case VerbDataPort:
		return fmt.Sprintf("%d", cfg.DataPort), nil
	case VerbCommandPort:
		return fmt.Sprintf("%d", cfg.CommandPort), nil
	case VerbSnifferPort:
		return fmt.Sprintf("%d", cfg.SnifferPort), nil
	case VerbLogDir:
		return cfg.LogDir, nil
	case VerbHeartbeatInterval:
		return fmt.Sprintf("%d", int(cfg.HeartbeatInterval.Seconds())), nil
	case VerbMaxPacketSize:
		return fmt.Sprintf("%d", cfg.MaxPacketSize), nil
	default:
		return "", errors.Wrapf(ErrUnknownCommand, "no such field %q", field)
	}
}
