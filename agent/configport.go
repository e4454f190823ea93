package agent

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

	"github.com/deverett/port-agent/config"
	"github.com/deverett/port-agent/packet"
	"github.com/deverett/port-agent/transport"
)

/*pumpConfigCommands reads whatever bytes are waiting on the config port's
current peer, accumulates them until a newline closes a command, and
applies each complete line. A connecting operator sees no banner; the
port is purely line-in, line-out.*/
func (a *Agent) pumpConfigCommands() {
	peer := a.configListener.Peer()
	if peer == nil {
		return
	}
	buf := make([]byte, 1024)
	n, err := peer.Read(buf)
	if err != nil || n == 0 {
		return
	}
	a.configInbox.Write(buf[:n])
	for {
		line, ok := a.nextConfigLine()
		if !ok {
			return
		}
		a.handleConfigLine(peer, line)
	}
}

func (a *Agent) nextConfigLine() (string, bool) {
	b := a.configInbox.Bytes()
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(b[:i], "\r"))
	rest := make([]byte, len(b)-i-1)
	copy(rest, b[i+1:])
	a.configInbox.Reset()
	a.configInbox.Write(rest)
	return line, true
}

/*handleConfigLine parses one config-port line and applies it to the live
config record. Recognized commands that mutate state reply with "OK";
get replies with the field's value; an unrecognized or malformed command
replies with a PORT_AGENT_FAULT packet on the same channel.*/
func (a *Agent) handleConfigLine(peer transport.Conn, line string) {
	cmd, err := config.ParseCommand(line)
	if err != nil {
		a.replyFault(peer, err.Error())
		return
	}

	switch cmd.Verb {
	case config.VerbShutdown:
		a.Shutdown()
		peer.Write([]byte("OK\n"))
		return
	case config.VerbGet:
		if len(cmd.Args) == 0 {
			a.replyFault(peer, "get requires a field name")
			return
		}
		v, err := config.Get(a.cfg.Get(), cmd.Args[0])
		if err != nil {
			a.replyFault(peer, err.Error())
			return
		}
		peer.Write([]byte(v + "\n"))
		return
	case config.VerbSave:
		if a.configPath == "" {
			a.replyFault(peer, "no config file path set")
			return
		}
		if err := a.cfg.Get().Save(a.configPath); err != nil {
			a.replyFault(peer, err.Error())
			return
		}
		peer.Write([]byte("OK\n"))
		return
	}

	err = a.cfg.Update(func(c *config.Config) error {
		if err := cmd.Apply(c); err != nil {
			return err
		}
		return c.Validate()
	})
	if err != nil {
		a.replyFault(peer, err.Error())
		return
	}
	a.reconcileListeners()
	peer.Write([]byte("OK\n"))
}

// replyFault answers an operator's malformed or failed config command with
// the fault as an ASCII line, not the binary wire packet other sinks get:
// the config port is a plain-text session end to end.
func (a *Agent) replyFault(peer transport.Conn, reason string) {
	pk, err := packet.BuildRaw(packet.PortAgentFault, packet.Now(), []byte(reason))
	if err != nil {
		a.log.WithError(err).Warn("failed to build config-port fault packet")
		return
	}
	peer.Write([]byte(pk.ASCII()))
}

/*reconcileListeners rebinds the data or command listener when a config
command just changed the port it should be bound to. Rebinding drops
whatever driver was connected on the old port, matching the contract
that a listener's bound port is authoritative.*/
func (a *Agent) reconcileListeners() {
	cfg := a.cfg.Get()

	if cfg.DataPort != a.dataListener.Port() {
		if ln, err := transport.Bind(cfg.DataPort); err != nil {
			a.log.WithError(err).Warn("failed to rebind data port")
		} else {
			a.dataListener.Close()
			a.dataListener = ln
			a.dataPub.Sink = &listenerSink{ln: ln}
		}
	}

	if cfg.CommandPort != a.commandListener.Port() {
		if ln, err := transport.Bind(cfg.CommandPort); err != nil {
			a.log.WithError(err).Warn("failed to rebind command port")
		} else {
			a.commandListener.Close()
			a.commandListener = ln
			a.cmdPub.Sink = &listenerSink{ln: ln}
		}
	}

	a.configureConnection(cfg)
}
