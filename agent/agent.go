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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/deverett/port-agent/config"
	"github.com/deverett/port-agent/connection"
	"github.com/deverett/port-agent/packet"
	"github.com/deverett/port-agent/publish"
	"github.com/deverett/port-agent/transport"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	tickInterval   = 10 * time.Millisecond
	maxBackoff     = 30 * time.Second
	initialBackoff = 500 * time.Millisecond
	bufferedMax    = 4096
	flushTimeout   = 40 * time.Millisecond
)

/*Agent owns one instrument Connection, the agent's three listening ports
(data, command, config), the publisher list, and the event loop that
drives all of them. All mutable state below is touched only from the
goroutine running Run; the listeners' own accept loops mutate only their
own internal peer pointer under their own lock, never Agent state.*/
type Agent struct {
	cfg        *config.SafeConfig
	configPort int
	log        *logrus.Logger

	conn connection.Connection

	dataListener    *transport.TCPListener
	commandListener *transport.TCPListener
	configListener  *transport.TCPListener
	configInbox     bytes.Buffer

	dataPub *publish.TCPDataListenerPublisher
	cmdPub  *publish.DriverCommandPublisher

	pub        *publish.List
	configPath string

	instrumentData *packet.Buffered
	driverCommand  *packet.Buffered

	lastHeartbeat        time.Time
	lastReconnectAttempt time.Time
	backoff              time.Duration

	shuttingDown bool
}

/*New builds an Agent from cfg, listening for operator commands on
configPort. It does not bind any sockets; call Run to start the event
loop, which binds listeners and attempts the initial instrument
connection on its first tick.*/
func New(cfg *config.SafeConfig, configPort int, log *logrus.Logger) *Agent {
	if log == nil {
		log = logrus.New()
	}
	snapshot := cfg.Get()
	a := &Agent{
		cfg:        cfg,
		configPort: configPort,
		log:        log,
		conn:       connection.New(snapshot.InstrumentType),
		pub:        publish.NewList(log),
		backoff:    initialBackoff,
	}
	a.configureConnection(snapshot)
	a.instrumentData = packet.NewBuffered(packet.DataFromInstrument, bufferedMax, flushTimeout, nil)
	a.driverCommand = packet.NewBuffered(packet.DataFromDriver, bufferedMax, flushTimeout, []byte("\n"))
	return a
}

// SetConfigPath records where a config-port "save" command persists the
// live configuration. An empty path makes save a no-op error.
func (a *Agent) SetConfigPath(path string) {
	a.configPath = path
}

/*configureConnection applies cfg's instrument fields to the live
Connection. TCP and RSN expose Reconfigure, which forces an immediate
disconnect-and-reinit when already connected to a different address;
serial and botpt have no on-the-wire address to swap mid-session, so a
plain Configure is enough there, and a changed device path or host takes
effect the next time the event loop reinitializes after a disconnect.*/
func (a *Agent) configureConnection(cfg *config.Config) {
	var err error
	switch c := a.conn.(type) {
	case *connection.TCPInstrument:
		err = c.Reconfigure(context.Background(), cfg.InstrumentDataHost, portString(cfg.InstrumentDataPort))
	case *connection.SerialInstrument:
		c.Configure(cfg.InstrumentDataHost, cfg.InstrumentDataPort)
	case *connection.RSNInstrument:
		err = c.Reconfigure(context.Background(), cfg.InstrumentDataHost, portString(cfg.InstrumentDataPort), portString(cfg.InstrumentCommandPort))
	case *connection.BotptInstrument:
		c.Configure(cfg.InstrumentDataHost, portString(cfg.InstrumentDataPort), portString(cfg.InstrumentCommandPort))
	}
	if err != nil {
		a.log.WithError(err).Warn("failed to reconfigure instrument connection")
	}
}

func portString(p int) string {
	if p <= 0 {
		return ""
	}
	return strconv.Itoa(p)
}

// openLogFile opens (creating if absent, appending if present) the ASCII
// packet log in dir named for the current calendar day. Run calls it once
// at startup; the file is not rotated when the day changes.
func openLogFile(dir string) (*os.File, error) {
	name := filepath.Join(dir, fmt.Sprintf("port_agent_%s.log", time.Now().Format("2006-01-02")))
	return os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

/*Run binds the agent's three listeners, wires their publishers, and runs
the event loop until ctx is cancelled or a config-port "shutdown" command
is received. It returns nil on a clean shutdown.*/
func (a *Agent) Run(ctx context.Context) error {
	cfg := a.cfg.Get()

	dataLn, err := transport.Bind(cfg.DataPort)
	if err != nil {
		return errors.Wrap(err, "agent: bind data port")
	}
	defer func() { a.dataListener.Close() }()
	a.dataListener = dataLn
	a.dataPub = publish.NewTCPDataListenerPublisher(&listenerSink{ln: dataLn})
	a.pub.Add(a.dataPub)

	commandLn, err := transport.Bind(cfg.CommandPort)
	if err != nil {
		return errors.Wrap(err, "agent: bind command port")
	}
	defer func() { a.commandListener.Close() }()
	a.commandListener = commandLn
	a.cmdPub = publish.NewDriverCommandPublisher(&listenerSink{ln: commandLn})
	a.pub.Add(a.cmdPub)

	a.pub.Add(publish.NewInstrumentDataPublisher(&instrumentSink{conn: a.conn}))
	if cmdr, ok := a.conn.(connection.Commander); ok {
		a.pub.Add(publish.NewInstrumentCommandPublisher(&commandSink{cmd: cmdr}))
	}

	if snifferPort := cfg.SnifferPort; snifferPort != 0 {
		snifferLn, err := transport.Bind(snifferPort)
		if err != nil {
			return errors.Wrap(err, "agent: bind sniffer port")
		}
		defer snifferLn.Close()
		a.pub.Add(publish.NewDriverDataPublisher(&listenerSink{ln: snifferLn}))
	}

	if cfg.LogDir != "" {
		logFile, err := openLogFile(cfg.LogDir)
		if err != nil {
			return errors.Wrap(err, "agent: open log file")
		}
		defer logFile.Close()
		a.pub.Add(publish.NewLogFilePublisher(logFile))
	}

	configLn, err := transport.Bind(a.configPort)
	if err != nil {
		return errors.Wrap(err, "agent: bind config port")
	}
	defer configLn.Close()
	a.configListener = configLn

	a.lastHeartbeat = time.Now()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.tick()
			if a.shuttingDown {
				return nil
			}
		}
	}
}

/*tick runs exactly one event-loop iteration: read whatever is available
from the instrument, the driver command socket, and the config port,
drain any buffered packet that became ready, emit a heartbeat if due,
and retry a disconnected instrument connection on a backoff schedule.*/
func (a *Agent) tick() {
	now := packet.Now()

	a.pumpInstrumentData(now)
	a.pumpDriverCommands(now)
	a.pumpConfigCommands()

	if a.instrumentData.Tick(now) {
		a.drainAndPublish(a.instrumentData, now)
	}
	if a.driverCommand.Tick(now) {
		a.drainAndPublish(a.driverCommand, now)
	}

	a.maybeHeartbeat()
	a.maybeReconnect()
}

func (a *Agent) pumpInstrumentData(now packet.Timestamp) {
	buf := make([]byte, bufferedMax)
	n, err := a.conn.ReadData(buf)
	if err != nil {
		a.pub.EmitFault("instrument disconnected: " + err.Error())
		return
	}
	if n > 0 {
		a.instrumentData.Push(buf[:n], now)
		if a.instrumentData.Ready() {
			a.drainAndPublish(a.instrumentData, now)
		}
	}
}

func (a *Agent) pumpDriverCommands(now packet.Timestamp) {
	peer := a.commandListener.Peer()
	if peer == nil {
		return
	}
	buf := make([]byte, bufferedMax)
	n, err := peer.Read(buf)
	if err != nil {
		return
	}
	if n > 0 {
		a.driverCommand.Push(buf[:n], now)
		if a.driverCommand.Ready() {
			a.drainAndPublish(a.driverCommand, now)
		}
	}
}

func (a *Agent) drainAndPublish(b *packet.Buffered, now packet.Timestamp) {
	pk, err := b.Drain(now)
	if err != nil {
		a.log.WithError(err).Warn("failed to build packet from buffered stream")
		return
	}
	a.pub.Publish(pk)
}

func (a *Agent) maybeHeartbeat() {
	cfg := a.cfg.Get()
	if cfg.HeartbeatInterval <= 0 {
		return
	}
	if time.Since(a.lastHeartbeat) < cfg.HeartbeatInterval {
		return
	}
	a.pub.EmitHeartbeat()
	a.lastHeartbeat = time.Now()
}

/*maybeReconnect attempts Initialize whenever the connection is sitting in
CONFIGURED (never yet connected) or DISCONNECTED (dropped and waiting to
retry), on an exponential backoff. Any other state means a connect attempt
is already in flight or already succeeded, so the backoff resets.*/
func (a *Agent) maybeReconnect() {
	switch a.conn.State() {
	case connection.Configured, connection.Disconnected:
	default:
		a.backoff = initialBackoff
		return
	}
	if time.Since(a.lastReconnectAttempt) < a.backoff {
		return
	}
	a.lastReconnectAttempt = time.Now()
	if err := a.conn.Initialize(context.Background()); err != nil {
		a.log.WithError(err).Debug("instrument reconnect attempt failed")
		a.pub.EmitFault("instrument connect failed: " + err.Error())
		a.backoff *= 2
		if a.backoff > maxBackoff {
			a.backoff = maxBackoff
		}
	}
}

// Shutdown marks the agent for graceful exit on the next tick boundary.
func (a *Agent) Shutdown() {
	a.shuttingDown = true
}
