// Command portagent mediates between one scientific instrument and any
// number of driver clients: framed binary packets out, raw bytes in, fanned
// out over a fixed set of TCP ports and controlled over a line-oriented
// config port.
package main

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
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/deverett/port-agent/agent"
	"github.com/deverett/port-agent/config"
	"github.com/sirupsen/logrus"
)

const (
	exitClean          = 0
	exitConfigError    = 1
	exitBindFailure    = 2
	exitAlreadyRunning = 3
)

var (
	app = kingpin.New("portagent", "Mediates between one scientific instrument and its driver clients.")

	configPort = app.Flag("config-port", "TCP port for operator control commands.").Short('p').Required().Int()
	configFile = app.Flag("config-file", "Path to a saved config file to load at startup.").Short('c').String()
	verbose    = app.Flag("verbose", "Log at debug level.").Short('v').Bool()
	kill       = app.Flag("kill", "Kill the instance named by the pid file and exit.").Short('k').Bool()
	singleShot = app.Flag("single-shot", "Do not daemonize; exit after one run.").Short('s').Bool()
	pidPath    = app.Flag("pid-file", "Path to the pid file.").Default("/var/run/port_agent.pid").String()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if !*singleShot {
		log.Debug("running in the foreground; daemonizing is left to the process supervisor")
	}

	if *kill {
		if err := killRunning(*pidPath); err != nil {
			log.WithError(err).Error("failed to kill running instance")
			os.Exit(exitConfigError)
		}
		os.Exit(exitClean)
	}

	if running, err := pidFileAlive(*pidPath); err != nil {
		log.WithError(err).Error("failed to inspect pid file")
		os.Exit(exitConfigError)
	} else if running {
		log.Errorf("an instance is already running per %s", *pidPath)
		os.Exit(exitAlreadyRunning)
	}

	cfg, err := loadOrDefaultConfig(*configFile)
	if err != nil {
		log.WithError(err).Error("config error")
		os.Exit(exitConfigError)
	}
	cfg.PIDFile = *pidPath
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("config error")
		os.Exit(exitConfigError)
	}

	if err := writePIDFile(*pidPath); err != nil {
		log.WithError(err).Error("failed to write pid file")
		os.Exit(exitConfigError)
	}
	defer os.Remove(*pidPath)

	a := agent.New(config.NewSafeConfig(cfg), *configPort, log)
	if *configFile != "" {
		a.SetConfigPath(*configFile)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		log.WithError(err).Error("bind failure")
		os.Exit(exitBindFailure)
	}

	log.Info("port agent exiting cleanly")
	os.Exit(exitClean)
}

func loadOrDefaultConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}

// pidFileAlive reports whether path names a pid file whose process is
// still alive. A missing file, an unreadable pid, or a pid that no longer
// answers signal 0 all mean "not running".
func pidFileAlive(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, nil
	}
	return true, nil
}

func killRunning(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return err
	}
	return os.Remove(path)
}
