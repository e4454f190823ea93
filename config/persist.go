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
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

/*Load reads a config save file at path, applying each line as a command in
order. A malformed or unrecognized line aborts the load with the
underlying parse/apply error, matching the startup error-handling policy:
any config error at startup is fatal.*/
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfigInvalid, "open %s: %v", path, err)
	}
	defer f.Close()

	cfg := Default()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := ParseCommand(line)
		if err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
		if err := cmd.Apply(cfg); err != nil {
			return nil, errors.Wrapf(err, "%s", path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrConfigInvalid, "read %s: %v", path, err)
	}
	return cfg, nil
}

/*Save persists cfg to path in the same line-oriented language Load reads,
one verb-value pair per line, overwriting any existing file. A string
field with an empty value is omitted, so Load leaves it at its default.*/
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrConfigInvalid, "create %s: %v", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	lines := []string{
		fmt.Sprintf("%s %s", VerbInstrumentType, instrumentTypeName(c.InstrumentType)),
		fmt.Sprintf("%s %s", VerbInstrumentDataHost, c.InstrumentDataHost),
		fmt.Sprintf("%s %d", VerbInstrumentDataPort, c.InstrumentDataPort),
		fmt.Sprintf("%s %d", VerbInstrumentCommandPort, c.InstrumentCommandPort),
		fmt.Sprintf("%s %d", VerbDataPort, c.DataPort),
		fmt.Sprintf("%s %d", VerbCommandPort, c.CommandPort),
		fmt.Sprintf("%s %d", VerbSnifferPort, c.SnifferPort),
		fmt.Sprintf("%s %s", VerbLogDir, c.LogDir),
		fmt.Sprintf("%s %d", VerbHeartbeatInterval, int(c.HeartbeatInterval.Seconds())),
		fmt.Sprintf("%s %d", VerbMaxPacketSize, c.MaxPacketSize),
	}
	for _, line := range lines {
		if len(strings.Fields(line)) < 2 {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return errors.Wrapf(ErrConfigInvalid, "write %s: %v", path, err)
		}
	}
	return w.Flush()
}
