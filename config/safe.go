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

import "sync"

/*SafeConfig guards a Config behind a mutex so the config-port goroutine can
mutate it while the agent's event loop reads it concurrently. Get returns a
deep copy; Update applies fn under lock and returns whatever error fn
returns, leaving the stored Config untouched if fn fails.*/
type SafeConfig struct {
	mux    sync.RWMutex
	config *Config
}

/*NewSafeConfig wraps cfg. A nil cfg is replaced with Default().*/
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

/*Get returns a deep copy of the current configuration.*/
func (sc *SafeConfig) Get() *Config {
	sc.mux.RLock()
	defer sc.mux.RUnlock()
	return sc.config.Clone()
}

/*Update applies fn to a copy of the current configuration and, if fn
succeeds, installs the copy as the new current configuration.*/
func (sc *SafeConfig) Update(fn func(*Config) error) error {
	sc.mux.Lock()
	defer sc.mux.Unlock()
	next := sc.config.Clone()
	if err := fn(next); err != nil {
		return err
	}
	sc.config = next
	return nil
}
