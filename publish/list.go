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
	"fmt"
	"sync"

	"github.com/deverett/port-agent/packet"
	"github.com/sirupsen/logrus"
)

/*List is the ordered set of publishers the core fans each packet out to.
Publish iterates in insertion order; a publisher's write error is logged
and converted into a single PORT_AGENT_FAULT packet that is re-published to
every publisher in the list — at recursion depth 1 only, so a fault publish failure
is logged but never triggers a second fault.*/
type List struct {
	mux        sync.Mutex
	publishers []Publisher
	log        *logrus.Logger
}

/*NewList returns an empty publisher list logging through log.*/
func NewList(log *logrus.Logger) *List {
	if log == nil {
		log = logrus.New()
	}
	return &List{log: log}
}

/*Add appends a publisher to the end of the list.*/
func (l *List) Add(p Publisher) {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.publishers = append(l.publishers, p)
	entry := l.log.WithField("publisher_kind", p.Kind())
	if idp, ok := p.(identifiable); ok {
		entry = entry.WithField("publisher_id", idp.PublisherID())
	}
	entry.Debug("publisher added")
}

/*Remove drops p from the list, if present.*/
func (l *List) Remove(p Publisher) {
	l.mux.Lock()
	defer l.mux.Unlock()
	for i, existing := range l.publishers {
		if existing == p {
			l.publishers = append(l.publishers[:i], l.publishers[i+1:]...)
			return
		}
	}
}

/*Publish fans pk out to every publisher in insertion order. A publisher
whose Publish returns an error is logged and has a PORT_AGENT_FAULT packet
re-published to the list in its place, once.*/
func (l *List) Publish(pk *packet.Packet) {
	l.publish(pk, 0)
}

func (l *List) publish(pk *packet.Packet, depth int) {
	l.mux.Lock()
	snapshot := append([]Publisher{}, l.publishers...)
	l.mux.Unlock()

	for _, p := range snapshot {
		if err := p.Publish(pk); err != nil {
			entry := l.log.WithError(err).WithField("publisher_kind", p.Kind())
			if idp, ok := p.(identifiable); ok {
				entry = entry.WithField("publisher_id", idp.PublisherID())
			}
			entry.Warn("publisher write failed")
			if depth == 0 {
				l.publishFault(p, err, depth)
			}
		}
	}
}

func (l *List) publishFault(origin Publisher, cause error, depth int) {
	fault, err := packet.BuildRaw(packet.PortAgentFault, packet.Now(), []byte(fmt.Sprintf("publisher %v failed: %v", origin.Kind(), cause)))
	if err != nil {
		l.log.WithError(err).Error("unable to build fault packet")
		return
	}
	l.publish(fault, depth+1)
}

/*EmitFault is called by the core (rather than by a Publish failure) when a
non-publisher component — a connection losing its instrument, say — needs
to notify every driver of a fault.*/
func (l *List) EmitFault(reason string) {
	fault, err := packet.BuildRaw(packet.PortAgentFault, packet.Now(), []byte(reason))
	if err != nil {
		l.log.WithError(err).Error("unable to build fault packet")
		return
	}
	l.publish(fault, 0)
}

/*EmitHeartbeat publishes a zero-payload PORT_AGENT_HEARTBEAT packet.*/
func (l *List) EmitHeartbeat() {
	hb, err := packet.BuildRaw(packet.PortAgentHeartbeat, packet.Now(), nil)
	if err != nil {
		l.log.WithError(err).Error("unable to build heartbeat packet")
		return
	}
	l.publish(hb, 0)
}

// Len reports how many publishers are registered, mostly useful for tests.
func (l *List) Len() int {
	l.mux.Lock()
	defer l.mux.Unlock()
	return len(l.publishers)
}
