/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package stats

import (
	"strconv"
	"sync"
	"sync/atomic"
)

// Counter is an unlabeled metric whose value only goes up (or is reset).
type Counter struct {
	i    atomic.Int64
	help string
}

// NewCounter returns a new Counter, or the one already published under name.
func NewCounter(name string, help string) *Counter {
	return publish(name, &Counter{help: help})
}

// Add adds the provided value to the Counter.
func (v *Counter) Add(delta int64) {
	v.i.Add(delta)
}

// Reset resets the counter value to 0.
func (v *Counter) Reset() {
	v.i.Store(0)
}

// Get returns the value.
func (v *Counter) Get() int64 {
	return v.i.Load()
}

func (v *Counter) String() string {
	return strconv.FormatInt(v.i.Load(), 10)
}

// Help returns the help string.
func (v *Counter) Help() string {
	return v.help
}

// Gauge is an unlabeled metric whose values can go up/down.
type Gauge struct {
	Counter
}

// NewGauge creates a new Gauge and publishes it if name is set.
func NewGauge(name string, help string) *Gauge {
	return publish(name, &Gauge{Counter: Counter{help: help}})
}

// Set sets the value.
func (v *Gauge) Set(value int64) {
	v.Counter.i.Store(value)
}

// GaugeFunc reports the value returned by F on every read.
type GaugeFunc struct {
	F    func() int64
	help string
}

// NewGaugeFunc creates a new GaugeFunc and publishes it if name is set.
func NewGaugeFunc(name string, help string, f func() int64) *GaugeFunc {
	return publish(name, &GaugeFunc{F: f, help: help})
}

// Get returns the current value.
func (gf *GaugeFunc) Get() int64 {
	return gf.F()
}

func (gf *GaugeFunc) String() string {
	return strconv.FormatInt(gf.F(), 10)
}

// Help returns the help string.
func (gf *GaugeFunc) Help() string {
	return gf.help
}

// counters is a map of named int64 values. It backs the labeled types.
type counters struct {
	// mu only protects adding and retrieving the value from the map,
	// modification to the actual number is done atomically.
	mu     sync.RWMutex
	counts map[string]*atomic.Int64
	help   string
}

func newCounters(help string, tags []string) counters {
	c := counters{counts: make(map[string]*atomic.Int64, len(tags)), help: help}
	for _, tag := range tags {
		c.counts[tag] = new(atomic.Int64)
	}
	return c
}

func (c *counters) getValueAddr(name string) *atomic.Int64 {
	c.mu.RLock()
	a, ok := c.counts[name]
	c.mu.RUnlock()
	if ok {
		return a
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// check again, another goroutine may have created it.
	if a, ok = c.counts[name]; ok {
		return a
	}
	a = new(atomic.Int64)
	c.counts[name] = a
	return a
}

// Add adds a value to a named counter.
func (c *counters) Add(name string, value int64) {
	c.getValueAddr(name).Add(value)
}

// Get returns the value of a named counter.
func (c *counters) Get(name string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if a, ok := c.counts[name]; ok {
		return a.Load()
	}
	return 0
}

// Reset resets a specific counter value to 0.
func (c *counters) Reset(name string) {
	c.getValueAddr(name).Store(0)
}

// ResetAll resets all counter values.
func (c *counters) ResetAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]*atomic.Int64)
}

// Counts returns a copy of the counters' map.
func (c *counters) Counts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	counts := make(map[string]int64, len(c.counts))
	for k, a := range c.counts {
		counts[k] = a.Load()
	}
	return counts
}

func (c *counters) String() string {
	return formatCounts(c.Counts())
}

// Help returns the help string.
func (c *counters) Help() string {
	return c.help
}

// CountersWithSingleLabel tracks multiple counter values for a single
// dimension ("label").
type CountersWithSingleLabel struct {
	counters
	label string
}

// NewCountersWithSingleLabel creates a new CountersWithSingleLabel and
// publishes it if name is set. The optional tags are pre-created with a
// value of 0.
func NewCountersWithSingleLabel(name, help, label string, tags ...string) *CountersWithSingleLabel {
	return publish(name, &CountersWithSingleLabel{counters: newCounters(help, tags), label: label})
}

// Label returns the label name.
func (c *CountersWithSingleLabel) Label() string {
	return c.label
}

// GaugesWithSingleLabel is like CountersWithSingleLabel, except its values
// can go up and down.
type GaugesWithSingleLabel struct {
	CountersWithSingleLabel
}

// NewGaugesWithSingleLabel creates a new GaugesWithSingleLabel and publishes
// it if name is set.
func NewGaugesWithSingleLabel(name, help, label string, tags ...string) *GaugesWithSingleLabel {
	return publish(name, &GaugesWithSingleLabel{
		CountersWithSingleLabel: CountersWithSingleLabel{counters: newCounters(help, tags), label: label},
	})
}

// Set sets the value of a named gauge.
func (g *GaugesWithSingleLabel) Set(name string, value int64) {
	g.getValueAddr(name).Store(value)
}
