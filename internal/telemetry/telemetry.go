// Package telemetry is a small in-process counter/timer registry. It feeds
// operator-facing summaries; nothing here leaves the process.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Collector accumulates named counters and cumulative timings.
type Collector struct {
	mu       sync.Mutex
	counters map[string]float64
	timings  map[string]time.Duration
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]float64),
		timings:  make(map[string]time.Duration),
	}
}

// Add increments a counter.
func (c *Collector) Add(name string, v float64) {
	c.mu.Lock()
	c.counters[name] += v
	c.mu.Unlock()
}

// Observe accumulates a duration under a name.
func (c *Collector) Observe(name string, d time.Duration) {
	c.mu.Lock()
	c.timings[name] += d
	c.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.counters))
	for k, v := range c.counters {
		out[k] = v
	}
	return out
}

// LogSummary writes all counters to the debug log in stable order.
func (c *Collector) LogSummary() {
	snap := c.Snapshot()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	ev := log.Debug()
	for _, name := range names {
		ev = ev.Float64(name, snap[name])
	}
	ev.Msg("telemetry summary")
}

var global = NewCollector()

// Add increments a counter on the process-wide collector.
func Add(name string, v float64) { global.Add(name, v) }

// Observe accumulates a duration on the process-wide collector.
func Observe(name string, d time.Duration) { global.Observe(name, d) }

// Snapshot copies the process-wide counters.
func Snapshot() map[string]float64 { return global.Snapshot() }

// LogSummary dumps the process-wide counters at debug level.
func LogSummary() { global.LogSummary() }
