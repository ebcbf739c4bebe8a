package telemetry

import (
	"sync"
	"testing"
	"time"
)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector()
	c.Add("polls", 1)
	c.Add("polls", 2)
	c.Add("errors", 1)

	snap := c.Snapshot()
	if snap["polls"] != 3 {
		t.Errorf("polls = %v", snap["polls"])
	}
	if snap["errors"] != 1 {
		t.Errorf("errors = %v", snap["errors"])
	}

	// Snapshot is a copy; mutating it must not touch the collector.
	snap["polls"] = 100
	if c.Snapshot()["polls"] != 3 {
		t.Error("snapshot aliases internal state")
	}
}

func TestCollectorObserve(t *testing.T) {
	c := NewCollector()
	c.Observe("exec", 100*time.Millisecond)
	c.Observe("exec", 200*time.Millisecond)
	c.mu.Lock()
	total := c.timings["exec"]
	c.mu.Unlock()
	if total != 300*time.Millisecond {
		t.Errorf("total = %v", total)
	}
}

func TestCollectorConcurrentAdd(t *testing.T) {
	c := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Add("n", 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Snapshot()["n"]; got != 1000 {
		t.Errorf("n = %v", got)
	}
}
