// Package identity generates collision-free plan identifiers within an
// execution tree.
package identity

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Dispatcher hands out sub-plan ids scoped to a root plan.
// It is safe for concurrent use; ids are backed by per-root atomic counters,
// never by wall-clock time, so concurrent callers within the same clock tick
// still receive distinct values. Counter wraparound is modulo 2^64, which is
// unreachable within any realistic root plan lifetime.
type Dispatcher struct {
	mu       sync.Mutex
	counters map[string]*atomic.Uint64
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		counters: make(map[string]*atomic.Uint64),
	}
}

// SubPlanID returns a plan id unique within the tree anchored at rootPlanID.
// It never fails.
func (d *Dispatcher) SubPlanID(rootPlanID string) string {
	d.mu.Lock()
	c, ok := d.counters[rootPlanID]
	if !ok {
		c = &atomic.Uint64{}
		d.counters[rootPlanID] = c
	}
	d.mu.Unlock()

	return fmt.Sprintf("%s.sub-%d", rootPlanID, c.Add(1))
}

// Release drops the counter for a finished tree so the dispatcher does not
// grow without bound across root plans.
func (d *Dispatcher) Release(rootPlanID string) {
	d.mu.Lock()
	delete(d.counters, rootPlanID)
	d.mu.Unlock()
}
