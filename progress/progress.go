package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by a loop.
type Delta struct {
	Submitted       int
	Admitted        int
	Dispatched      int
	Blocked         int
	Unblocked       int
	Terminated      int
	AllocationMiss  int
	AcquisitionMiss int
}

// Counters is a point-in-time copy of the tracker.
type Counters struct {
	StartedAt       time.Time `json:"startedAt"`
	Submitted       int       `json:"submitted"`
	Admitted        int       `json:"admitted"`
	Dispatched      int       `json:"dispatched"`
	Blocked         int       `json:"blocked"`
	Unblocked       int       `json:"unblocked"`
	Terminated      int       `json:"terminated"`
	AllocationMiss  int       `json:"allocationMiss"`
	AcquisitionMiss int       `json:"acquisitionMiss"`
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	counters Counters
	onChange func(Counters)
}

// New creates a tracker stamped with startedAt
func New(startedAt time.Time) *Tracker {
	return &Tracker{counters: Counters{StartedAt: startedAt}}
}

// Update applies the delta. The onChange callback, if any, runs outside the
// critical section with a copy of the updated counters.
func (t *Tracker) Update(d Delta) {
	if t == nil {
		return
	}
	t.mu.Lock()
	c := &t.counters
	c.Submitted += d.Submitted
	c.Admitted += d.Admitted
	c.Dispatched += d.Dispatched
	c.Blocked += d.Blocked
	c.Unblocked += d.Unblocked
	c.Terminated += d.Terminated
	c.AllocationMiss += d.AllocationMiss
	c.AcquisitionMiss += d.AcquisitionMiss
	snapshot := *c
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the counters.
func (t *Tracker) Snapshot() Counters {
	if t == nil {
		return Counters{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counters
}

// OnChange registers a callback invoked after every Update. Passing nil
// disables it.
func (t *Tracker) OnChange(cb func(Counters)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.onChange = cb
	t.mu.Unlock()
}
