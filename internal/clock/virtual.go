package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

type waiter struct {
	deadline time.Time
	ch       chan time.Time
}

// Virtual is a manually advanced clock. Channels returned by After fire only
// when Advance moves the clock past their deadline.
type Virtual struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
}

// NewVirtual creates a virtual clock starting at start.
func NewVirtual(start time.Time) *Virtual {
	return &Virtual{now: start}
}

// Now returns the virtual time.
func (v *Virtual) Now() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// After registers a waiter firing once the clock reaches now+d.
func (v *Virtual) After(d time.Duration) <-chan time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- v.now
		return ch
	}
	v.waiters = append(v.waiters, &waiter{deadline: v.now.Add(d), ch: ch})
	return ch
}

// Advance moves the clock forward by d and fires every due waiter in
// deadline order.
func (v *Virtual) Advance(d time.Duration) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = v.now.Add(d)
	sort.SliceStable(v.waiters, func(i, j int) bool {
		return v.waiters[i].deadline.Before(v.waiters[j].deadline)
	})
	pending := v.waiters[:0]
	for _, w := range v.waiters {
		if w.deadline.After(v.now) {
			pending = append(pending, w)
			continue
		}
		w.ch <- v.now
	}
	v.waiters = pending
}

// Waiters returns the number of registered, not yet fired waiters.
func (v *Virtual) Waiters() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.waiters)
}

// WaitForWaiters blocks until at least n waiters are registered, which for
// polling loops means n loops are parked waiting for their next tick.
func (v *Virtual) WaitForWaiters(ctx context.Context, n int) error {
	for {
		if v.Waiters() >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

var _ Clock = (*Virtual)(nil)
