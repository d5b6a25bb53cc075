// Package clock abstracts time so that polling loops can be driven either by
// the wall clock or, in tests, by a virtual clock that only moves when told to.
package clock

import (
	"context"
	"time"
)

// Clock is the time source used by the scheduler loops.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d elapsed.
	After(d time.Duration) <-chan time.Time
}

type wall struct{}

func (wall) Now() time.Time { return time.Now() }

func (wall) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Real returns the wall clock.
func Real() Clock { return wall{} }

// Sleep waits for d on the supplied clock or until ctx is done.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.After(d):
		return nil
	}
}
