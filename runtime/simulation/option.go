package simulation

import (
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/service/event"
)

// Option customises a State
type Option func(s *State)

// WithClock sets the time source used to stamp transitions
func WithClock(c clock.Clock) Option {
	return func(s *State) {
		s.clock = c
	}
}

// WithAssigner sets the policy choosing a resource for new processes
func WithAssigner(assigner policy.Assigner) Option {
	return func(s *State) {
		s.assigner = assigner
	}
}

// WithEvents publishes every transition to the supplied event service
func WithEvents(events *event.Service) Option {
	return func(s *State) {
		s.events = events
	}
}

// WithTracker counts transitions on the supplied tracker
func WithTracker(tracker *progress.Tracker) Option {
	return func(s *State) {
		s.tracker = tracker
	}
}
