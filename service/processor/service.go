package processor

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/runtime/execution"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/tracing"
)

// Config represents execution loop configuration
type Config struct {
	// PollingInterval is how often the Ready queue is re-checked while the running slot is empty
	PollingInterval time.Duration

	// BurstDuration is how long a process stays Running
	BurstDuration time.Duration
}

// DefaultConfig returns the default execution configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval: 2 * time.Second,
		BurstDuration:   2 * time.Second,
	}
}

// Service runs bursts one process at a time
type Service struct {
	config       Config
	state        *simulation.State
	clock        clock.Clock
	logger       *logrus.Logger
	entry        *logrus.Entry
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates an execution loop over state
func New(state *simulation.State, options ...Option) *Service {
	s := &Service{
		config:     DefaultConfig(),
		state:      state,
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = logrus.StandardLogger()
	}
	s.entry = s.logger.WithField("loop", simulation.LoopExecution)
	return s
}

// Start runs bursts back to back while processes are ready and polls the
// Ready queue on PollingInterval otherwise. A burst in flight is always
// completed unless ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	wait := s.config.PollingInterval
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-s.clock.After(wait):
		}
		ran, err := s.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.entry.WithError(err).Error("execution halted")
			return err
		}
		wait = s.config.PollingInterval
		if ran {
			wait = 0
		}
	}
}

// Step dispatches the head of the Ready queue, runs one burst and completes
// it. It returns false when nothing was ready or the slot was taken.
func (s *Service) Step(ctx context.Context) (bool, error) {
	p, ok, err := s.state.Dispatch(ctx)
	if err != nil || !ok {
		return false, err
	}
	ctx, span := tracing.StartSpan(ctx, "processor.burst")
	span.WithProcess(p.ID).WithAttributes(map[string]string{"holdsResource": tracing.Bool(p.HoldsResource)})
	entry := s.entry.WithFields(logrus.Fields{"process": p.ID, "resource": p.Resource})
	if p.HoldsResource {
		entry.Info("running")
	} else {
		entry.Info("running without resource")
	}
	if err = clock.Sleep(ctx, s.clock, s.config.BurstDuration); err != nil {
		tracing.EndSpan(span, err)
		return false, err
	}
	next, err := s.state.CompleteBurst(ctx, p.ID)
	tracing.EndSpan(span, err)
	if err != nil {
		return false, err
	}
	if next == execution.StateTerminated {
		entry.Info("terminated")
	} else {
		entry.WithField("blockCount", p.BlockCount+1).Info("blocked")
	}
	return true, nil
}

// Shutdown stops the loop once the current burst, if any, completed
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
