package unblocker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/tracing"
)

// Config represents unblocking loop configuration
type Config struct {
	// PollingInterval is how often Blocked processes are scanned
	PollingInterval time.Duration

	// HeldWait is how long a process already holding its resource waits before it is promoted
	HeldWait time.Duration
}

// DefaultConfig returns the default unblocking configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval: 2 * time.Second,
		HeldWait:        time.Second,
	}
}

// Service promotes Blocked processes back to Ready
type Service struct {
	config       Config
	state        *simulation.State
	clock        clock.Clock
	logger       *logrus.Logger
	entry        *logrus.Entry
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates an unblocking loop over state
func New(state *simulation.State, options ...Option) *Service {
	ret := &Service{
		config:     DefaultConfig(),
		state:      state,
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.clock == nil {
		ret.clock = clock.Real()
	}
	if ret.logger == nil {
		ret.logger = logrus.StandardLogger()
	}
	ret.entry = ret.logger.WithField("loop", simulation.LoopUnblock)
	return ret
}

// Start runs the loop until ctx is done or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-s.clock.After(s.config.PollingInterval):
			if _, err := s.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.entry.WithError(err).Error("unblocking halted")
				return err
			}
		}
	}
}

// Tick visits the Blocked processes oldest first and returns how many were
// promoted to Ready.
func (s *Service) Tick(ctx context.Context) (int, error) {
	promoted := 0
	for _, p := range s.state.Blocked() {
		ok, err := s.unblock(ctx, p.ID, p.HoldsResource)
		if err != nil {
			return promoted, err
		}
		entry := s.entry.WithFields(logrus.Fields{"process": p.ID, "resource": p.Resource})
		if !ok {
			entry.Debug("resource busy")
			continue
		}
		promoted++
		entry.Info("unblocked")
	}
	return promoted, nil
}

func (s *Service) unblock(ctx context.Context, id int, held bool) (ok bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "unblocker.unblock")
	defer func() {
		span.WithProcess(id).WithAttributes(map[string]string{
			"held":     tracing.Bool(held),
			"promoted": tracing.Bool(ok),
		})
		tracing.EndSpan(span, err)
	}()
	if held {
		if err = clock.Sleep(ctx, s.clock, s.config.HeldWait); err != nil {
			return false, err
		}
	}
	return s.state.Unblock(ctx, id)
}

// Shutdown stops the loop
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
