package allocator

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/tracing"
)

// Config represents admission loop configuration
type Config struct {
	// PollingInterval is how often New processes are scanned
	PollingInterval time.Duration
}

// DefaultConfig returns the default admission configuration
func DefaultConfig() Config {
	return Config{
		PollingInterval: 3 * time.Second,
	}
}

// Service admits New processes into memory
type Service struct {
	config       Config
	state        *simulation.State
	clock        clock.Clock
	logger       *logrus.Logger
	entry        *logrus.Entry
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// New creates an admission loop over state
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
	ret.entry = ret.logger.WithField("loop", simulation.LoopAdmission)
	return ret
}

// Start runs the loop until ctx is done or Shutdown is called. An invariant
// violation stops the loop and is returned.
func (s *Service) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-s.clock.After(s.config.PollingInterval):
			if _, err := s.Tick(ctx); err != nil {
				s.entry.WithError(err).Error("admission halted")
				return err
			}
		}
	}
}

// Tick makes one admission attempt per New process, oldest first, and
// returns the number admitted.
func (s *Service) Tick(ctx context.Context) (admitted int, err error) {
	pending := s.state.Pending()
	if len(pending) == 0 {
		return 0, nil
	}
	ctx, span := tracing.StartSpan(ctx, "allocator.admit")
	defer func() {
		span.WithAttributes(map[string]string{
			"pending":  strconv.Itoa(len(pending)),
			"admitted": strconv.Itoa(admitted),
		})
		tracing.EndSpan(span, err)
	}()
	for _, id := range pending {
		ok, err := s.state.Admit(ctx, id)
		if err != nil {
			return admitted, err
		}
		if !ok {
			s.entry.WithField("process", id).Debug("insufficient memory")
			continue
		}
		admitted++
		s.entry.WithField("process", id).Info("admitted")
	}
	return admitted, nil
}

// Shutdown stops the loop
func (s *Service) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
}
