package pagesim

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/internal/idgen"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/progress"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/service/allocator"
	"github.com/viant/pagesim/service/event"
	"github.com/viant/pagesim/service/messaging/memory"
	"github.com/viant/pagesim/service/processor"
	"github.com/viant/pagesim/service/unblocker"
)

// Version is reported to the tracing back-end
const Version = "0.1.0"

// Service wires the simulation state and its three loops.
type Service struct {
	runtime      *Runtime
	config       *Config
	clock        clock.Clock
	assigner     policy.Assigner
	generator    *policy.DemandGenerator
	logger       *logrus.Logger
	eventService *event.Service
	tracingErr   error
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if s.tracingErr != nil {
		return fmt.Errorf("failed to init tracing: %w", s.tracingErr)
	}
	if err := s.ensureBaseSetup(); err != nil {
		return err
	}
	tracker := progress.New(s.clock.Now())
	state := simulation.New(s.config.simulation(),
		simulation.WithClock(s.clock),
		simulation.WithAssigner(s.assigner),
		simulation.WithEvents(s.eventService),
		simulation.WithTracker(tracker))
	s.runtime = &Runtime{
		id:        idgen.New(),
		state:     state,
		events:    s.eventService,
		generator: s.generator,
		allocator: allocator.New(state,
			allocator.WithConfig(s.config.admission()),
			allocator.WithClock(s.clock),
			allocator.WithLogger(s.logger)),
		processor: processor.New(state,
			processor.WithConfig(s.config.execution()),
			processor.WithClock(s.clock),
			processor.WithLogger(s.logger)),
		unblocker: unblocker.New(state,
			unblocker.WithConfig(s.config.unblocking()),
			unblocker.WithClock(s.clock),
			unblocker.WithLogger(s.logger)),
	}
	s.runtime.logger = s.logger.WithField("run", s.runtime.id)
	return nil
}

func (s *Service) ensureBaseSetup() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if s.config.Tracing.Enabled && s.tracingErr == nil {
		if err := tracingInit(s.config.Tracing); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = logrus.New()
		level, _ := logrus.ParseLevel(s.config.Log.Level)
		s.logger.SetLevel(level)
	}
	if s.assigner == nil {
		s.assigner = policy.NewRandom(0)
	}
	if s.generator == nil {
		s.generator = policy.NewDemandGenerator(s.config.Generator.MinDemandMB, s.config.Generator.MaxDemandMB, nil)
	}
	if s.eventService == nil {
		s.eventService = event.New(event.WithQueueConfig(memory.Config{QueueBuffer: s.config.Events.Buffer}))
	}
	return nil
}

// Runtime returns the simulation runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns the effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// New creates a simulation service
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
