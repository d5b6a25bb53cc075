package allocator

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
)

type Option func(*Service)

// WithConfig sets the loop configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithClock sets the tick source
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithLogger sets the logger; the loop adds its own "loop" field
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}
