package event

import (
	"github.com/viant/pagesim/service/messaging/memory"
)

type Option func(s *Service)

// WithQueueConfig sets the memory queue configuration
func WithQueueConfig(config memory.Config) Option {
	return func(s *Service) {
		s.queueConfig = config
	}
}
