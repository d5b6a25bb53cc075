package pagesim

import (
	"github.com/sirupsen/logrus"
	"github.com/viant/pagesim/internal/clock"
	"github.com/viant/pagesim/policy"
	"github.com/viant/pagesim/service/event"
	"github.com/viant/pagesim/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises a Service
type Option func(s *Service)

// WithConfig replaces DefaultConfig
func WithConfig(config *Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithClock sets the time source of every loop; tests pass a clock.Virtual
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithAssigner sets the resource assignment policy
func WithAssigner(assigner policy.Assigner) Option {
	return func(s *Service) {
		s.assigner = assigner
	}
}

// WithGenerator sets the random demand generator used by SubmitRandom
func WithGenerator(generator *policy.DemandGenerator) Option {
	return func(s *Service) {
		s.generator = generator
	}
}

// WithLogger sets the logger; its level is left untouched
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventService(service *event.Service) Option {
	return func(s *Service) {
		s.eventService = service
	}
}

// WithTracing configures OpenTelemetry tracing with the stdout exporter, or a
// file when outputFile is set. The first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.tracingErr = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.tracingErr = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
