package pagesim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/pagesim/runtime/simulation"
	"github.com/viant/pagesim/service/allocator"
	"github.com/viant/pagesim/service/processor"
	"github.com/viant/pagesim/service/unblocker"
	"github.com/viant/pagesim/tracing"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the simulation configuration.
// Durations use Go duration strings, e.g. "3s".
type Config struct {
	Memory    MemoryConfig    `json:"memory" yaml:"memory"`
	Resources ResourcesConfig `json:"resources" yaml:"resources"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Generator GeneratorConfig `json:"generator" yaml:"generator"`
	Events    EventsConfig    `json:"events" yaml:"events"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Tracing   TracingConfig   `json:"tracing" yaml:"tracing"`
}

type MemoryConfig struct {
	TotalMB    int `json:"totalMB" yaml:"totalMB"`
	PageSizeMB int `json:"pageSizeMB" yaml:"pageSizeMB"`
}

type ResourcesConfig struct {
	Count int `json:"count" yaml:"count"`
}

type SchedulerConfig struct {
	AdmissionInterval time.Duration `json:"admissionInterval" yaml:"admissionInterval"`
	ExecutionInterval time.Duration `json:"executionInterval" yaml:"executionInterval"`
	BurstDuration     time.Duration `json:"burstDuration" yaml:"burstDuration"`
	UnblockInterval   time.Duration `json:"unblockInterval" yaml:"unblockInterval"`
	HeldWait          time.Duration `json:"heldWait" yaml:"heldWait"`
	RetryLimit        int           `json:"retryLimit" yaml:"retryLimit"`
	VerifyInvariants  bool          `json:"verifyInvariants" yaml:"verifyInvariants"`
}

// GeneratorConfig bounds randomly generated demands
type GeneratorConfig struct {
	MinDemandMB int `json:"minDemandMB" yaml:"minDemandMB"`
	MaxDemandMB int `json:"maxDemandMB" yaml:"maxDemandMB"`
}

type EventsConfig struct {
	Buffer int `json:"buffer" yaml:"buffer"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	OutputFile  string `json:"outputFile" yaml:"outputFile"`
}

// DefaultConfig returns the reference sizing: 1000 MB in 50 MB pages, three
// resources, a retry limit of 3 and 3s/2s/2s/2s/1s loop timings.
func DefaultConfig() *Config {
	admission := allocator.DefaultConfig()
	execution := processor.DefaultConfig()
	unblocking := unblocker.DefaultConfig()
	sizing := simulation.DefaultConfig()
	return &Config{
		Memory:    MemoryConfig{TotalMB: sizing.TotalMB, PageSizeMB: sizing.PageSizeMB},
		Resources: ResourcesConfig{Count: sizing.Resources},
		Scheduler: SchedulerConfig{
			AdmissionInterval: admission.PollingInterval,
			ExecutionInterval: execution.PollingInterval,
			BurstDuration:     execution.BurstDuration,
			UnblockInterval:   unblocking.PollingInterval,
			HeldWait:          unblocking.HeldWait,
			RetryLimit:        sizing.RetryLimit,
		},
		Generator: GeneratorConfig{MinDemandMB: 50, MaxDemandMB: 200},
		Events:    EventsConfig{Buffer: 256},
		Log:       LogConfig{Level: "info"},
		Tracing:   TracingConfig{ServiceName: "pagesim"},
	}
}

// Validate returns an error describing the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	switch {
	case c.Memory.TotalMB <= 0:
		return fmt.Errorf("memory.totalMB must be > 0")
	case c.Memory.PageSizeMB <= 0:
		return fmt.Errorf("memory.pageSizeMB must be > 0")
	case c.Memory.PageSizeMB > c.Memory.TotalMB:
		return fmt.Errorf("memory.pageSizeMB (%d) exceeds memory.totalMB (%d)", c.Memory.PageSizeMB, c.Memory.TotalMB)
	case c.Resources.Count <= 0:
		return fmt.Errorf("resources.count must be > 0")
	case c.Scheduler.AdmissionInterval <= 0:
		return fmt.Errorf("scheduler.admissionInterval must be > 0")
	case c.Scheduler.ExecutionInterval <= 0:
		return fmt.Errorf("scheduler.executionInterval must be > 0")
	case c.Scheduler.BurstDuration <= 0:
		return fmt.Errorf("scheduler.burstDuration must be > 0")
	case c.Scheduler.UnblockInterval <= 0:
		return fmt.Errorf("scheduler.unblockInterval must be > 0")
	case c.Scheduler.HeldWait <= 0:
		return fmt.Errorf("scheduler.heldWait must be > 0")
	case c.Scheduler.RetryLimit < 0:
		return fmt.Errorf("scheduler.retryLimit must be >= 0")
	case c.Generator.MinDemandMB <= 0 || c.Generator.MinDemandMB > c.Generator.MaxDemandMB:
		return fmt.Errorf("generator demand range [%d, %d] is invalid", c.Generator.MinDemandMB, c.Generator.MaxDemandMB)
	case c.Events.Buffer <= 0:
		return fmt.Errorf("events.buffer must be > 0")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML configuration from any afs supported URL. Keys that
// are omitted keep their DefaultConfig value.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}

// Encode renders the configuration as YAML
func (c *Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) simulation() simulation.Config {
	return simulation.Config{
		TotalMB:    c.Memory.TotalMB,
		PageSizeMB: c.Memory.PageSizeMB,
		Resources:  c.Resources.Count,
		RetryLimit: c.Scheduler.RetryLimit,
		Verify:     c.Scheduler.VerifyInvariants,
	}
}

func (c *Config) admission() allocator.Config {
	return allocator.Config{PollingInterval: c.Scheduler.AdmissionInterval}
}

func (c *Config) execution() processor.Config {
	return processor.Config{PollingInterval: c.Scheduler.ExecutionInterval, BurstDuration: c.Scheduler.BurstDuration}
}

func (c *Config) unblocking() unblocker.Config {
	return unblocker.Config{PollingInterval: c.Scheduler.UnblockInterval, HeldWait: c.Scheduler.HeldWait}
}

func tracingInit(config TracingConfig) error {
	return tracing.Init(config.ServiceName, Version, config.OutputFile)
}
