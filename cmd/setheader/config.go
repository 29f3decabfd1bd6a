package main

import (
	"fmt"
	"time"

	"github.com/kbukum/sweep/config"
	"github.com/kbukum/sweep/pipeline"
	"github.com/kbukum/sweep/s3"
	"github.com/kbukum/sweep/validation"
)

// Config is the full setheader configuration.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	S3        s3.Config        `yaml:"s3" mapstructure:"s3"`
	Headers   s3.HeaderConfig  `yaml:"headers" mapstructure:"headers"`
	Pipeline  pipeline.Options `yaml:"pipeline" mapstructure:"pipeline"`
	Telemetry TelemetryConfig  `yaml:"telemetry" mapstructure:"telemetry"`
}

// TelemetryConfig enables OTLP export. Empty endpoints disable it.
// An unset SampleRate samples every trace; 0 samples none.
type TelemetryConfig struct {
	MetricsEndpoint string        `yaml:"metrics_endpoint" mapstructure:"metrics_endpoint" validate:"omitempty,hostname_port"`
	TraceEndpoint   string        `yaml:"trace_endpoint" mapstructure:"trace_endpoint" validate:"omitempty,hostname_port"`
	Insecure        bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate      *float64      `yaml:"sample_rate" mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1"`
	MetricInterval  time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.S3.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	if c.Telemetry.SampleRate == nil {
		rate := 1.0
		c.Telemetry.SampleRate = &rate
	}
	if c.Telemetry.MetricInterval <= 0 {
		c.Telemetry.MetricInterval = 15 * time.Second
	}
}

// Validate checks every section and names the failing one.
func (c *Config) Validate() error {
	sections := []struct {
		name     string
		validate func() error
	}{
		{"service", c.ServiceConfig.Validate},
		{"s3", c.S3.Validate},
		{"headers", c.Headers.Validate},
		{"pipeline", c.Pipeline.Validate},
		{"telemetry", func() error { return validation.Validate(&c.Telemetry) }},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}
