package logger

import (
	"slices"
	"strings"

	"github.com/kbukum/sweep/validation"
)

// Config contains logging configuration.
type Config struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Format      string `yaml:"format" mapstructure:"format"`
	Output      string `yaml:"output" mapstructure:"output"`
	NoColor     bool   `yaml:"no_color" mapstructure:"no_color"`
	Timestamp   bool   `yaml:"timestamp" mapstructure:"timestamp"`
	Caller      bool   `yaml:"caller" mapstructure:"caller"`
	ServiceName string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults applies default values to logging configuration.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	// Logs go to stderr so stdout stays free for machine-readable output.
	if c.Output == "" {
		c.Output = "stderr"
	}
	c.Timestamp = true
}

// Valid values for Level, Format and Output.
var (
	Levels  = []string{"trace", "debug", "info", "warn", "error", "fatal", "disabled"}
	Formats = []string{"json", "console", FormatPretty}
	Outputs = []string{"stdout", "stderr"}
)

// Validate checks every field against its allowed values.
func (c *Config) Validate() error {
	return validation.New().
		Custom(slices.Contains(Levels, c.Level), "level", "must be one of: "+strings.Join(Levels, ", ")).
		Custom(slices.Contains(Formats, c.Format), "format", "must be one of: "+strings.Join(Formats, ", ")).
		Custom(slices.Contains(Outputs, c.Output), "output", "must be one of: "+strings.Join(Outputs, ", ")).
		Err()
}
