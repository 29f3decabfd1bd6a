package pipeline

import (
	"time"

	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
	"github.com/kbukum/sweep/validation"
)

// Defaults used when an option is left at its zero value.
const (
	DefaultWorkers         = 10
	DefaultPageSize        = 1000
	DefaultQueueCapacity   = 1000
	DefaultReportCapacity  = 1000
	DefaultSummaryInterval = 100
)

// Options is the flat configuration of a run. It is loaded from config
// files under the "pipeline" key.
type Options struct {
	Workers         int     `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=1024"`
	PageSize        int     `yaml:"page_size" mapstructure:"page_size" validate:"gte=1,lte=1000"`
	QueueCapacity   int     `yaml:"queue_capacity" mapstructure:"queue_capacity" validate:"gte=1"`
	ReportCapacity  int     `yaml:"report_capacity" mapstructure:"report_capacity" validate:"gte=1"`
	SummaryInterval int     `yaml:"summary_interval" mapstructure:"summary_interval" validate:"gte=1"`
	EMAContribution float64 `yaml:"ema_contribution" mapstructure:"ema_contribution" validate:"gt=0,lte=1"`
	Prefix          string  `yaml:"prefix" mapstructure:"prefix"`
	// RateLimit caps items per second across all workers. 0 disables it.
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit" validate:"gte=0"`
}

// ApplyDefaults fills zero values with defaults.
func (o *Options) ApplyDefaults() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.QueueCapacity <= 0 {
		o.QueueCapacity = DefaultQueueCapacity
	}
	if o.ReportCapacity <= 0 {
		o.ReportCapacity = DefaultReportCapacity
	}
	if o.SummaryInterval <= 0 {
		o.SummaryInterval = DefaultSummaryInterval
	}
	if o.EMAContribution <= 0 {
		o.EMAContribution = DefaultEMAContribution
	}
	if o.RateLimit < 0 {
		o.RateLimit = 0
	}
}

// Validate checks option bounds.
func (o *Options) Validate() error {
	return validation.Validate(o)
}

// Option configures a Pipeline.
type Option func(*settings)

type settings struct {
	opts    Options
	log     *logger.Logger
	metrics *observability.PipelineMetrics
	clock   func() time.Time
}

func resolveSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	s.opts.ApplyDefaults()
	if s.log == nil {
		s.log = logger.GetGlobalLogger()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// WithOptions replaces all flat options at once. Later options still apply.
func WithOptions(o Options) Option {
	return func(s *settings) { s.opts = o }
}

// WithWorkers sets the number of workers.
func WithWorkers(n int) Option {
	return func(s *settings) { s.opts.Workers = n }
}

// WithPageSize sets how many items are requested per page.
func WithPageSize(n int) Option {
	return func(s *settings) { s.opts.PageSize = n }
}

// WithQueueCapacity sets the work queue capacity.
func WithQueueCapacity(n int) Option {
	return func(s *settings) { s.opts.QueueCapacity = n }
}

// WithReportCapacity sets the report queue capacity.
func WithReportCapacity(n int) Option {
	return func(s *settings) { s.opts.ReportCapacity = n }
}

// WithSummaryInterval sets how many processed items separate two summaries.
func WithSummaryInterval(n int) Option {
	return func(s *settings) { s.opts.SummaryInterval = n }
}

// WithEMAContribution sets the weight of each new rate sample.
func WithEMAContribution(c float64) Option {
	return func(s *settings) { s.opts.EMAContribution = c }
}

// WithPrefix restricts listing to keys starting with prefix.
func WithPrefix(prefix string) Option {
	return func(s *settings) { s.opts.Prefix = prefix }
}

// WithRateLimit caps the items per second processed by all workers together.
func WithRateLimit(perSecond float64) Option {
	return func(s *settings) { s.opts.RateLimit = perSecond }
}

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithMetrics records report counts and summaries into m.
func WithMetrics(m *observability.PipelineMetrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClock replaces time.Now for summaries and durations.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}
