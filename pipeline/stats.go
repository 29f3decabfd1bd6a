package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/sweep/logger"
	"github.com/kbukum/sweep/observability"
)

// maxRetainedFailures bounds the failures kept for Totals; the rest are
// only counted and logged.
const maxRetainedFailures = 1000

// Summary is the snapshot logged every SummaryInterval processed items.
type Summary struct {
	Listed     int64
	Processed  int64
	Succeeded  int64
	Failed     int64
	FailedPct  float64
	Updated    int64
	Skipped    int64
	SkippedPct float64
	Noop       int64
	Backlog    int
	Rate       float64
}

// Totals is the outcome of a run.
type Totals struct {
	RunID     string
	Listed    int64
	Processed int64
	Succeeded int64
	Failed    int64
	Updated   int64
	Skipped   int64
	Noop      int64
	Rate      float64
	Duration  time.Duration
	// Failures holds the first failures of the run, in report order.
	Failures        []Failure
	DroppedFailures int
	Interrupted     bool
}

// StatsConfig configures a Stats aggregator.
type StatsConfig struct {
	Logger          *logger.Logger
	SummaryInterval int
	EMAContribution float64
	Clock           func() time.Time
	Metrics         *observability.PipelineMetrics
	// Backlog reports the number of items waiting in the work queue.
	Backlog func() int
	// OnSummary is called with every summary after it is logged, while the
	// aggregator is locked. It must not call back into Stats.
	OnSummary func(Summary)
}

// Stats is the default aggregation routine. It counts reports by kind and
// logs a summary with a smoothed processing rate every SummaryInterval
// processed items.
type Stats struct {
	cfg StatsConfig
	log *logger.Logger
	ema *EMA

	mu        sync.Mutex
	started   time.Time
	listed    int64
	processed int64
	succeeded int64
	failed    int64
	updated   int64
	skipped   int64
	noop      int64
	failures  []Failure
	dropped   int
}

// NewStats creates a Stats aggregator.
func NewStats(cfg StatsConfig) *Stats {
	if cfg.SummaryInterval < 1 {
		cfg.SummaryInterval = DefaultSummaryInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Stats{
		cfg:     cfg,
		log:     cfg.Logger.WithComponent("reporter"),
		ema:     NewEMA(cfg.EMAContribution),
		started: cfg.Clock(),
	}
}

// Aggregate is an AggregateFunc that feeds every report to s. The run
// duration is measured from the moment it starts.
func (s *Stats) Aggregate(r *Reporter) {
	s.mu.Lock()
	s.started = s.cfg.Clock()
	s.mu.Unlock()
	r.Each(s.Observe)
}

// Observe folds one report into the counters.
func (s *Stats) Observe(rep Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	switch rep.Kind {
	case KindListed:
		n, _ := rep.Payload.(int)
		s.listed += int64(n)
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.RecordListed(ctx, n)
		}
		return
	case KindProcessed:
		s.processed++
		if s.processed%int64(s.cfg.SummaryInterval) == 0 {
			s.emitSummaryLocked()
		}
	case KindSucceeded:
		s.succeeded++
	case KindFailed:
		s.failed++
		s.recordFailureLocked(rep.Payload)
	case KindUpdated:
		s.updated++
	case KindSkipped:
		s.skipped++
	case KindNoop:
		s.noop++
	default:
		return
	}
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordReport(ctx, string(rep.Kind))
	}
}

func (s *Stats) recordFailureLocked(payload any) {
	f, ok := payload.(Failure)
	if !ok {
		f = Failure{Item: payload}
	}
	if f.Err == nil {
		f.Err = fmt.Errorf("failed: %v", f.Item)
	}
	s.log.Error("item failed", logger.ErrorFields(f.Key, f.Err))

	if len(s.failures) < maxRetainedFailures {
		s.failures = append(s.failures, f)
	} else {
		s.dropped++
	}
}

func (s *Stats) emitSummaryLocked() {
	s.ema.Sample(s.processed, s.cfg.Clock())
	sum := s.summaryLocked()
	s.log.Info("progress", summaryFields(sum))
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.RecordSummary(context.Background(), sum.Rate, sum.Backlog)
	}
	if s.cfg.OnSummary != nil {
		s.cfg.OnSummary(sum)
	}
}

func (s *Stats) summaryLocked() Summary {
	sum := Summary{
		Listed:    s.listed,
		Processed: s.processed,
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Updated:   s.updated,
		Skipped:   s.skipped,
		Noop:      s.noop,
		Rate:      s.ema.Value(),
	}
	if s.processed > 0 {
		sum.FailedPct = percent(s.failed, s.processed)
		sum.SkippedPct = percent(s.skipped, s.processed)
	}
	if s.cfg.Backlog != nil {
		sum.Backlog = s.cfg.Backlog()
	}
	return sum
}

// Summary returns the current counters without taking a rate sample.
func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

// Totals returns the cumulative counters and retained failures.
func (s *Stats) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals{
		Listed:          s.listed,
		Processed:       s.processed,
		Succeeded:       s.succeeded,
		Failed:          s.failed,
		Updated:         s.updated,
		Skipped:         s.skipped,
		Noop:            s.noop,
		Rate:            s.ema.Value(),
		Duration:        s.cfg.Clock().Sub(s.started),
		Failures:        append([]Failure(nil), s.failures...),
		DroppedFailures: s.dropped,
	}
}

// LogTotals logs the final cumulative counters.
func (s *Stats) LogTotals() {
	s.mu.Lock()
	sum := s.summaryLocked()
	elapsed := s.cfg.Clock().Sub(s.started)
	s.mu.Unlock()

	fields := summaryFields(sum)
	fields[logger.FieldDuration] = elapsed.Milliseconds()
	s.log.Info("totals", fields)
}

func summaryFields(sum Summary) map[string]interface{} {
	return logger.Fields(
		"listed", sum.Listed,
		"processed", sum.Processed,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"failed_pct", round2(sum.FailedPct),
		"updated", sum.Updated,
		"skipped", sum.Skipped,
		"skipped_pct", round2(sum.SkippedPct),
		"noop", sum.Noop,
		"backlog", sum.Backlog,
		"rate", round2(sum.Rate),
	)
}

func percent(part, whole int64) float64 {
	return float64(part) * 100 / float64(whole)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
