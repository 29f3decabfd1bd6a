package pipeline

import "time"

// DefaultEMAContribution is the weight of each new rate sample.
const DefaultEMAContribution = 0.10

// EMA is an exponential moving average of a rate, sampled from a running
// count at chosen moments.
//
// The first sample only sets the reference point. The second seeds the
// average with the measured rate. Later samples blend:
//
//	ema = ema*(1-c) + rate*c
type EMA struct {
	contribution float64
	value        float64
	samples      int
	lastCount    int64
	lastAt       time.Time
}

// NewEMA returns an EMA with weight c. Values outside (0,1] fall back to
// DefaultEMAContribution.
func NewEMA(c float64) *EMA {
	if c <= 0 || c > 1 {
		c = DefaultEMAContribution
	}
	return &EMA{contribution: c}
}

// Sample feeds the running count observed at time at and returns the
// updated average. Samples with no elapsed time are ignored.
func (e *EMA) Sample(count int64, at time.Time) float64 {
	if e.samples == 0 {
		e.samples, e.lastCount, e.lastAt = 1, count, at
		return e.value
	}

	elapsed := at.Sub(e.lastAt).Seconds()
	if elapsed <= 0 {
		return e.value
	}
	rate := float64(count-e.lastCount) / elapsed

	if e.samples == 1 {
		e.value = rate
	} else {
		e.value = e.value*(1-e.contribution) + rate*e.contribution
	}
	e.samples++
	e.lastCount, e.lastAt = count, at
	return e.value
}

// Value returns the current average.
func (e *EMA) Value() float64 { return e.value }

// Contribution returns the blend weight.
func (e *EMA) Contribution() float64 { return e.contribution }
