package util

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// DefaultRetryOption reusable default configuration
var DefaultRetryOption = RetryOption{
	MaxRetries:  10,
	InitBackoff: 5 * time.Millisecond,
	MaxBackoff:  500 * time.Millisecond,
	MaskBackoff: 2,
	RandFactor:  0.15,
}

// RetryOption provides reusable configuration of Retry objects.
type RetryOption struct {
	MaxRetries  int
	InitBackoff time.Duration
	MaxBackoff  time.Duration
	MaskBackoff float64
	RandFactor  float64
	Context     context.Context
}

// Retry implements an exponential backoff retry loop.
type Retry struct {
	option  RetryOption
	current int
	isStart bool
}

// NewRetry returns a new Retry initialized to some default values.
func NewRetry(opt *RetryOption) *Retry {
	if opt.InitBackoff == 0 {
		opt.InitBackoff = 5 * time.Millisecond
	}
	if opt.MaxBackoff == 0 {
		opt.MaxBackoff = 500 * time.Millisecond
	}
	if opt.MaskBackoff == 0 {
		opt.MaskBackoff = 2
	}
	if opt.RandFactor == 0 {
		opt.RandFactor = 0.15
	}
	if opt.Context == nil {
		opt.Context = context.Background()
	}

	r := &Retry{option: *opt}
	r.Reset()
	return r
}

// Reset reset to initial state
func (r *Retry) Reset() {
	select {
	case <-r.option.Context.Done():
		return

	default:
		r.current = 0
		r.isStart = true
	}
}

// Stop stop retry loop
func (r *Retry) Stop() {
	r.isStart = false
}

// Next returns whether the retry loop should continue, waiting out the
// backoff interval before every attempt but the first.
func (r *Retry) Next() (bool, int) {
	if !r.isStart {
		return false, r.current
	}
	if r.current == 0 {
		r.current++
		return true, r.current
	}
	if r.option.MaxRetries > 0 && r.current >= r.option.MaxRetries {
		return false, r.current
	}

	// Wait before retry.
	select {
	case <-time.After(r.retryInterval()):
		r.current++
		return true, r.current
	case <-r.option.Context.Done():
		return false, r.current
	}
}

func (r *Retry) retryInterval() time.Duration {
	backoff := float64(r.option.InitBackoff) * math.Pow(r.option.MaskBackoff, float64(r.current))
	if maxBackoff := float64(r.option.MaxBackoff); backoff > maxBackoff {
		backoff = maxBackoff
	}

	delta := r.option.RandFactor * backoff
	return time.Duration(backoff - delta + rand.Float64()*(2*delta+1))
}
