// Package ratelimiter bounds how fast each external webhook source can
// push events into the broker.
package ratelimiter

import (
	"golang.org/x/time/rate"
)

// Webhook sources with an independent token bucket each.
const (
	SourcePayments   = "payments"
	SourceScheduling = "scheduling"
)

// SourceLimiters holds one token bucket limiter per webhook source.
// Each limiter enforces a steady-state rate (e.g. 100 tokens/sec).
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type SourceLimiters struct {
	limiters map[string]*rate.Limiter
}

// New creates a SourceLimiters with ratePerSec tokens per second per source.
func New(ratePerSec int) *SourceLimiters {
	r := rate.Limit(ratePerSec)
	burst := ratePerSec // burst == rate: prevents any "saved up" burst above the limit

	return &SourceLimiters{
		limiters: map[string]*rate.Limiter{
			SourcePayments:   rate.NewLimiter(r, burst),
			SourceScheduling: rate.NewLimiter(r, burst),
		},
	}
}

// Allow reports whether the source may proceed right now. Unknown sources
// are always allowed; only registered webhook sources are throttled.
func (sl *SourceLimiters) Allow(source string) bool {
	l, ok := sl.limiters[source]
	if !ok {
		return true
	}
	return l.Allow()
}
