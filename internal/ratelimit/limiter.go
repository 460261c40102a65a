// Package ratelimit provides the per-worker byte throttle.
package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

const maxBurst = math.MaxInt32

// Limiter is a token bucket refilled at a fixed number of bytes per second.
// The bucket holds at most one second worth of tokens. A rate <= 0 disables
// throttling.
type Limiter struct {
	limiter *rate.Limiter
}

func New(bytesPerSec int64) *Limiter {
	if bytesPerSec <= 0 {
		return &Limiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burstFor(bytesPerSec))}
}

// Acquire blocks until n tokens have been consumed. Requests larger than the
// bucket are served in bucket-sized installments, so they always succeed.
func (l *Limiter) Acquire(n int) {
	for n > 0 {
		take := n
		if l.limiter.Limit() != rate.Inf {
			take = min(n, max(l.limiter.Burst(), 1))
		}
		if err := l.limiter.WaitN(context.Background(), take); err != nil {
			// burst shrank between reading it and waiting; size again
			continue
		}
		n -= take
	}
}

// SetRate changes the refill rate for future acquisitions. A wait already in
// progress keeps its reservation.
func (l *Limiter) SetRate(bytesPerSec int64) {
	if bytesPerSec <= 0 {
		l.limiter.SetLimit(rate.Inf)
		return
	}
	l.limiter.SetLimit(rate.Limit(bytesPerSec))
	l.limiter.SetBurst(burstFor(bytesPerSec))
}

// Rate returns the current rate in bytes per second, or 0 when unlimited.
func (l *Limiter) Rate() int64 {
	limit := l.limiter.Limit()
	if limit == rate.Inf {
		return 0
	}
	return int64(limit)
}

func burstFor(bytesPerSec int64) int {
	if bytesPerSec > maxBurst {
		return maxBurst
	}
	return int(bytesPerSec)
}
