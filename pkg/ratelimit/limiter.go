package ratelimit

import (
	"context"
	"time"

	"go.uber.org/ratelimit"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until another request may be sent
	Wait(ctx context.Context) error
}

// Interval guarantees at least a fixed gap between consecutive calls to Wait.
// The first call returns immediately.
type Interval struct {
	every time.Duration
	rl    ratelimit.Limiter
}

// NewInterval creates a limiter that spaces requests at least every apart.
// A zero or negative interval yields an unlimited limiter.
func NewInterval(every time.Duration) *Interval {
	if every <= 0 {
		return &Interval{rl: ratelimit.NewUnlimited()}
	}
	return &Interval{
		every: every,
		rl:    ratelimit.New(1, ratelimit.Per(every), ratelimit.WithoutSlack),
	}
}

// Wait blocks until the interval since the previous call has elapsed.
// The underlying limiter cannot be interrupted, so ctx is only checked
// before blocking.
func (i *Interval) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	i.rl.Take()
	return nil
}

// Every returns the configured minimum spacing
func (i *Interval) Every() time.Duration {
	return i.every
}

// Unlimited returns a limiter that never blocks
func Unlimited() Limiter {
	return NewInterval(0)
}
