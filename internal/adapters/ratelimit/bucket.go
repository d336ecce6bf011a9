// Package ratelimit implements the token bucket that throttles registry traffic.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/zerr"
)

// state is the persisted bucket.
type state struct {
	Tokens    float64   `json:"tokens"`
	UpdatedAt time.Time `json:"updated_at"`
}

// bucket holds the refill parameters shared by all limiter implementations.
type bucket struct {
	capacity float64
	// rate is the refill rate in tokens per second.
	rate float64
}

func newBucket(cfg domain.RateLimitConfig) bucket {
	return bucket{
		capacity: float64(cfg.Requests),
		rate:     float64(cfg.Requests) / cfg.Window.Seconds(),
	}
}

func (b bucket) full(now time.Time) state {
	return state{Tokens: b.capacity, UpdatedAt: now}
}

// take refills st up to now and removes n tokens if available.
// It returns the updated state and how long the caller must wait before n tokens exist.
func (b bucket) take(st state, n int, now time.Time) (state, time.Duration) {
	if st.UpdatedAt.IsZero() || st.UpdatedAt.After(now) {
		// Unknown or future timestamps come from clock skew between processes.
		// Restart the refill window without granting extra tokens.
		st.UpdatedAt = now
	}
	elapsed := now.Sub(st.UpdatedAt).Seconds()
	st.Tokens = math.Min(b.capacity, st.Tokens+elapsed*b.rate)
	st.UpdatedAt = now

	need := float64(n)
	if st.Tokens >= need {
		st.Tokens -= need
		return st, 0
	}
	missing := need - st.Tokens
	return st, time.Duration(math.Ceil(missing / b.rate * float64(time.Second)))
}

// takeFunc attempts to take n tokens atomically and reports the wait otherwise.
type takeFunc func(n int, now time.Time) (time.Duration, error)

// limiter drives the acquire loop over a takeFunc.
type limiter struct {
	bucket  bucket
	timeout time.Duration
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	metrics ports.Metrics
	take    takeFunc
}

// Option configures a limiter.
type Option func(*limiter)

// WithClock replaces the time source and the sleep function.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// WithMetrics records time spent waiting for tokens.
func WithMetrics(m ports.Metrics) Option {
	return func(l *limiter) { l.metrics = m }
}

func newLimiter(cfg domain.RateLimitConfig, take takeFunc, opts []Option) *limiter {
	l := &limiter{
		bucket:  newBucket(cfg),
		timeout: cfg.AcquireTimeout,
		now:     time.Now,
		sleep:   sleepContext,
		take:    take,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire blocks until n tokens were taken, the deadline passes or ctx is canceled.
func (l *limiter) Acquire(ctx context.Context, n int) error {
	if n < 1 || float64(n) > l.bucket.capacity {
		err := zerr.Wrap(domain.ErrInvalidTokenRequest, "token request outside bucket capacity")
		err = zerr.With(err, "tokens", n)
		return zerr.With(err, "capacity", int(l.bucket.capacity))
	}

	start := l.now()
	deadline, ok := ctx.Deadline()
	if !ok && l.timeout > 0 {
		deadline = start.Add(l.timeout)
	}

	for {
		now := l.now()
		wait, err := l.take(n, now)
		if err != nil {
			return err
		}
		if wait == 0 {
			if l.metrics != nil {
				l.metrics.ObserveRateLimitWait(now.Sub(start))
			}
			return nil
		}

		if !deadline.IsZero() && now.Add(wait).After(deadline) {
			return l.timeoutError(n, now.Sub(start))
		}

		if err := l.sleep(ctx, wait); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return l.timeoutError(n, l.now().Sub(start))
			}
			return zerr.Wrap(err, "rate limit wait canceled")
		}
	}
}

func (l *limiter) timeoutError(n int, waited time.Duration) error {
	err := zerr.Wrap(domain.ErrRateLimitTimeout, "tokens not available before deadline")
	err = zerr.With(err, "tokens", n)
	return zerr.With(err, "waited", waited.String())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
