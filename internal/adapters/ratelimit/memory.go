package ratelimit

import (
	"sync"
	"time"

	"go.trai.ch/predicate/internal/core/domain"
)

// MemoryLimiter is an in-process token bucket.
type MemoryLimiter struct {
	*limiter
	mu    sync.Mutex
	state state
}

// NewMemoryLimiter creates a full in-process bucket.
func NewMemoryLimiter(cfg domain.RateLimitConfig, opts ...Option) *MemoryLimiter {
	m := &MemoryLimiter{}
	m.limiter = newLimiter(cfg, m.takeTokens, opts)
	m.state = m.bucket.full(m.now())
	return m
}

func (m *MemoryLimiter) takeTokens(n int, now time.Time) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var wait time.Duration
	m.state, wait = m.bucket.take(m.state, n, now)
	return wait, nil
}
