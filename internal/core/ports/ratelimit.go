package ports

import "context"

// RateLimiter throttles outbound registry traffic.
// Every network call acquires its tokens here first.
//
//go:generate go run go.uber.org/mock/mockgen -source=ratelimit.go -destination=mocks/mock_ratelimit.go -package=mocks
type RateLimiter interface {
	// Acquire blocks until n tokens are available or the context ends.
	Acquire(ctx context.Context, n int) error
}
