package ratelimit

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/adapters/metrics"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

// NodeID is the unique identifier for the rate limiter Graft node.
const NodeID graft.ID = "adapter.ratelimit"

func init() {
	graft.Register(graft.Node[ports.RateLimiter]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, metrics.NodeID},
		Run: func(ctx context.Context) (ports.RateLimiter, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			m, err := graft.Dep[ports.Metrics](ctx)
			if err != nil {
				return nil, err
			}
			limiter, err := NewFileLimiter(cfg.StateDir, cfg.RateLimit, WithMetrics(m))
			if err != nil {
				return nil, err
			}
			return limiter, nil
		},
	})
}
