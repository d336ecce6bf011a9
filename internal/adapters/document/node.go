package document

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/cache"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/adapters/logger"
	"go.trai.ch/predicate/internal/adapters/metrics"
	"go.trai.ch/predicate/internal/adapters/ratelimit"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

// NodeID is the unique identifier for the document fetcher Graft node.
const NodeID graft.ID = "adapter.document"

func init() {
	graft.Register(graft.Node[ports.DocumentFetcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, cache.NodeID, ratelimit.NodeID, logger.NodeID, metrics.NodeID},
		Run: func(ctx context.Context) (ports.DocumentFetcher, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}
			limiter, err := graft.Dep[ports.RateLimiter](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			m, err := graft.Dep[ports.Metrics](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg, store, limiter, log, m), nil
		},
	})
}
