package cache

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

const (
	// StoreNodeID is the unique identifier for the concrete cache store Graft node.
	StoreNodeID graft.ID = "adapter.cache.store"
	// NodeID is the unique identifier for the cache store port Graft node.
	NodeID graft.ID = "adapter.cache"
)

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        StoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (*Store, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(cfg.CacheDir, cfg.Cache.MaxBytes)
		},
	})

	graft.Register(graft.Node[ports.CacheStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.CacheStore, error) {
			store, err := graft.Dep[*Store](ctx)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	})
}
