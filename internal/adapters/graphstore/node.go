package graphstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

const (
	// StoreNodeID is the unique identifier for the concrete graph store Graft node.
	StoreNodeID graft.ID = "adapter.graphstore.store"
	// NodeID is the unique identifier for the graph store port Graft node.
	NodeID graft.ID = "adapter.graphstore"
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
			return Open(cfg.GraphDir)
		},
	})

	graft.Register(graft.Node[ports.GraphStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.GraphStore, error) {
			s, err := graft.Dep[*Store](ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	})
}
