package freshness

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/cache"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/graphstore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/registry"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/core/ports"
)

// NodeID is the unique identifier for the freshness detector Graft node.
const NodeID graft.ID = "engine.freshness"

func init() {
	graft.Register(graft.Node[*Detector]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{registry.NodeID, cache.NodeID, graphstore.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (*Detector, error) {
			reg, err := graft.Dep[ports.Registry](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}
			graph, err := graft.Dep[ports.GraphStore](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(reg, store, graph, log), nil
		},
	})
}
