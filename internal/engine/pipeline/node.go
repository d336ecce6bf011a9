package pipeline

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/cache"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/config"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/document"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/graphstore"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/logger"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/metrics"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/registry"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/telemetry"   //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/adapters/textextract" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

// NodeID is the unique identifier for the pipeline Graft node.
const NodeID graft.ID = "engine.pipeline"

func init() {
	graft.Register(graft.Node[*Pipeline]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			registry.NodeID,
			document.NodeID,
			textextract.NodeID,
			cache.NodeID,
			graphstore.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
			metrics.NodeID,
		},
		Run: func(ctx context.Context) (*Pipeline, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}

			var deps Deps
			if deps.Registry, err = graft.Dep[ports.Registry](ctx); err != nil {
				return nil, err
			}
			if deps.Documents, err = graft.Dep[ports.DocumentFetcher](ctx); err != nil {
				return nil, err
			}
			if deps.Extractor, err = graft.Dep[ports.TextExtractor](ctx); err != nil {
				return nil, err
			}
			if deps.Cache, err = graft.Dep[ports.CacheStore](ctx); err != nil {
				return nil, err
			}
			if deps.Graph, err = graft.Dep[ports.GraphStore](ctx); err != nil {
				return nil, err
			}
			if deps.Tracer, err = graft.Dep[ports.Tracer](ctx); err != nil {
				return nil, err
			}
			if deps.Logger, err = graft.Dep[ports.Logger](ctx); err != nil {
				return nil, err
			}
			if deps.Metrics, err = graft.Dep[ports.Metrics](ctx); err != nil {
				return nil, err
			}

			return New(cfg, deps), nil
		},
	})
}
