package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/cache"      //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/graphstore" //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/metrics"    //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/telemetry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/adapters/watcher"    //nolint:depguard // Wired in app layer
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/predicate/internal/engine/freshness"
	"go.trai.ch/predicate/internal/engine/pipeline"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			pipeline.NodeID,
			freshness.NodeID,
			graphstore.StoreNodeID,
			cache.StoreNodeID,
			watcher.WatcherNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			config.NodeID,
			graphstore.StoreNodeID,
			telemetry.ProviderNodeID,
			metrics.PrometheusNodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	p, err := graft.Dep[*pipeline.Pipeline](ctx)
	if err != nil {
		return nil, err
	}

	detector, err := graft.Dep[*freshness.Detector](ctx)
	if err != nil {
		return nil, err
	}

	graph, err := graft.Dep[*graphstore.Store](ctx)
	if err != nil {
		return nil, err
	}

	store, err := graft.Dep[*cache.Store](ctx)
	if err != nil {
		return nil, err
	}

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	return New(cfg, p, detector, graph, graph, log).WithWatcher(w, store), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	a, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	graph, err := graft.Dep[*graphstore.Store](ctx)
	if err != nil {
		return nil, err
	}

	provider, err := graft.Dep[*telemetry.Provider](ctx)
	if err != nil {
		return nil, err
	}

	prom, err := graft.Dep[*metrics.Prometheus](ctx)
	if err != nil {
		return nil, err
	}

	closers := []Closer{
		func(context.Context) error { return graph.Close() },
		provider.Shutdown,
	}
	if path := cfg.Telemetry.MetricsFile; path != "" {
		closers = append(closers, func(context.Context) error { return prom.WriteTextfile(path) })
	}

	return NewComponents(a, log, closers...), nil
}
