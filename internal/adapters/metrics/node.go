package metrics

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/core/ports"
)

const (
	// PrometheusNodeID is the unique identifier for the concrete metrics Graft node.
	PrometheusNodeID graft.ID = "adapter.metrics.prometheus"
	// NodeID is the unique identifier for the metrics port Graft node.
	NodeID graft.ID = "adapter.metrics"
)

func init() {
	graft.Register(graft.Node[*Prometheus]{
		ID:        PrometheusNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*Prometheus, error) {
			return New(), nil
		},
	})

	graft.Register(graft.Node[ports.Metrics]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{PrometheusNodeID},
		Run: func(ctx context.Context) (ports.Metrics, error) {
			p, err := graft.Dep[*Prometheus](ctx)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	})
}
