package textextract

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/predicate/internal/adapters/config"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
)

// NodeID is the unique identifier for the text extractor Graft node.
const NodeID graft.ID = "adapter.textextract"

func init() {
	graft.Register(graft.Node[ports.TextExtractor]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.TextExtractor, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Extract.MinChars), nil
		},
	})
}
