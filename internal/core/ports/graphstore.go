package ports

import "go.trai.ch/predicate/internal/core/domain"

// GraphStore persists the citation graph and the device records behind it.
//
//go:generate go run go.uber.org/mock/mockgen -source=graphstore.go -destination=mocks/mock_graphstore.go -package=mocks
type GraphStore interface {
	// LoadGraph reads the persisted graph. An empty store yields an empty graph.
	LoadGraph() (*domain.CitationGraph, error)
	// SaveGraph replaces the persisted graph.
	SaveGraph(g *domain.CitationGraph) error
	// GetRecord returns nil, nil when id is unknown.
	GetRecord(id string) (*domain.DeviceRecord, error)
	PutRecord(rec *domain.DeviceRecord) error
	// DeleteRecord removes the record for id.
	DeleteRecord(id string) error
	// DeleteNode removes the record for id and every edge touching it.
	DeleteNode(id string) error
}
