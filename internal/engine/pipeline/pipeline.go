// Package pipeline orchestrates fetching, extraction, graph maintenance and ranking.
package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/predicate/internal/engine/citation"
	"go.trai.ch/predicate/internal/engine/ranking"
)

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Registry  ports.Registry
	Documents ports.DocumentFetcher
	Extractor ports.TextExtractor
	Cache     ports.CacheStore
	Graph     ports.GraphStore
	Tracer    ports.Tracer
	Logger    ports.Logger
	Metrics   ports.Metrics
}

// Pipeline runs devices through record, document, text and citation stages
// on a bounded worker pool and ranks the results.
type Pipeline struct {
	cfg       *domain.Config
	registry  ports.Registry
	documents ports.DocumentFetcher
	extractor ports.TextExtractor
	cache     ports.CacheStore
	store     ports.GraphStore
	tracer    ports.Tracer
	logger    ports.Logger
	metrics   ports.Metrics
	citations *citation.Extractor
	ranker    *ranking.Engine

	now      func() time.Time
	newRunID func() string

	mu    sync.Mutex
	graph *domain.CitationGraph
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(fn func() string) Option {
	return func(p *Pipeline) { p.newRunID = fn }
}

// New creates a Pipeline.
func New(cfg *domain.Config, deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		registry:  deps.Registry,
		documents: deps.Documents,
		extractor: deps.Extractor,
		cache:     deps.Cache,
		store:     deps.Graph,
		tracer:    deps.Tracer,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		citations: citation.New(),
		ranker:    ranking.New(cfg.Ranking),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Graph returns a snapshot of the citation graph, loading it from the store on first use.
func (p *Pipeline) Graph() (*domain.CitationGraph, error) {
	g, err := p.citationGraph()
	if err != nil {
		return nil, err
	}
	return g.Snapshot(), nil
}

// citationGraph returns the live graph shared by all workers.
func (p *Pipeline) citationGraph() (*domain.CitationGraph, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.graph != nil {
		return p.graph, nil
	}
	g, err := p.store.LoadGraph()
	if err != nil {
		return nil, err
	}
	p.graph = g
	return g, nil
}
