// Package domain contains the core domain models of the predicate pipeline.
package domain

import (
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zerr"
)

// Edge is a directed citation: Citing references Cited as a predicate.
type Edge struct {
	Citing string `json:"citing"`
	Cited  string `json:"cited"`
}

type set map[string]struct{}

// CitationGraph is a directed graph of predicate citations.
// It is safe for concurrent use.
type CitationGraph struct {
	mu  sync.RWMutex
	out map[string]set
	in  map[string]set
}

// NewCitationGraph creates a new empty CitationGraph.
func NewCitationGraph() *CitationGraph {
	return &CitationGraph{
		out: make(map[string]set),
		in:  make(map[string]set),
	}
}

// AddNode registers a node without edges.
func (g *CitationGraph) AddNode(id string) {
	if id == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(id)
}

func (g *CitationGraph) ensure(id string) {
	if _, ok := g.out[id]; !ok {
		g.out[id] = make(set)
	}
	if _, ok := g.in[id]; !ok {
		g.in[id] = make(set)
	}
}

// AddEdges inserts an edge from citing to each cited id and returns how many were new.
// Self-loops and empty ids are ignored, and re-adding an existing edge is a no-op.
func (g *CitationGraph) AddEdges(citing string, cited ...string) int {
	if citing == "" {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addEdgesLocked(citing, cited)
}

func (g *CitationGraph) addEdgesLocked(citing string, cited []string) int {
	g.ensure(citing)
	added := 0
	for _, c := range cited {
		if c == "" || c == citing {
			continue
		}
		g.ensure(c)
		if _, exists := g.out[citing][c]; exists {
			continue
		}
		g.out[citing][c] = struct{}{}
		g.in[c][citing] = struct{}{}
		added++
	}
	return added
}

// ReplaceEdges sets the outgoing edges of citing to exactly cited.
// Reprocessing a document therefore drops citations it no longer contains.
func (g *CitationGraph) ReplaceEdges(citing string, cited ...string) {
	if citing == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropOutgoing(citing)
	g.addEdgesLocked(citing, cited)
}

func (g *CitationGraph) dropOutgoing(id string) {
	for c := range g.out[id] {
		delete(g.in[c], id)
	}
	g.out[id] = make(set)
}

// RemoveOutgoing deletes every citation made by id but keeps the node.
func (g *CitationGraph) RemoveOutgoing(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.out[id]; ok {
		g.dropOutgoing(id)
	}
}

// RemoveNode deletes id and every edge touching it.
func (g *CitationGraph) RemoveNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dropOutgoing(id)
	for c := range g.in[id] {
		delete(g.out[c], id)
	}
	delete(g.out, id)
	delete(g.in, id)
}

// Has reports whether id is a node of the graph.
func (g *CitationGraph) Has(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.out[id]
	return ok
}

// Citing returns the ids that id cites, sorted.
func (g *CitationGraph) Citing(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.out[id])
}

// CitedBy returns the ids that cite id, sorted.
func (g *CitationGraph) CitedBy(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedSet(g.in[id])
}

// InDegree returns how many nodes cite id.
func (g *CitationGraph) InDegree(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.in[id])
}

// Depth returns the length of the longest predicate lineage behind id:
// id cites p1, p1 cites p2 and so on. A node citing nothing has depth 0.
// Cycles terminate the walk; the edge closing a cycle contributes nothing.
func (g *CitationGraph) Depth(id string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.depth(id, make(map[string]int), make(set))
}

func (g *CitationGraph) depth(id string, memo map[string]int, visiting set) int {
	if d, ok := memo[id]; ok {
		return d
	}
	visiting[id] = struct{}{}
	best := 0
	for _, c := range sortedSet(g.out[id]) {
		if _, onPath := visiting[c]; onPath {
			continue
		}
		if d := g.depth(c, memo, visiting) + 1; d > best {
			best = d
		}
	}
	delete(visiting, id)
	memo[id] = best
	return best
}

// Validate checks the graph for citation cycles.
// Cycles indicate extraction noise; callers should report them, not abort.
func (g *CitationGraph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := make(map[string]int) // 0: unvisited, 1: visiting, 2: visited
	var path []string

	var visit func(u string) error
	visit = func(u string) error {
		visited[u] = 1
		path = append(path, u)

		for _, c := range sortedSet(g.out[u]) {
			if visited[c] == 1 {
				return buildCycleError(path, c)
			}
			if visited[c] == 0 {
				if err := visit(c); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		return nil
	}

	for _, id := range slices.Sorted(maps.Keys(g.out)) {
		if visited[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []string, dep string) error {
	cyclePath := ""
	startIdx := slices.Index(path, dep)
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i] + " -> "
	}
	cyclePath += dep
	return zerr.With(zerr.Wrap(ErrCycleDetected, "citation graph is not acyclic"), "cycle", cyclePath)
}

// Nodes returns every node id, sorted.
func (g *CitationGraph) Nodes() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Sorted(maps.Keys(g.out))
}

// Edges returns every edge sorted by citing then cited id.
func (g *CitationGraph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var edges []Edge
	for _, citing := range slices.Sorted(maps.Keys(g.out)) {
		for _, cited := range sortedSet(g.out[citing]) {
			edges = append(edges, Edge{Citing: citing, Cited: cited})
		}
	}
	return edges
}

// Snapshot returns an independent copy of the graph.
// Later mutations of either graph are not visible in the other.
func (g *CitationGraph) Snapshot() *CitationGraph {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cp := NewCitationGraph()
	for id, cited := range g.out {
		cp.out[id] = maps.Clone(cited)
	}
	for id, citing := range g.in {
		cp.in[id] = maps.Clone(citing)
	}
	return cp
}

// Fingerprint hashes the node and edge sets in canonical order.
func (g *CitationGraph) Fingerprint() string {
	h := xxhash.New()
	for _, id := range g.Nodes() {
		_, _ = h.WriteString("n\x00" + id + "\x00")
	}
	for _, e := range g.Edges() {
		_, _ = h.WriteString("e\x00" + e.Citing + "\x00" + e.Cited + "\x00")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Annotate fills CitedBy on each record from the graph.
func (g *CitationGraph) Annotate(records []DeviceRecord) {
	for i := range records {
		records[i].CitedBy = g.CitedBy(records[i].ID)
	}
}

func sortedSet(s set) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(s))
}
