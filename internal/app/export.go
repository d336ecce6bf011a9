package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// Graph export formats.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
)

type exportNode struct {
	ID           string `json:"id"`
	InDegree     int    `json:"in_degree"`
	Depth        int    `json:"depth"`
	Applicant    string `json:"applicant,omitempty"`
	DecisionDate string `json:"decision_date,omitempty"`
	ProductCode  string `json:"product_code,omitempty"`
}

type exportGraph struct {
	Nodes []exportNode   `json:"nodes"`
	Edges []domain.Edge  `json:"edges"`
	Stats map[string]int `json:"stats"`
}

// WriteGraph renders g with the known records as JSON or Graphviz DOT.
func WriteGraph(w io.Writer, g *domain.CitationGraph, records map[string]*domain.DeviceRecord, format string) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, g, records)
	case FormatDOT:
		return writeDOT(w, g, records)
	default:
		return zerr.With(zerr.Wrap(domain.ErrUnsupportedExportFormat, "cannot export graph"), "format", format)
	}
}

func nodesOf(g *domain.CitationGraph, records map[string]*domain.DeviceRecord) []exportNode {
	ids := g.Nodes()
	nodes := make([]exportNode, 0, len(ids))
	for _, id := range ids {
		n := exportNode{ID: id, InDegree: g.InDegree(id), Depth: g.Depth(id)}
		if rec := records[id]; rec != nil {
			n.Applicant = rec.Applicant
			n.ProductCode = rec.ProductCode
			if !rec.DecisionDate.IsZero() {
				n.DecisionDate = rec.DecisionDate.Format("2006-01-02")
			}
		}
		nodes = append(nodes, n)
	}
	return nodes
}

func writeJSON(w io.Writer, g *domain.CitationGraph, records map[string]*domain.DeviceRecord) error {
	edges := g.Edges()
	if edges == nil {
		edges = []domain.Edge{}
	}
	out := exportGraph{
		Nodes: nodesOf(g, records),
		Edges: edges,
		Stats: map[string]int{"nodes": len(g.Nodes()), "edges": len(edges)},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return zerr.Wrap(err, "failed to encode graph")
	}
	return nil
}

func writeDOT(w io.Writer, g *domain.CitationGraph, records map[string]*domain.DeviceRecord) error {
	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString("digraph citations {\n")
	_, _ = bw.WriteString("  rankdir=BT;\n")
	_, _ = bw.WriteString("  node [shape=box];\n")
	for _, n := range nodesOf(g, records) {
		label := n.ID
		if n.DecisionDate != "" {
			label += `\n` + n.DecisionDate
		}
		label += `\ncited by ` + strconv.Itoa(n.InDegree)
		_, _ = fmt.Fprintf(bw, "  %q [label=\"%s\"];\n", n.ID, label)
	}
	for _, e := range g.Edges() {
		_, _ = fmt.Fprintf(bw, "  %q -> %q;\n", e.Citing, e.Cited)
	}
	_, _ = bw.WriteString("}\n")
	if err := bw.Flush(); err != nil {
		return zerr.Wrap(err, "failed to write graph")
	}
	return nil
}
