// Package ranking scores predicate candidates. It performs no I/O.
package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"go.trai.ch/predicate/internal/core/domain"
)

// GraphView is the read side of the citation graph used for scoring.
type GraphView interface {
	InDegree(id string) int
	Depth(id string) int
}

// Factor names as they appear in rationales.
const (
	FactorInDegree   = "in_degree"
	FactorRecency    = "recency"
	FactorDepth      = "depth"
	FactorSimilarity = "similarity"
)

// Engine ranks candidates with a weighted sum of normalized factors.
type Engine struct {
	cfg domain.RankingConfig
}

// New creates an Engine using cfg's weights, half-life and tie break.
func New(cfg domain.RankingConfig) *Engine {
	return &Engine{cfg: cfg}
}

type scored struct {
	domain.RankedCandidate
	depth int
}

// Rank scores every candidate and returns them best first.
// Identical inputs always produce the same order.
func (e *Engine) Rank(candidates []domain.Candidate, q domain.QueryContext, g GraphView) []domain.RankedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	inDegrees := make([]int, len(candidates))
	depths := make([]int, len(candidates))
	maxIn, maxDepth := 0, 0
	for i, c := range candidates {
		inDegrees[i] = g.InDegree(c.Record.ID)
		depths[i] = g.Depth(c.Record.ID)
		maxIn = max(maxIn, inDegrees[i])
		maxDepth = max(maxDepth, depths[i])
	}
	similarity := e.similarities(candidates, q.Description)

	results := make([]scored, len(candidates))
	for i, c := range candidates {
		f := domain.FactorScores{
			InDegree:   inDegreeScore(inDegrees[i], maxIn),
			Recency:    e.recencyScore(c.Record.DecisionDate, q.Now),
			Depth:      ratio(depths[i], maxDepth),
			Similarity: similarity[i],
		}
		results[i] = scored{
			RankedCandidate: domain.RankedCandidate{
				ID:         c.Record.ID,
				Score:      e.score(f),
				Factors:    f,
				Confidence: c.Confidence,
				InDegree:   inDegrees[i],
				DecisionAt: c.Record.DecisionDate,
			},
			depth: depths[i],
		}
	}

	slices.SortStableFunc(results, e.compare)

	ranked := make([]domain.RankedCandidate, len(results))
	for i, r := range results {
		r.Rationale = e.rationale(r)
		ranked[i] = r.RankedCandidate
	}
	return ranked
}

func (e *Engine) score(f domain.FactorScores) float64 {
	w := e.cfg.Weights
	total := w.InDegree + w.Recency + w.Depth + w.Similarity
	if total <= 0 {
		return 0
	}
	sum := w.InDegree*f.InDegree + w.Recency*f.Recency + w.Depth*f.Depth + w.Similarity*f.Similarity
	return sum / total
}

// compare orders by score, then in-degree, then decision date, then identifier.
func (e *Engine) compare(a, b scored) int {
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(b.InDegree, a.InDegree); c != 0 {
		return c
	}
	if c := b.DecisionAt.Compare(a.DecisionAt); c != 0 {
		return c
	}
	if e.cfg.TieBreak == domain.TieBreakIDDesc {
		return strings.Compare(b.ID, a.ID)
	}
	return strings.Compare(a.ID, b.ID)
}

// inDegreeScore is logarithmic so a handful of extra citations matters more at the low end.
func inDegreeScore(d, maxD int) float64 {
	if maxD <= 0 {
		return 0
	}
	return math.Log1p(float64(d)) / math.Log1p(float64(maxD))
}

// recencyScore halves every half-life. Unknown dates score 0 and future dates score 1.
func (e *Engine) recencyScore(decided, now time.Time) float64 {
	if decided.IsZero() || e.cfg.RecencyHalfLife <= 0 {
		return 0
	}
	age := now.Sub(decided)
	if age <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * age.Hours() / e.cfg.RecencyHalfLife.Hours())
}

func ratio(v, maxV int) float64 {
	if maxV <= 0 {
		return 0
	}
	return float64(v) / float64(maxV)
}

func (e *Engine) similarities(candidates []domain.Candidate, query string) []float64 {
	out := make([]float64, len(candidates))
	queryTerms := countTerms(tokenize(query))
	if len(queryTerms) == 0 {
		return out
	}

	docs := make([]termCounts, 0, len(candidates)+1)
	docs = append(docs, queryTerms)
	for _, c := range candidates {
		docs = append(docs, countTerms(tokenize(candidateText(c))))
	}

	corp := newCorpus(docs)
	qv := corp.vector(queryTerms)
	for i := range candidates {
		out[i] = cosine(qv, corp.vector(docs[i+1]))
	}
	return out
}

func candidateText(c domain.Candidate) string {
	parts := []string{c.Record.DeviceName, c.Record.Description, c.Text}
	return strings.Join(parts, "\n")
}

type contribution struct {
	name  string
	value float64
	note  string
}

// rationale lists the factors whose weighted share reaches the material
// threshold, largest first, followed by any confidence caveat.
func (e *Engine) rationale(r scored) []string {
	w := e.cfg.Weights
	total := w.InDegree + w.Recency + w.Depth + w.Similarity
	if total <= 0 {
		total = 1
	}
	f := r.Factors

	contribs := []contribution{
		{FactorInDegree, w.InDegree * f.InDegree / total, fmt.Sprintf("cited by %d devices", r.InDegree)},
		{FactorRecency, w.Recency * f.Recency / total, "decided " + formatDate(r.DecisionAt)},
		{FactorDepth, w.Depth * f.Depth / total, fmt.Sprintf("predicate lineage %d deep", r.depth)},
		{FactorSimilarity, w.Similarity * f.Similarity / total, fmt.Sprintf("description similarity %.2f", f.Similarity)},
	}
	slices.SortStableFunc(contribs, func(a, b contribution) int {
		return cmp.Compare(b.value, a.value)
	})

	var lines []string
	for _, c := range contribs {
		if c.value < e.cfg.Material || c.value == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (+%.3f)", c.name, c.note, c.value))
	}
	return append(lines, confidenceNotes(r.Confidence)...)
}

func confidenceNotes(c domain.Confidence) []string {
	var notes []string
	if len(c.Unavailable) > 0 {
		notes = append(notes, "confidence low: missing "+strings.Join(c.Unavailable, ", "))
	}
	if len(c.Degraded) > 0 {
		notes = append(notes, "confidence reduced: degraded "+strings.Join(c.Degraded, ", "))
	}
	return notes
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "on an unknown date"
	}
	return t.Format(time.DateOnly)
}
