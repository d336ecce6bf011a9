package domain

import (
	"slices"
	"time"
)

// ConfidenceLevel summarizes how complete the data behind a result was.
type ConfidenceLevel string

const (
	// ConfidenceHigh means every stage produced fresh data.
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium means some stages served stale or degraded data.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow means some stages produced no data at all.
	ConfidenceLow ConfidenceLevel = "low"
)

// Confidence is the provenance of one device's data through the pipeline.
type Confidence struct {
	// Degraded lists stages that fell back to stale data or low quality output.
	Degraded []string `json:"degraded,omitempty"`
	// Unavailable lists stages that produced nothing.
	Unavailable []string `json:"unavailable,omitempty"`
}

// MarkDegraded records that stage produced degraded data.
func (c *Confidence) MarkDegraded(stage string) {
	if !slices.Contains(c.Degraded, stage) {
		c.Degraded = append(c.Degraded, stage)
	}
}

// MarkUnavailable records that stage produced nothing.
func (c *Confidence) MarkUnavailable(stage string) {
	if !slices.Contains(c.Unavailable, stage) {
		c.Unavailable = append(c.Unavailable, stage)
	}
}

// Level returns the summarized confidence.
func (c Confidence) Level() ConfidenceLevel {
	switch {
	case len(c.Unavailable) > 0:
		return ConfidenceLow
	case len(c.Degraded) > 0:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// Pipeline stage names used in confidence reports.
const (
	StageRecord   = "record"
	StageSafety   = "safety"
	StageDocument = "document"
	StageText     = "text"
)

// Candidate is a device offered to the ranking engine.
type Candidate struct {
	Record     DeviceRecord
	Text       string
	Confidence Confidence
}

// QueryContext describes the subject device a ranking is computed for.
type QueryContext struct {
	Description string
	ProductCode string
	// Now anchors recency. It is part of the input so ranking stays pure.
	Now time.Time
}

// FactorScores are the normalized per-factor scores, each in [0,1].
type FactorScores struct {
	InDegree   float64 `json:"in_degree"`
	Recency    float64 `json:"recency"`
	Depth      float64 `json:"depth"`
	Similarity float64 `json:"similarity"`
}

// RankedCandidate is a scored candidate with an explanation.
type RankedCandidate struct {
	ID         string       `json:"id"`
	Score      float64      `json:"score"`
	Factors    FactorScores `json:"factors"`
	Rationale  []string     `json:"rationale"`
	Confidence Confidence   `json:"confidence"`
	InDegree   int          `json:"in_degree"`
	DecisionAt time.Time    `json:"decision_date"`
}

// RankRequest asks the pipeline to rank predicates for a subject device.
type RankRequest struct {
	ProductCode string
	Description string
	// Candidates restricts ranking to these identifiers. When empty, candidates
	// are discovered by product code.
	Candidates []string
	Limit      int
	// NoCache skips the ranking fast path.
	NoCache bool
}

// RankReport is the outcome of a ranking request.
type RankReport struct {
	RunID      string            `json:"run_id"`
	Candidates []RankedCandidate `json:"candidates"`
	Warnings   []string          `json:"warnings,omitempty"`
	FromCache  bool              `json:"from_cache"`
}

// BuildReport is the outcome of fetching devices and building the citation graph.
type BuildReport struct {
	RunID      string                `json:"run_id"`
	Devices    map[string]Confidence `json:"devices"`
	Edges      int                   `json:"edges"`
	Warnings   []string              `json:"warnings,omitempty"`
	Candidates []Candidate           `json:"-"`
}
