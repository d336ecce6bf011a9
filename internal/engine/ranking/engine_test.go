package ranking_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/engine/ranking"
)

var now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func date(year int) time.Time {
	return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
}

func candidate(id string, decided time.Time, text string) domain.Candidate {
	return domain.Candidate{
		Record: domain.DeviceRecord{ID: id, DecisionDate: decided, DeviceName: "Acme Catheter"},
		Text:   text,
	}
}

// citedBy adds n distinct citing devices for id.
func citedBy(g *domain.CitationGraph, id string, n int) {
	for i := range n {
		g.AddEdges(fmt.Sprintf("K9%05d", i), id)
	}
}

func TestRank_InDegreeAndRecencyWin(t *testing.T) {
	g := domain.NewCitationGraph()
	citedBy(g, "K240001", 12)
	citedBy(g, "K120002", 3)
	require.Equal(t, 12, g.InDegree("K240001"))
	require.Equal(t, 3, g.InDegree("K120002"))

	engine := ranking.New(domain.DefaultConfig().Ranking)
	got := engine.Rank([]domain.Candidate{
		candidate("K120002", date(2012), "vascular catheter"),
		candidate("K240001", date(2024), "vascular catheter"),
	}, domain.QueryContext{Description: "vascular catheter", Now: now}, g)

	require.Len(t, got, 2)
	assert.Equal(t, "K240001", got[0].ID)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.InDelta(t, 1.0, got[0].Factors.InDegree, 1e-9)
	assert.Greater(t, got[0].Factors.Recency, got[1].Factors.Recency)
	assert.True(t, strings.HasPrefix(got[0].Rationale[0], "in_degree: cited by 12 devices"))
}

func TestRank_Deterministic(t *testing.T) {
	g := domain.NewCitationGraph()
	g.AddEdges("K230001", "K200001", "K190001")
	g.AddEdges("K200001", "K190001")
	g.AddEdges("K210001", "K190001")

	cands := []domain.Candidate{
		candidate("K190001", date(2019), "balloon catheter"),
		candidate("K200001", date(2020), "guide wire"),
		candidate("K210001", date(2021), "balloon catheter with coating"),
	}
	reversed := []domain.Candidate{cands[2], cands[1], cands[0]}
	q := domain.QueryContext{Description: "coated balloon catheter", Now: now}
	engine := ranking.New(domain.DefaultConfig().Ranking)

	first := engine.Rank(cands, q, g)
	for range 10 {
		assert.Equal(t, first, engine.Rank(cands, q, g))
	}
	assert.Equal(t, first, engine.Rank(reversed, q, g))
}

func TestRank_TieBreaks(t *testing.T) {
	recencyOnly := domain.RankingConfig{
		Weights:         domain.Weights{Recency: 1},
		RecencyHalfLife: 5 * 365 * 24 * time.Hour,
		TieBreak:        domain.TieBreakIDAsc,
	}

	t.Run("in-degree breaks equal scores", func(t *testing.T) {
		g := domain.NewCitationGraph()
		citedBy(g, "K200002", 2)
		got := ranking.New(recencyOnly).Rank([]domain.Candidate{
			candidate("K200001", date(2020), ""),
			candidate("K200002", date(2020), ""),
		}, domain.QueryContext{Now: now}, g)
		assert.Equal(t, []string{"K200002", "K200001"}, ids(got))
	})

	t.Run("decision date breaks equal in-degree", func(t *testing.T) {
		cfg := recencyOnly
		cfg.Weights = domain.Weights{Similarity: 1}
		got := ranking.New(cfg).Rank([]domain.Candidate{
			candidate("K100001", date(2010), ""),
			candidate("K200001", date(2020), ""),
		}, domain.QueryContext{Now: now}, domain.NewCitationGraph())
		assert.Equal(t, []string{"K200001", "K100001"}, ids(got))
	})

	t.Run("identifier ascending by default", func(t *testing.T) {
		got := ranking.New(recencyOnly).Rank([]domain.Candidate{
			candidate("K200009", date(2020), ""),
			candidate("K200001", date(2020), ""),
		}, domain.QueryContext{Now: now}, domain.NewCitationGraph())
		assert.Equal(t, []string{"K200001", "K200009"}, ids(got))
	})

	t.Run("identifier descending when configured", func(t *testing.T) {
		cfg := recencyOnly
		cfg.TieBreak = domain.TieBreakIDDesc
		got := ranking.New(cfg).Rank([]domain.Candidate{
			candidate("K200001", date(2020), ""),
			candidate("K200009", date(2020), ""),
		}, domain.QueryContext{Now: now}, domain.NewCitationGraph())
		assert.Equal(t, []string{"K200009", "K200001"}, ids(got))
	})
}

func TestRank_Similarity(t *testing.T) {
	engine := ranking.New(domain.DefaultConfig().Ranking)
	x := candidate("K200001", date(2020), "hydrophilic coated catheter for vascular access")
	y := candidate("K200002", date(2020), "orthopedic bone screw")
	y.Record.DeviceName = "Bone Screw"

	got := engine.Rank([]domain.Candidate{y, x},
		domain.QueryContext{Description: "Hydrophilic vascular access catheter", Now: now},
		domain.NewCitationGraph())

	require.Len(t, got, 2)
	assert.Equal(t, "K200001", got[0].ID)
	assert.Greater(t, got[0].Factors.Similarity, 0.3)
	assert.InDelta(t, 0, got[1].Factors.Similarity, 1e-9)
}

func TestRank_FactorBounds(t *testing.T) {
	g := domain.NewCitationGraph()
	g.AddEdges("K230001", "K200001")
	g.AddEdges("K200001", "K230001") // cycle from noisy extraction

	got := ranking.New(domain.DefaultConfig().Ranking).Rank([]domain.Candidate{
		candidate("K200001", time.Time{}, "catheter"),
		candidate("K230001", now.Add(24*time.Hour), "catheter"),
	}, domain.QueryContext{Description: "catheter", Now: now}, g)

	for _, r := range got {
		for _, f := range []float64{r.Factors.InDegree, r.Factors.Recency, r.Factors.Depth, r.Factors.Similarity, r.Score} {
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
	}
	byID := map[string]domain.RankedCandidate{got[0].ID: got[0], got[1].ID: got[1]}
	assert.Zero(t, byID["K200001"].Factors.Recency)
	assert.InDelta(t, 1.0, byID["K230001"].Factors.Recency, 1e-9)
}

func TestRank_RationaleCarriesConfidence(t *testing.T) {
	c := candidate("K200001", date(2020), "catheter")
	c.Confidence.MarkDegraded(domain.StageDocument)
	c.Confidence.MarkUnavailable(domain.StageText)

	got := ranking.New(domain.DefaultConfig().Ranking).Rank(
		[]domain.Candidate{c}, domain.QueryContext{Now: now}, domain.NewCitationGraph())

	require.Len(t, got, 1)
	r := got[0].Rationale
	require.GreaterOrEqual(t, len(r), 2)
	assert.Equal(t, "confidence low: missing text", r[len(r)-2])
	assert.Equal(t, "confidence reduced: degraded document", r[len(r)-1])
	assert.Equal(t, domain.ConfidenceLow, got[0].Confidence.Level())
}

func TestRank_Empty(t *testing.T) {
	assert.Nil(t, ranking.New(domain.DefaultConfig().Ranking).Rank(nil, domain.QueryContext{Now: now}, domain.NewCitationGraph()))
}

func ids(rs []domain.RankedCandidate) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
