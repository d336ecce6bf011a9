package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// searchLimit bounds the candidate set drawn from a product code search.
const searchLimit = 100

// Rank builds the candidate devices and orders them as predicates for the
// described device. An unchanged request against an unchanged graph is
// answered from the ranking cache unless req.NoCache is set.
func (p *Pipeline) Rank(ctx context.Context, req domain.RankRequest) (*domain.RankReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.rank")
	defer span.End()

	ids, warnings, err := p.candidateIDs(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttribute("candidates", len(ids))

	g, err := p.citationGraph()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	key := domain.RankingKey(p.rankingFingerprint(req, ids, g.Fingerprint()))
	if !req.NoCache {
		if ranked, ok := p.cachedRanking(key); ok {
			span.SetAttribute("from_cache", true)
			return &domain.RankReport{
				RunID:      p.newRunID(),
				Candidates: truncate(ranked, req.Limit),
				Warnings:   warnings,
				FromCache:  true,
			}, nil
		}
	}

	build, err := p.Build(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	q := domain.QueryContext{
		Description: req.Description,
		ProductCode: req.ProductCode,
		Now:         p.now(),
	}
	ranked := p.ranker.Rank(build.Candidates, q, g.Snapshot())

	if allHigh(ranked) {
		p.storeRanking(req, ids, ranked)
	}

	return &domain.RankReport{
		RunID:      build.RunID,
		Candidates: truncate(ranked, req.Limit),
		Warnings:   append(warnings, build.Warnings...),
	}, nil
}

// candidateIDs resolves the explicit candidates, or searches the registry by product code.
func (p *Pipeline) candidateIDs(ctx context.Context, req domain.RankRequest) ([]string, []string, error) {
	var ids, warnings []string

	if len(req.Candidates) > 0 {
		for _, raw := range req.Candidates {
			id, err := domain.ParseDeviceID(raw)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("skipping invalid identifier %q", raw))
				continue
			}
			ids = append(ids, id)
		}
	} else if req.ProductCode != "" {
		records, resp, err := p.registry.SearchByProductCode(ctx, req.ProductCode, searchLimit)
		if err != nil {
			return nil, nil, zerr.With(err, "product_code", req.ProductCode)
		}
		if resp != nil && resp.Source == domain.SourceDegraded {
			warnings = append(warnings, "registry unreachable, candidate search served from expired cache")
		}
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
	}

	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) == 0 {
		err := zerr.Wrap(domain.ErrNoCandidates, "nothing to rank")
		return nil, warnings, zerr.With(err, "product_code", req.ProductCode)
	}
	return ids, warnings, nil
}

// rankingFingerprint identifies every input that can change a ranking,
// including the stored records of the candidates.
func (p *Pipeline) rankingFingerprint(req domain.RankRequest, ids []string, graph string) string {
	r := p.cfg.Ranking
	h := xxhash.New()
	_, _ = fmt.Fprintf(h, "desc=%s\x00code=%s\x00graph=%s\x00", strings.Join(strings.Fields(strings.ToLower(req.Description)), " "), req.ProductCode, graph)
	_, _ = fmt.Fprintf(h, "ids=%s\x00", strings.Join(ids, ","))
	_, _ = fmt.Fprintf(h, "w=%g,%g,%g,%g\x00", r.Weights.InDegree, r.Weights.Recency, r.Weights.Depth, r.Weights.Similarity)
	_, _ = fmt.Fprintf(h, "half=%d\x00material=%g\x00tie=%s\x00", r.RecencyHalfLife, r.Material, r.TieBreak)
	p.writeRecords(h, ids)
	return strconv.FormatUint(h.Sum64(), 16)
}

// writeRecords hashes the stored record of each id, so a record that was
// refreshed or dropped since the ranking was cached yields a different key.
func (p *Pipeline) writeRecords(h *xxhash.Digest, ids []string) {
	for _, id := range ids {
		rec, err := p.store.GetRecord(id)
		if err != nil || rec == nil {
			_, _ = fmt.Fprintf(h, "rec=%s:-\x00", id)
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			_, _ = fmt.Fprintf(h, "rec=%s:-\x00", id)
			continue
		}
		_, _ = fmt.Fprintf(h, "rec=%s:%x\x00", id, xxhash.Sum64(data))
	}
}

func (p *Pipeline) cachedRanking(key string) ([]domain.RankedCandidate, bool) {
	entry, err := p.cache.Get(key)
	switch {
	case err != nil:
		p.metrics.ObserveCache(domain.ClassRanking, "error")
		p.logger.Warn("ignoring unreadable cached ranking: " + err.Error())
		return nil, false
	case entry == nil:
		p.metrics.ObserveCache(domain.ClassRanking, "miss")
		return nil, false
	case !entry.Fresh:
		p.metrics.ObserveCache(domain.ClassRanking, "stale")
		return nil, false
	}

	var ranked []domain.RankedCandidate
	if err := json.Unmarshal(entry.Payload, &ranked); err != nil {
		p.metrics.ObserveCache(domain.ClassRanking, "error")
		return nil, false
	}
	p.metrics.ObserveCache(domain.ClassRanking, "hit")
	return ranked, true
}

// storeRanking caches ranked under the fingerprint of the graph after the build.
func (p *Pipeline) storeRanking(req domain.RankRequest, ids []string, ranked []domain.RankedCandidate) {
	g, err := p.citationGraph()
	if err != nil {
		return
	}
	data, err := json.Marshal(ranked)
	if err != nil {
		p.logger.Error(zerr.Wrap(err, "encode ranking"))
		return
	}
	key := domain.RankingKey(p.rankingFingerprint(req, ids, g.Fingerprint()))
	if err := p.cache.Put(key, data, p.cfg.TTL(domain.ClassRanking)); err != nil {
		p.logger.Error(err)
	}
}

func allHigh(ranked []domain.RankedCandidate) bool {
	for _, c := range ranked {
		if c.Confidence.Level() != domain.ConfidenceHigh {
			return false
		}
	}
	return true
}

func truncate(ranked []domain.RankedCandidate, limit int) []domain.RankedCandidate {
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
