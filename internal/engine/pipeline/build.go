package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// deviceResult is the outcome of running one device through every stage.
type deviceResult struct {
	id        string
	candidate domain.Candidate
	cited     []string
	warnings  []string
}

func (r *deviceResult) degrade(stage, reason string) {
	r.candidate.Confidence.MarkDegraded(stage)
	r.warnings = append(r.warnings, fmt.Sprintf("%s: %s degraded: %s", r.id, stage, reason))
}

func (r *deviceResult) unavailable(stage string, err error) {
	r.candidate.Confidence.MarkUnavailable(stage)
	r.warnings = append(r.warnings, fmt.Sprintf("%s: %s unavailable: %v", r.id, stage, err))
}

// Build fetches every device in ids, extracts its citations and updates the
// citation graph. Cited predicates are followed up to the configured depth.
//
// A failing stage degrades the confidence of that device only. The run is
// aborted only when ctx ends.
func (p *Pipeline) Build(ctx context.Context, ids []string) (*domain.BuildReport, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.build")
	defer span.End()

	report := &domain.BuildReport{
		RunID:   p.newRunID(),
		Devices: make(map[string]domain.Confidence),
	}
	span.SetAttribute("run.id", report.RunID)

	g, err := p.citationGraph()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	roots := p.normalize(ids, report)
	p.tracer.EmitPlan(ctx, roots)

	maxNodes := p.cfg.Pipeline.MaxNodes
	seen := make(map[string]bool, len(roots))
	for _, id := range roots {
		seen[id] = true
	}

	frontier := roots
	for depth := 0; len(frontier) > 0; depth++ {
		results, err := p.runAll(ctx, g, frontier)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		var next []string
		capped := false
		for _, r := range results {
			report.Devices[r.id] = r.candidate.Confidence
			report.Warnings = append(report.Warnings, r.warnings...)
			if depth == 0 {
				report.Candidates = append(report.Candidates, r.candidate)
			}
			if depth >= p.cfg.Pipeline.ExpandDepth {
				continue
			}
			for _, cited := range r.cited {
				if seen[cited] {
					continue
				}
				if maxNodes > 0 && len(seen) >= maxNodes {
					capped = true
					break
				}
				seen[cited] = true
				next = append(next, cited)
			}
		}
		if capped {
			report.Warnings = append(report.Warnings, fmt.Sprintf("predicate expansion stopped at %d devices", maxNodes))
		}
		slices.Sort(next)
		frontier = next
	}

	if err := g.Validate(); err != nil {
		msg := "citation graph has a cycle"
		if path := cyclePath(err); path != "" {
			msg += ": " + path
		}
		p.logger.Warn(msg)
		report.Warnings = append(report.Warnings, msg)
	}

	if err := p.store.SaveGraph(g); err != nil {
		span.RecordError(err)
		return nil, err
	}

	report.Edges = len(g.Edges())
	span.SetAttribute("devices", len(report.Devices))
	span.SetAttribute("edges", report.Edges)
	return report, nil
}

// normalize validates ids, reporting and dropping invalid or duplicate ones.
func (p *Pipeline) normalize(ids []string, report *domain.BuildReport) []string {
	var out []string
	for _, raw := range ids {
		id, err := domain.ParseDeviceID(raw)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("skipping invalid identifier %q", raw))
			continue
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// runAll processes ids on the worker pool. Results keep the order of ids.
func (p *Pipeline) runAll(ctx context.Context, g *domain.CitationGraph, ids []string) ([]deviceResult, error) {
	results := make([]deviceResult, len(ids))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(p.cfg.Pipeline.Workers, 1))

	for i, id := range ids {
		eg.Go(func() error {
			r, err := p.process(ctx, g, id)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) process(ctx context.Context, g *domain.CitationGraph, id string) (deviceResult, error) {
	ctx, span := p.tracer.Start(ctx, "device "+id)
	defer span.End()
	span.SetAttribute("device.id", id)

	r := deviceResult{id: id}
	if err := interrupted(ctx, id); err != nil {
		return r, err
	}

	rec := p.fetchRecord(ctx, id, &r)
	if err := interrupted(ctx, id); err != nil {
		span.RecordError(err)
		return r, err
	}

	p.fetchSafety(ctx, &rec, &r)
	if err := interrupted(ctx, id); err != nil {
		span.RecordError(err)
		return r, err
	}

	text, ok, low := p.documentText(ctx, id, &r)
	if err := interrupted(ctx, id); err != nil {
		span.RecordError(err)
		return r, err
	}

	if ok {
		res := p.citations.Scan(text, id)
		p.metrics.ObserveCitations(len(res.IDs))
		span.SetAttribute("citations", len(res.IDs))
		if len(res.Corrections) > 0 {
			span.SetAttribute("citations.corrected", len(res.Corrections))
		}
		// Near-empty text may have lost citations, so it only ever adds edges.
		if low {
			g.AddEdges(id, res.IDs...)
		} else {
			g.ReplaceEdges(id, res.IDs...)
		}
	} else {
		g.AddNode(id)
	}
	rec.PredicatesCited = g.Citing(id)
	rec.CitedBy = g.CitedBy(id)
	r.cited = rec.PredicatesCited

	if !slices.Contains(r.candidate.Confidence.Unavailable, domain.StageRecord) {
		if err := p.store.PutRecord(&rec); err != nil {
			p.logger.Error(err)
		}
	}

	r.candidate.Record = rec
	r.candidate.Text = text
	for _, w := range r.warnings {
		p.logger.Warn(w)
	}
	span.SetAttribute("confidence", string(r.candidate.Confidence.Level()))
	return r, nil
}

// fetchRecord falls back to the stored record when the registry fails.
func (p *Pipeline) fetchRecord(ctx context.Context, id string, r *deviceResult) domain.DeviceRecord {
	rec, resp, err := p.registry.Device(ctx, id)
	if err == nil {
		if resp != nil && resp.Source == domain.SourceDegraded {
			r.degrade(domain.StageRecord, "registry unreachable, serving expired record")
		}
		return *rec
	}

	if stored, storeErr := p.store.GetRecord(id); storeErr == nil && stored != nil {
		r.degrade(domain.StageRecord, "registry failed, serving stored record")
		return *stored
	}
	r.unavailable(domain.StageRecord, err)
	return domain.DeviceRecord{ID: id}
}

func (p *Pipeline) fetchSafety(ctx context.Context, rec *domain.DeviceRecord, r *deviceResult) {
	n, resp, err := p.registry.SafetySignals(ctx, rec.ID)
	if err != nil {
		r.unavailable(domain.StageSafety, err)
		return
	}
	rec.RecallCount = n
	if resp != nil && resp.Source == domain.SourceDegraded {
		r.degrade(domain.StageSafety, "registry unreachable, serving expired recall count")
	}
}

// documentText returns the extracted text of id's decision document.
// ok is false when no text could be produced. low reports near-empty text.
func (p *Pipeline) documentText(ctx context.Context, id string, r *deviceResult) (text string, ok, low bool) {
	entry, err := p.cache.Get(domain.TextKey(id))
	switch {
	case err != nil:
		p.metrics.ObserveCache(domain.ClassText, "error")
		p.logger.Warn(fmt.Sprintf("%s: ignoring unreadable cached text: %v", id, err))
		entry = nil
	case entry == nil:
		p.metrics.ObserveCache(domain.ClassText, "miss")
	case !entry.Fresh:
		p.metrics.ObserveCache(domain.ClassText, "stale")
	default:
		p.metrics.ObserveCache(domain.ClassText, "hit")
		return string(entry.Payload), true, false
	}

	doc, err := p.documents.FetchDocument(ctx, id)
	if err != nil {
		r.unavailable(domain.StageDocument, err)
		if entry != nil {
			r.degrade(domain.StageText, "document unavailable, using expired text")
			return string(entry.Payload), true, false
		}
		r.unavailable(domain.StageText, zerr.Wrap(domain.ErrDocumentUnavailable, "no document to extract"))
		return "", false, false
	}
	if doc.Source == domain.SourceDegraded {
		r.degrade(domain.StageDocument, "all sources failed, serving expired document")
	}

	text, err = p.extractor.Extract(doc.Body)
	switch {
	case errors.Is(err, domain.ErrLowConfidence):
		r.degrade(domain.StageText, "extracted text is near-empty")
		return text, true, true
	case err != nil:
		r.unavailable(domain.StageText, err)
		return "", false, false
	}

	if err := p.cache.Put(domain.TextKey(id), []byte(text), p.cfg.TTL(domain.ClassText)); err != nil {
		p.logger.Error(err)
	}
	return text, true, false
}

func interrupted(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return zerr.With(zerr.Wrap(err, "pipeline run interrupted"), "id", id)
	}
	return nil
}

// cyclePath reads the cycle metadata attached by CitationGraph.Validate.
func cyclePath(err error) string {
	var ze *zerr.Error
	if !errors.As(err, &ze) {
		return ""
	}
	if path, ok := ze.Metadata()["cycle"].(string); ok {
		return path
	}
	return ""
}
