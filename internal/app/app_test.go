package app_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/cache"
	"go.trai.ch/predicate/internal/adapters/graphstore"
	"go.trai.ch/predicate/internal/adapters/metrics"
	"go.trai.ch/predicate/internal/adapters/telemetry"
	"go.trai.ch/predicate/internal/adapters/watcher"
	"go.trai.ch/predicate/internal/app"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports/mocks"
	"go.trai.ch/predicate/internal/engine/freshness"
	"go.trai.ch/predicate/internal/engine/pipeline"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type harness struct {
	cfg       *domain.Config
	registry  *mocks.MockRegistry
	documents *mocks.MockDocumentFetcher
	extractor *mocks.MockTextExtractor
	logger    *mocks.MockLogger
	store     *cache.Store
	graph     *graphstore.Store
	app       *app.App
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	root := t.TempDir()
	cfg := domain.DefaultConfig()
	cfg.CacheDir = filepath.Join(root, "cache")
	cfg.StateDir = filepath.Join(root, "state")
	cfg.GraphDir = filepath.Join(root, "graph")
	cfg.Pipeline.ExpandDepth = 0

	store, err := cache.NewStore(cfg.CacheDir, 0)
	require.NoError(t, err)
	graph, err := graphstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = graph.Close() })

	h := &harness{
		cfg:       &cfg,
		registry:  mocks.NewMockRegistry(ctrl),
		documents: mocks.NewMockDocumentFetcher(ctrl),
		extractor: mocks.NewMockTextExtractor(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
		store:     store,
		graph:     graph,
	}
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	p := pipeline.New(h.cfg, pipeline.Deps{
		Registry:  h.registry,
		Documents: h.documents,
		Extractor: h.extractor,
		Cache:     store,
		Graph:     graph,
		Tracer:    telemetry.NewNoOpTracer(),
		Logger:    h.logger,
		Metrics:   metrics.New(),
	})
	detector := freshness.New(h.registry, store, graph, h.logger)
	h.app = app.New(h.cfg, p, detector, graph, graph, h.logger)
	return h
}

func sampleGraph() (*domain.CitationGraph, map[string]*domain.DeviceRecord) {
	g := domain.NewCitationGraph()
	g.AddEdges("K201234", "K180001", "K150002")
	g.AddEdges("K180001", "K150002")
	g.AddNode("DEN190045")

	records := map[string]*domain.DeviceRecord{
		"K201234": {
			ID:           "K201234",
			Applicant:    "Acme Medical",
			DecisionDate: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
			ProductCode:  "DQY",
		},
		"K150002": {
			ID:           "K150002",
			Applicant:    "Beta Devices",
			DecisionDate: time.Date(2015, 2, 3, 0, 0, 0, 0, time.UTC),
			ProductCode:  "DQY",
		},
	}
	return g, records
}

func TestWriteGraph(t *testing.T) {
	g, records := sampleGraph()

	tests := []struct {
		name   string
		graph  *domain.CitationGraph
		format string
	}{
		{name: "graph_json", graph: g, format: app.FormatJSON},
		{name: "graph_dot", graph: g, format: app.FormatDOT},
		{name: "graph_empty_json", graph: domain.NewCitationGraph(), format: app.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, app.WriteGraph(&buf, tt.graph, records, tt.format))

			gold := goldie.New(t)
			gold.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestWriteGraph_UnknownFormat(t *testing.T) {
	g, records := sampleGraph()
	err := app.WriteGraph(new(bytes.Buffer), g, records, "svg")
	require.ErrorIs(t, err, domain.ErrUnsupportedExportFormat)
}

func TestApp_FetchThenExport(t *testing.T) {
	h := newHarness(t)

	h.registry.EXPECT().Device(gomock.Any(), "K201234").Return(&domain.DeviceRecord{
		ID:           "K201234",
		Applicant:    "Acme Medical",
		DecisionDate: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
		ProductCode:  "DQY",
	}, &domain.Response{Source: domain.SourceNetwork}, nil)
	h.registry.EXPECT().SafetySignals(gomock.Any(), "K201234").
		Return(1, &domain.Response{Source: domain.SourceNetwork}, nil)
	h.documents.EXPECT().FetchDocument(gomock.Any(), "K201234").
		Return(&domain.Document{ID: "K201234", Body: []byte("pdf"), Source: domain.SourceNetwork}, nil)
	h.extractor.EXPECT().Extract([]byte("pdf")).
		Return("The predicate devices are K180001 and K150002.", nil)

	report, err := h.app.Fetch(context.Background(), []string{"K201234"})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Edges)

	var buf bytes.Buffer
	require.NoError(t, h.app.ExportGraph(context.Background(), &buf, app.FormatDOT))
	assert.Contains(t, buf.String(), `"K201234" -> "K180001";`)
	assert.Contains(t, buf.String(), `K201234\n2020-06-01`)
}

func TestApp_FetchRequiresDevices(t *testing.T) {
	h := newHarness(t)
	_, err := h.app.Fetch(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrNoDevicesSpecified)

	_, err = h.app.Check(context.Background(), nil)
	require.ErrorIs(t, err, domain.ErrNoDevicesSpecified)
}

func TestApp_RankWithWatcher(t *testing.T) {
	h := newHarness(t)
	w, err := watcher.NewWatcher(h.logger)
	require.NoError(t, err)
	h.app.WithWatcher(w, h.store)

	for _, id := range []string{"K201234", "K180001"} {
		h.registry.EXPECT().Device(gomock.Any(), id).Return(&domain.DeviceRecord{
			ID:           id,
			DecisionDate: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		}, &domain.Response{Source: domain.SourceNetwork}, nil)
		h.registry.EXPECT().SafetySignals(gomock.Any(), id).
			Return(0, &domain.Response{Source: domain.SourceNetwork}, nil)
		h.documents.EXPECT().FetchDocument(gomock.Any(), id).
			Return(&domain.Document{ID: id, Body: []byte(id), Source: domain.SourceNetwork}, nil)
	}
	h.extractor.EXPECT().Extract([]byte("K201234")).Return("Substantially equivalent to K180001.", nil)
	h.extractor.EXPECT().Extract([]byte("K180001")).Return("This document cites no predicate.", nil)

	report, err := h.app.Rank(context.Background(), app.RankOptions{
		Candidates: []string{"K201234", "K180001"},
	})
	require.NoError(t, err)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "K180001", report.Candidates[0].ID)
}

func TestApp_CheckCollectsFailures(t *testing.T) {
	h := newHarness(t)

	h.registry.EXPECT().RevalidateDevice(gomock.Any(), "K201234").Return(&domain.DeviceRecord{
		ID:           "K201234",
		DecisionDate: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	h.registry.EXPECT().RevalidateDevice(gomock.Any(), "K180001").
		Return(nil, zerr.Wrap(domain.ErrRetriesExhausted, "registry keeps failing"))
	h.registry.EXPECT().RevalidateDevice(gomock.Any(), "K150002").
		Return(nil, zerr.Wrap(domain.ErrNotFound, "no such device"))

	statuses, err := h.app.Check(context.Background(), []string{"K201234", "K180001", "K150002"})
	require.ErrorIs(t, err, domain.ErrRetriesExhausted)
	require.Len(t, statuses, 2)
	assert.Equal(t, domain.ChangeUnchanged, statuses[0].Kind)
	assert.Equal(t, domain.ChangeRemoved, statuses[1].Kind)
}

func TestApp_Clean(t *testing.T) {
	tests := []struct {
		name      string
		opts      app.CleanOptions
		wantCache bool
		wantState bool
		wantGraph bool
	}{
		{name: "cache only", opts: app.CleanOptions{Cache: true}, wantState: true, wantGraph: true},
		{name: "graph only", opts: app.CleanOptions{Graph: true}, wantCache: true, wantState: true},
		{name: "everything", opts: app.CleanOptions{Cache: true, Graph: true, State: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.store.Put(domain.RecordKey("K201234"), []byte("{}"), time.Hour))
			require.NoError(t, os.MkdirAll(h.cfg.StateDir, 0o750))
			require.NoError(t, os.WriteFile(filepath.Join(h.cfg.StateDir, "ratelimit.json"), []byte("{}"), 0o600))
			require.NoError(t, h.graph.PutRecord(&domain.DeviceRecord{ID: "K201234"}))

			require.NoError(t, h.app.Clean(context.Background(), tt.opts))

			assert.Equal(t, tt.wantCache, exists(h.cfg.CacheDir))
			assert.Equal(t, tt.wantState, exists(h.cfg.StateDir))
			rec, err := h.graph.GetRecord("K201234")
			require.NoError(t, err)
			assert.Equal(t, tt.wantGraph, rec != nil)
		})
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestComponents_CloseRunsClosersInReverse(t *testing.T) {
	var order []string
	c := app.NewComponents(nil, nil,
		func(context.Context) error {
			order = append(order, "first")
			return nil
		},
		func(context.Context) error {
			order = append(order, "second")
			return nil
		},
	)

	c.Close()
	c.Close()

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestComponents_CloseLogsFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Error(gomock.Any()).Times(1)

	c := app.NewComponents(nil, log, func(context.Context) error { return zerr.New("flush failed") })
	c.Close()
}
