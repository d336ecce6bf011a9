// Package app implements the application layer for pred.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.trai.ch/predicate/internal/adapters/watcher"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/predicate/internal/core/ports"
	"go.trai.ch/predicate/internal/engine/freshness"
	"go.trai.ch/predicate/internal/engine/pipeline"
	"go.trai.ch/zerr"
)

// GraphResetter empties the persisted citation graph.
type GraphResetter interface {
	Reset() error
}

// CacheIndex is a cache whose in-memory index follows changes to its entry directory.
type CacheIndex interface {
	watcher.Syncer
	Dir() string
}

// App represents the main application logic.
type App struct {
	cfg      *domain.Config
	pipeline *pipeline.Pipeline
	detector *freshness.Detector
	graph    ports.GraphStore
	resetter GraphResetter
	watcher  ports.Watcher
	index    CacheIndex
	logger   ports.Logger
}

// New creates a new App instance.
func New(
	cfg *domain.Config,
	p *pipeline.Pipeline,
	detector *freshness.Detector,
	graph ports.GraphStore,
	resetter GraphResetter,
	log ports.Logger,
) *App {
	return &App{
		cfg:      cfg,
		pipeline: p,
		detector: detector,
		graph:    graph,
		resetter: resetter,
		logger:   log,
	}
}

// WithWatcher keeps index in sync with cache entries written by other
// processes while a command runs.
func (a *App) WithWatcher(w ports.Watcher, index CacheIndex) *App {
	a.watcher = w
	a.index = index
	return a
}

// RankOptions configuration for the Rank method.
type RankOptions struct {
	ProductCode string
	Description string
	Candidates  []string
	Limit       int
	NoCache     bool
}

// Rank orders candidate predicates for the described device.
func (a *App) Rank(ctx context.Context, opts RankOptions) (*domain.RankReport, error) {
	stop := a.follow(ctx)
	defer stop()

	report, err := a.pipeline.Rank(ctx, domain.RankRequest{
		ProductCode: opts.ProductCode,
		Description: opts.Description,
		Candidates:  opts.Candidates,
		Limit:       opts.Limit,
		NoCache:     opts.NoCache,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "ranking failed")
	}
	a.logger.Info(fmt.Sprintf("ranked %d candidates (run %s)", len(report.Candidates), report.RunID))
	return report, nil
}

// Fetch runs the given devices through the pipeline and updates the citation graph.
func (a *App) Fetch(ctx context.Context, ids []string) (*domain.BuildReport, error) {
	if len(ids) == 0 {
		return nil, domain.ErrNoDevicesSpecified
	}

	stop := a.follow(ctx)
	defer stop()

	report, err := a.pipeline.Build(ctx, ids)
	if err != nil {
		return nil, zerr.Wrap(err, "fetch failed")
	}
	a.logger.Info(fmt.Sprintf("fetched %d devices, %d citations (run %s)", len(report.Devices), report.Edges, report.RunID))
	return report, nil
}

// Check revalidates each device against the registry. A failing device does
// not stop the others; failures are returned together.
func (a *App) Check(ctx context.Context, ids []string) ([]domain.ChangeStatus, error) {
	if len(ids) == 0 {
		return nil, domain.ErrNoDevicesSpecified
	}

	var (
		statuses []domain.ChangeStatus
		errs     error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return statuses, errors.Join(errs, err)
		}
		status, err := a.detector.Check(ctx, id)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses, errs
}

// ExportGraph writes the citation graph to w in the given format.
func (a *App) ExportGraph(_ context.Context, w io.Writer, format string) error {
	g, err := a.pipeline.Graph()
	if err != nil {
		return err
	}

	records := make(map[string]*domain.DeviceRecord)
	for _, id := range g.Nodes() {
		rec, err := a.graph.GetRecord(id)
		if err != nil {
			return err
		}
		if rec != nil {
			records[id] = rec
		}
	}
	return WriteGraph(w, g, records, format)
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Cache bool
	Graph bool
	State bool
}

// Clean removes local data based on the provided options.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Cache {
		remove(a.cfg.CacheDir, "cache")
	}
	if options.State {
		remove(a.cfg.StateDir, "rate limiter state")
	}
	if options.Graph {
		a.logger.Info("removing citation graph...")
		if err := a.resetter.Reset(); err != nil {
			errs = errors.Join(errs, err)
		} else {
			a.logger.Info("removed citation graph")
		}
	}

	return errs
}

// follow starts the cache watcher when one is configured. The returned
// function stops it and waits for pending events to be applied.
func (a *App) follow(ctx context.Context) func() {
	if a.watcher == nil || a.index == nil {
		return func() {}
	}
	if err := a.watcher.Start(ctx, a.index.Dir()); err != nil {
		a.logger.Warn("cache watcher disabled: " + err.Error())
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		watcher.Follow(a.watcher, a.index, watcher.DefaultDebounceWindow)
	}()

	return func() {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Error(err)
		}
		<-done
	}
}
