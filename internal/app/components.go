package app

import (
	"context"
	"time"

	"go.trai.ch/predicate/internal/core/ports"
)

// closeTimeout bounds flushing telemetry on exit.
const closeTimeout = 5 * time.Second

// Closer releases a resource when the process exits.
type Closer func(ctx context.Context) error

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App     *App
	Logger  ports.Logger
	closers []Closer
}

// NewComponents creates a new Components struct. Closers run in reverse order on Close.
func NewComponents(a *App, log ports.Logger, closers ...Closer) *Components {
	return &Components{
		App:     a,
		Logger:  log,
		closers: closers,
	}
}

// Close flushes metrics and traces and closes the graph database.
func (c *Components) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil && c.Logger != nil {
			c.Logger.Error(err)
		}
	}
	c.closers = nil
}
