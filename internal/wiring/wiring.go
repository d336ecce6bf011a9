// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/predicate/internal/adapters/cache"
	_ "go.trai.ch/predicate/internal/adapters/config"
	_ "go.trai.ch/predicate/internal/adapters/document"
	_ "go.trai.ch/predicate/internal/adapters/graphstore"
	_ "go.trai.ch/predicate/internal/adapters/logger"
	_ "go.trai.ch/predicate/internal/adapters/metrics"
	_ "go.trai.ch/predicate/internal/adapters/ratelimit"
	_ "go.trai.ch/predicate/internal/adapters/registry"
	_ "go.trai.ch/predicate/internal/adapters/telemetry"
	_ "go.trai.ch/predicate/internal/adapters/textextract"
	_ "go.trai.ch/predicate/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/predicate/internal/app"
	_ "go.trai.ch/predicate/internal/engine/freshness"
	_ "go.trai.ch/predicate/internal/engine/pipeline"
)
