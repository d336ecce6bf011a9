package ports

import (
	"context"
	"iter"
)

// WatchOp is the kind of change reported for a path.
type WatchOp uint8

// Change kinds reported by a Watcher.
const (
	OpCreate WatchOp = iota
	OpWrite
	OpRemove
	OpRename
)

// WatchEvent is one change under the watched directory.
type WatchEvent struct {
	Path      string
	Operation WatchOp
}

// Watcher reports changes under a directory. The cache follows its entries
// directory with it so writes made by other pred processes reach the size index.
type Watcher interface {
	// Start watches root until Stop is called or ctx ends.
	Start(ctx context.Context, root string) error
	Stop() error
	// Events yields changes until the watcher stops.
	Events() iter.Seq[WatchEvent]
}
