package watcher

import (
	"time"

	"go.trai.ch/predicate/internal/core/ports"
)

// DefaultDebounceWindow is the default time window for coalescing entry events.
const DefaultDebounceWindow = 50 * time.Millisecond

// Syncer refreshes its view of a single path after an external change.
type Syncer interface {
	Sync(path string)
}

// Follow feeds every event from w into s, coalescing bursts with a debouncer.
// It returns once the event stream ends, after delivering what is pending.
func Follow(w ports.Watcher, s Syncer, window time.Duration) {
	d := NewDebouncer(window, func(paths []string) {
		for _, p := range paths {
			s.Sync(p)
		}
	})
	for event := range w.Events() {
		d.Add(event.Path)
	}
	d.Flush()
}
