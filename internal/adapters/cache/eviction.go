package cache

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// evict removes least recently read entries until the cache fits its ceiling.
// Pinned entries and keep are never removed. It returns the evicted keys.
func (s *Store) evict(keep string) []string {
	if s.maxBytes <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size <= s.maxBytes {
		return nil
	}

	type candidate struct {
		name string
		indexEntry
	}
	candidates := make([]candidate, 0, len(s.index))
	for name, e := range s.index {
		if name == keep || s.pins[name] > 0 {
			continue
		}
		candidates = append(candidates, candidate{name: name, indexEntry: e})
	}
	slices.SortFunc(candidates, func(a, b candidate) int {
		if c := a.lastRead.Compare(b.lastRead); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	var evicted []string
	for _, c := range candidates {
		if s.size <= s.maxBytes {
			break
		}
		if err := os.Remove(filepath.Join(s.entriesDir, c.name)); err != nil && !os.IsNotExist(err) {
			continue
		}
		s.size -= c.size
		delete(s.index, c.name)
		if c.key != "" {
			evicted = append(evicted, c.key)
		}
	}
	return evicted
}
