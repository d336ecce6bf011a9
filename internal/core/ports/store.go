package ports

import (
	"time"

	"go.trai.ch/predicate/internal/core/domain"
)

// CacheStore is the crash-safe local cache of registry data, documents and derived artifacts.
// It is the only component that writes to the cache directory.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type CacheStore interface {
	// Get retrieves the entry for key.
	// Returns nil, nil if not found. Expired entries are returned with Fresh unset.
	// A corrupted entry is quarantined and reported as domain.ErrEntryCorrupted.
	Get(key string) (*domain.CacheEntry, error)

	// Put stores payload under key, replacing any previous entry atomically.
	Put(key string, payload []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are ignored.
	Delete(keys []string) error

	// LoadManifest reads the manifest, falling back to its rollback copy.
	LoadManifest() (*domain.Manifest, error)

	// UpdateManifest applies fn to the current manifest and persists the result
	// while holding the manifest lock.
	UpdateManifest(fn func(*domain.Manifest) error) error
}
