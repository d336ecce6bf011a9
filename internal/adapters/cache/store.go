// Package cache implements the crash-safe local cache and its manifest.
package cache

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.trai.ch/predicate/internal/adapters/fs"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

// entryHeader is the first line of an entry file. The raw payload follows the newline.
type entryHeader struct {
	SchemaVersion int              `json:"schema_version"`
	Key           string           `json:"key"`
	Class         domain.DataClass `json:"class,omitempty"`
	Checksum      string           `json:"checksum"`
	CreatedAt     time.Time        `json:"created_at"`
	TTLMillis     int64            `json:"ttl_ms,omitempty"`
	Size          int64            `json:"size"`
	// TTLSeconds is the schema 1 representation of the TTL.
	TTLSeconds int64 `json:"ttl_seconds,omitempty"`
}

type indexEntry struct {
	key      string
	size     int64
	lastRead time.Time
}

// WriteFunc persists data at path atomically.
type WriteFunc func(path string, data []byte, perm os.FileMode) error

// Store implements ports.CacheStore with one file per entry.
type Store struct {
	root          string
	entriesDir    string
	quarantineDir string
	maxBytes      int64
	now           func() time.Time
	write         WriteFunc

	mu    sync.Mutex
	index map[string]indexEntry // by file name
	size  int64
	pins  map[string]int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithWriter replaces the atomic write function.
func WithWriter(w WriteFunc) Option {
	return func(s *Store) { s.write = w }
}

// NewStore opens the cache rooted at dir and indexes existing entries.
func NewStore(dir string, maxBytes int64, opts ...Option) (*Store, error) {
	root := filepath.Clean(dir)
	s := &Store{
		root:          root,
		entriesDir:    filepath.Join(root, domain.EntriesDirName),
		quarantineDir: filepath.Join(root, domain.QuarantineDirName),
		maxBytes:      maxBytes,
		now:           time.Now,
		write:         fs.WriteFileAtomic,
		index:         make(map[string]indexEntry),
		pins:          make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, d := range []string{s.entriesDir, s.quarantineDir} {
		if err := os.MkdirAll(d, domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheCreateFailed.Error()), "path", d)
		}
	}

	for info := range fs.NewWalker().WalkFiles(s.entriesDir, domain.EntrySuffix) {
		name := filepath.Base(info.Path)
		s.index[name] = indexEntry{
			key:      readKey(info.Path),
			size:     info.Size,
			lastRead: info.ModTime,
		}
		s.size += info.Size
	}

	return s, nil
}

// Dir returns the directory holding entry files.
func (s *Store) Dir() string {
	return s.entriesDir
}

// Size returns the total size of all indexed entries in bytes.
func (s *Store) Size() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Get retrieves the entry for key.
func (s *Store) Get(key string) (*domain.CacheEntry, error) {
	name := entryName(key)
	path := filepath.Join(s.entriesDir, name)

	s.pin(name)
	defer s.unpin(name)

	//nolint:gosec // Path is constructed from trusted directory and hashed filename
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, nil
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrCacheReadFailed.Error()), "key", key)
	}

	hdr, payload, err := decodeEntry(key, data)
	if err != nil {
		if errors.Is(err, domain.ErrSchemaUnsupported) {
			return nil, err
		}
		s.quarantine(name)
		return nil, err
	}

	if hdr.SchemaVersion < domain.CurrentSchemaVersion {
		hdr = migrate(hdr)
		// Best effort: a failed rewrite leaves the readable old entry in place.
		_ = s.writeEntry(name, hdr, payload)
	}

	now := s.now()
	s.touch(name, path, now)

	ttl := time.Duration(hdr.TTLMillis) * time.Millisecond
	return &domain.CacheEntry{
		Key:           key,
		Payload:       payload,
		Checksum:      hdr.Checksum,
		CreatedAt:     hdr.CreatedAt,
		TTL:           ttl,
		SchemaVersion: hdr.SchemaVersion,
		Class:         hdr.Class,
		Fresh:         domain.IsFresh(hdr.CreatedAt, ttl, now),
		Size:          int64(len(data)),
	}, nil
}

// Put stores payload under key.
func (s *Store) Put(key string, payload []byte, ttl time.Duration) error {
	name := entryName(key)
	class := domain.ClassForKey(key)
	hdr := entryHeader{
		SchemaVersion: domain.CurrentSchemaVersion,
		Key:           key,
		Class:         class,
		Checksum:      domain.Checksum(payload),
		CreatedAt:     s.now().UTC(),
		TTLMillis:     ttl.Milliseconds(),
		Size:          int64(len(payload)),
	}

	if err := s.writeEntry(name, hdr, payload); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrCacheWriteFailed.Error()), "key", key)
	}

	if err := s.UpdateManifest(func(m *domain.Manifest) error {
		m.Track(domain.ManifestNameFor(class), key, hdr.CreatedAt)
		return nil
	}); err != nil {
		return err
	}

	evicted := s.evict(name)
	if len(evicted) == 0 {
		return nil
	}
	return s.UpdateManifest(func(m *domain.Manifest) error {
		m.Untrack(evicted...)
		return nil
	})
}

// Delete removes the given keys and drops them from the manifest.
func (s *Store) Delete(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	for _, key := range keys {
		name := entryName(key)
		err := os.Remove(filepath.Join(s.entriesDir, name))
		if err != nil && !errors.Is(err, iofs.ErrNotExist) {
			return zerr.With(zerr.Wrap(err, domain.ErrCacheDeleteFailed.Error()), "key", key)
		}
		s.forget(name)
	}
	return s.UpdateManifest(func(m *domain.Manifest) error {
		m.Untrack(keys...)
		return nil
	})
}

// Sync refreshes the index entry for path after an external change.
func (s *Store) Sync(path string) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, domain.EntrySuffix) || filepath.Dir(path) != s.entriesDir {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		s.forget(name)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.index[name]
	s.size += info.Size() - prev.size
	key := prev.key
	if key == "" {
		key = readKey(path)
	}
	s.index[name] = indexEntry{key: key, size: info.Size(), lastRead: info.ModTime()}
}

func (s *Store) writeEntry(name string, hdr entryHeader, payload []byte) error {
	head, err := json.Marshal(hdr)
	if err != nil {
		return err
	}
	data := make([]byte, 0, len(head)+1+len(payload))
	data = append(data, head...)
	data = append(data, '\n')
	data = append(data, payload...)

	path := filepath.Join(s.entriesDir, name)
	if err := s.write(path, data, domain.FilePerm); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.index[name]
	s.size += int64(len(data)) - prev.size
	s.index[name] = indexEntry{key: hdr.Key, size: int64(len(data)), lastRead: s.now()}
	return nil
}

func (s *Store) quarantine(name string) {
	src := filepath.Join(s.entriesDir, name)
	dst := filepath.Join(s.quarantineDir, name+"."+strconv.FormatInt(s.now().UnixNano(), 10))
	if err := os.Rename(src, dst); err != nil {
		_ = os.Remove(src)
	}
	s.forget(name)
}

func (s *Store) touch(name, path string, at time.Time) {
	_ = os.Chtimes(path, at, at)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.index[name]; ok {
		e.lastRead = at
		s.index[name] = e
	}
}

func (s *Store) forget(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.index[name]; ok {
		s.size -= e.size
		delete(s.index, name)
	}
}

func (s *Store) pin(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[name]++
}

func (s *Store) unpin(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pins[name] <= 1 {
		delete(s.pins, name)
		return
	}
	s.pins[name]--
}

// decodeEntry splits and verifies an entry file.
func decodeEntry(key string, data []byte) (entryHeader, []byte, error) {
	var hdr entryHeader
	corrupted := func(reason string) (entryHeader, []byte, error) {
		err := zerr.With(zerr.Wrap(domain.ErrEntryCorrupted, reason), "key", key)
		return hdr, nil, err
	}

	head, payload, found := bytes.Cut(data, []byte{'\n'})
	if !found {
		return corrupted("missing entry header")
	}
	if err := json.Unmarshal(head, &hdr); err != nil {
		return corrupted("unreadable entry header")
	}
	if hdr.SchemaVersion > domain.CurrentSchemaVersion {
		err := zerr.With(zerr.Wrap(domain.ErrSchemaUnsupported, "entry written by a newer version"), "key", key)
		return hdr, nil, zerr.With(err, "schema_version", hdr.SchemaVersion)
	}
	if hdr.Key != key {
		return corrupted("entry key mismatch")
	}
	if domain.Checksum(payload) != hdr.Checksum {
		return corrupted("checksum mismatch")
	}
	return hdr, payload, nil
}

// migrate upgrades a schema 1 header to the current schema.
func migrate(hdr entryHeader) entryHeader {
	if hdr.SchemaVersion <= 1 {
		hdr.TTLMillis = (time.Duration(hdr.TTLSeconds) * time.Second).Milliseconds()
		hdr.TTLSeconds = 0
		if hdr.Class == "" {
			hdr.Class = domain.ClassForKey(hdr.Key)
		}
	}
	hdr.SchemaVersion = domain.CurrentSchemaVersion
	return hdr
}

// readKey reads the key from an entry header without loading the payload.
func readKey(path string) string {
	//nolint:gosec // Path comes from walking the entries directory
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	line, err := bufio.NewReader(f).ReadBytes('\n')
	if err != nil {
		return ""
	}
	var hdr entryHeader
	if json.Unmarshal(line, &hdr) != nil {
		return ""
	}
	return hdr.Key
}

func entryName(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:]) + domain.EntrySuffix
}
