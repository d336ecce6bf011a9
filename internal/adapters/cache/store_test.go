package cache_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/cache"
	"go.trai.ch/predicate/internal/adapters/fs"
	"go.trai.ch/predicate/internal/core/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(t *testing.T, maxBytes int64, opts ...cache.Option) (*cache.Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := cache.NewStore(dir, maxBytes, opts...)
	require.NoError(t, err)
	return s, dir
}

func TestStore_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	s, _ := newStore(t, 0, cache.WithClock(clock.Now))

	key := domain.RecordKey("K201111")
	require.NoError(t, s.Put(key, []byte(`{"k_number":"K201111"}`), time.Hour))

	entry, err := s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, `{"k_number":"K201111"}`, string(entry.Payload))
	assert.Equal(t, domain.Checksum(entry.Payload), entry.Checksum)
	assert.Equal(t, domain.ClassClearance, entry.Class)
	assert.Equal(t, domain.CurrentSchemaVersion, entry.SchemaVersion)
	assert.Equal(t, time.Hour, entry.TTL)
	assert.True(t, entry.Fresh)

	clock.Advance(2 * time.Hour)
	entry, err = s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.False(t, entry.Fresh, "expired entries are returned but flagged")
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newStore(t, 0)

	entry, err := s.Get(domain.RecordKey("K000000"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStore_CorruptedEntryIsQuarantined(t *testing.T) {
	s, dir := newStore(t, 0)
	key := domain.DocumentKey("K201111")
	require.NoError(t, s.Put(key, []byte("original document bytes"), time.Hour))

	path := filepath.Join(dir, domain.EntriesDirName, cache.EntryName(key))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, domain.FilePerm))

	entry, err := s.Get(key)
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.True(t, errors.Is(err, domain.ErrEntryCorrupted))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "corrupted entry must leave the entries directory")

	quarantined, err := os.ReadDir(filepath.Join(dir, domain.QuarantineDirName))
	require.NoError(t, err)
	assert.Len(t, quarantined, 1)

	entry, err = s.Get(key)
	require.NoError(t, err)
	assert.Nil(t, entry, "a quarantined entry is a miss afterwards")
}

func TestStore_TruncatedHeaderIsCorruption(t *testing.T) {
	s, dir := newStore(t, 0)
	key := domain.TextKey("K201111")
	path := filepath.Join(dir, domain.EntriesDirName, cache.EntryName(key))
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version":2,"key"`), domain.FilePerm))

	_, err := s.Get(key)
	assert.True(t, errors.Is(err, domain.ErrEntryCorrupted))
}

func TestStore_NewerSchemaIsRejectedNotQuarantined(t *testing.T) {
	s, dir := newStore(t, 0)
	key := domain.RecordKey("K201111")
	payload := []byte("x")
	hdr, err := json.Marshal(map[string]any{
		"schema_version": domain.CurrentSchemaVersion + 1,
		"key":            key,
		"checksum":       domain.Checksum(payload),
	})
	require.NoError(t, err)
	path := filepath.Join(dir, domain.EntriesDirName, cache.EntryName(key))
	require.NoError(t, os.WriteFile(path, append(append(hdr, '\n'), payload...), domain.FilePerm))

	_, err = s.Get(key)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrSchemaUnsupported))
	assert.False(t, errors.Is(err, domain.ErrEntryCorrupted))

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestStore_MigratesSchemaOne(t *testing.T) {
	clock := newFakeClock()
	s, dir := newStore(t, 0, cache.WithClock(clock.Now))
	key := domain.SafetyKey("K201111")
	payload := []byte(`{"results":[]}`)
	hdr, err := json.Marshal(map[string]any{
		"schema_version": 1,
		"key":            key,
		"checksum":       domain.Checksum(payload),
		"created_at":     clock.Now(),
		"ttl_seconds":    3600,
	})
	require.NoError(t, err)
	path := filepath.Join(dir, domain.EntriesDirName, cache.EntryName(key))
	require.NoError(t, os.WriteFile(path, append(append(hdr, '\n'), payload...), domain.FilePerm))

	entry, err := s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, time.Hour, entry.TTL)
	assert.Equal(t, domain.ClassSafety, entry.Class)
	assert.Equal(t, domain.CurrentSchemaVersion, entry.SchemaVersion)
	assert.True(t, entry.Fresh)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schema_version":2`)
}

func TestStore_DeleteIsTargeted(t *testing.T) {
	s, _ := newStore(t, 0)
	for _, id := range []string{"K201111", "K190001"} {
		for _, key := range domain.DeviceKeys(id) {
			require.NoError(t, s.Put(key, []byte(key), time.Hour))
		}
	}

	require.NoError(t, s.Delete(domain.DeviceKeys("K201111")))

	for _, key := range domain.DeviceKeys("K201111") {
		entry, err := s.Get(key)
		require.NoError(t, err)
		assert.Nil(t, entry, key)
	}
	for _, key := range domain.DeviceKeys("K190001") {
		entry, err := s.Get(key)
		require.NoError(t, err)
		assert.NotNil(t, entry, key)
	}

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RecordKey("K190001")}, m.Records[domain.ManifestDevices].Keys)
}

func TestStore_EvictsLeastRecentlyRead(t *testing.T) {
	clock := newFakeClock()
	payload := []byte(strings.Repeat("x", 1000))
	// Room for roughly three entries including headers.
	s, _ := newStore(t, 3600, cache.WithClock(clock.Now))

	keys := []string{domain.TextKey("K100001"), domain.TextKey("K100002"), domain.TextKey("K100003")}
	for _, k := range keys {
		require.NoError(t, s.Put(k, payload, 0))
		clock.Advance(time.Minute)
	}

	// Reading the oldest entry makes the second one the eviction candidate.
	_, err := s.Get(keys[0])
	require.NoError(t, err)
	clock.Advance(time.Minute)

	require.NoError(t, s.Put(domain.TextKey("K100004"), payload, 0))
	assert.LessOrEqual(t, s.Size(), int64(3600))

	entry, err := s.Get(keys[1])
	require.NoError(t, err)
	assert.Nil(t, entry, "least recently read entry is evicted")

	entry, err = s.Get(keys[0])
	require.NoError(t, err)
	assert.NotNil(t, entry)

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.NotContains(t, m.Records[domain.ManifestTexts].Keys, keys[1])
}

func TestStore_PinnedEntriesSurviveEviction(t *testing.T) {
	clock := newFakeClock()
	payload := []byte(strings.Repeat("x", 1000))
	s, _ := newStore(t, 2400, cache.WithClock(clock.Now))

	oldest := domain.TextKey("K100001")
	require.NoError(t, s.Put(oldest, payload, 0))
	clock.Advance(time.Minute)
	require.NoError(t, s.Put(domain.TextKey("K100002"), payload, 0))
	clock.Advance(time.Minute)

	release := s.Pin(oldest)
	require.NoError(t, s.Put(domain.TextKey("K100003"), payload, 0))
	release()

	entry, err := s.Get(oldest)
	require.NoError(t, err)
	assert.NotNil(t, entry)

	entry, err = s.Get(domain.TextKey("K100002"))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStore_ReopenRebuildsIndex(t *testing.T) {
	dir := t.TempDir()
	s1, err := cache.NewStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, s1.Put(domain.RecordKey("K201111"), []byte("abc"), time.Hour))

	s2, err := cache.NewStore(dir, 0)
	require.NoError(t, err)
	assert.Equal(t, s1.Size(), s2.Size())

	entry, err := s2.Get(domain.RecordKey("K201111"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "abc", string(entry.Payload))
}

func TestStore_Sync(t *testing.T) {
	dir := t.TempDir()
	writer, err := cache.NewStore(dir, 0)
	require.NoError(t, err)
	reader, err := cache.NewStore(dir, 0)
	require.NoError(t, err)

	key := domain.RecordKey("K201111")
	require.NoError(t, writer.Put(key, []byte("abc"), time.Hour))
	assert.Equal(t, int64(0), reader.Size())

	reader.Sync(filepath.Join(reader.Dir(), cache.EntryName(key)))
	assert.Equal(t, writer.Size(), reader.Size())

	require.NoError(t, writer.Delete([]string{key}))
	reader.Sync(filepath.Join(reader.Dir(), cache.EntryName(key)))
	assert.Equal(t, int64(0), reader.Size())
}

func TestStore_ConcurrentPutGet(t *testing.T) {
	s, _ := newStore(t, 0)
	key := domain.RecordKey("K201111")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := []byte(strings.Repeat(string(rune('a'+i)), 64))
			assert.NoError(t, s.Put(key, payload, time.Hour))
			entry, err := s.Get(key)
			assert.NoError(t, err, "readers never see a torn entry")
			if entry != nil {
				assert.Len(t, entry.Payload, 64)
			}
		}()
	}
	wg.Wait()
}

func TestStore_WritesAreAtomic(t *testing.T) {
	crash := errors.New("simulated crash")
	failing := false
	s, _ := newStore(t, 0, cache.WithWriter(func(path string, data []byte, perm os.FileMode) error {
		if failing {
			return crash
		}
		return fs.WriteFileAtomic(path, data, perm)
	}))
	key := domain.RecordKey("K201111")
	require.NoError(t, s.Put(key, []byte("v1"), time.Hour))

	failing = true
	require.Error(t, s.Put(key, []byte("v2"), time.Hour))

	failing = false
	entry, err := s.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "v1", string(entry.Payload))
}
