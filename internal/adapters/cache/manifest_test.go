package cache_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/predicate/internal/adapters/cache"
	"go.trai.ch/predicate/internal/adapters/fs"
	"go.trai.ch/predicate/internal/core/domain"
)

func TestManifest_EmptyCache(t *testing.T) {
	s, _ := newStore(t, 0)

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Empty(t, m.Records)
	assert.Equal(t, domain.CurrentSchemaVersion, m.SchemaVersion)
}

func TestManifest_PutTracksKeysByRecordName(t *testing.T) {
	s, dir := newStore(t, 0)
	require.NoError(t, s.Put(domain.RecordKey("K201111"), []byte("a"), time.Hour))
	require.NoError(t, s.Put(domain.DocumentKey("K201111"), []byte("b"), time.Hour))

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RecordKey("K201111")}, m.Records[domain.ManifestDevices].Keys)
	assert.Equal(t, []string{domain.DocumentKey("K201111")}, m.Records[domain.ManifestDocuments].Keys)
	assert.Equal(t, m.ComputeChecksum(), m.Checksum)

	_, err = os.Stat(filepath.Join(dir, domain.ManifestFileName+domain.ManifestBackupSuffix))
	assert.NoError(t, err, "the second save keeps a rollback copy")
}

func TestManifest_CrashBeforeRenameKeepsPriorVersion(t *testing.T) {
	crash := errors.New("simulated crash")
	crashing := false
	s, dir := newStore(t, 0, cache.WithWriter(func(path string, data []byte, perm os.FileMode) error {
		if crashing && strings.HasSuffix(path, domain.ManifestFileName) {
			// The temp file is fully written but never renamed into place.
			tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-manifest-*")
			if err != nil {
				return err
			}
			_, _ = tmp.Write(data)
			_ = tmp.Close()
			return crash
		}
		return fs.WriteFileAtomic(path, data, perm)
	}))

	require.NoError(t, s.Put(domain.RecordKey("K201111"), []byte("a"), time.Hour))
	before, err := os.ReadFile(filepath.Join(dir, domain.ManifestFileName))
	require.NoError(t, err)

	crashing = true
	err = s.Put(domain.RecordKey("K190001"), []byte("b"), time.Hour)
	require.ErrorIs(t, err, crash)

	after, err := os.ReadFile(filepath.Join(dir, domain.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	reopened, err := cache.NewStore(dir, 0)
	require.NoError(t, err)
	m, err := reopened.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RecordKey("K201111")}, m.Records[domain.ManifestDevices].Keys)
}

func TestManifest_FallsBackToBackup(t *testing.T) {
	s, dir := newStore(t, 0)
	require.NoError(t, s.Put(domain.RecordKey("K201111"), []byte("a"), time.Hour))
	require.NoError(t, s.Put(domain.RecordKey("K190001"), []byte("b"), time.Hour))

	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte("{garbage"), domain.FilePerm))

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RecordKey("K201111")}, m.Records[domain.ManifestDevices].Keys)
}

func TestManifest_ChecksumMismatchFallsBack(t *testing.T) {
	s, dir := newStore(t, 0)
	require.NoError(t, s.Put(domain.RecordKey("K201111"), []byte("a"), time.Hour))
	require.NoError(t, s.Put(domain.RecordKey("K190001"), []byte("b"), time.Hour))

	path := filepath.Join(dir, domain.ManifestFileName)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), "K190001", "K190002", 1)
	require.NoError(t, os.WriteFile(path, []byte(tampered), domain.FilePerm))

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.NotContains(t, m.Records[domain.ManifestDevices].Keys, domain.RecordKey("K190002"))
}

func TestManifest_BothUnreadable(t *testing.T) {
	s, dir := newStore(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName), []byte("{"), domain.FilePerm))
	require.NoError(t, os.WriteFile(filepath.Join(dir, domain.ManifestFileName+domain.ManifestBackupSuffix), []byte("{"), domain.FilePerm))

	_, err := s.LoadManifest()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrManifestUnavailable))
}

func TestManifest_UpdateManifestPropagatesCallbackError(t *testing.T) {
	s, _ := newStore(t, 0)
	boom := errors.New("boom")

	err := s.UpdateManifest(func(m *domain.Manifest) error {
		m.Track("custom", "k", time.Now())
		return boom
	})
	require.ErrorIs(t, err, boom)

	m, err := s.LoadManifest()
	require.NoError(t, err)
	assert.NotContains(t, m.Records, "custom")
}
