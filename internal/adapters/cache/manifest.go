package cache

import (
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/predicate/internal/adapters/fs"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

const manifestLockName = "manifest.lock"

func (s *Store) manifestPath() string {
	return filepath.Join(s.root, domain.ManifestFileName)
}

func (s *Store) backupPath() string {
	return s.manifestPath() + domain.ManifestBackupSuffix
}

// LoadManifest reads the manifest, falling back to the rollback copy when the
// current file is missing or damaged. A cache without either yields an empty manifest.
func (s *Store) LoadManifest() (*domain.Manifest, error) {
	m, currentErr := readManifest(s.manifestPath())
	if currentErr == nil {
		return m, nil
	}
	if errors.Is(currentErr, domain.ErrSchemaUnsupported) {
		return nil, currentErr
	}

	m, backupErr := readManifest(s.backupPath())
	if backupErr == nil {
		return m, nil
	}

	if errors.Is(currentErr, iofs.ErrNotExist) && errors.Is(backupErr, iofs.ErrNotExist) {
		return domain.NewManifest(), nil
	}

	err := zerr.Wrap(domain.ErrManifestUnavailable, "manifest and backup are unreadable")
	return nil, zerr.With(err, "path", s.manifestPath())
}

// UpdateManifest applies fn to the current manifest under the manifest lock and saves it.
func (s *Store) UpdateManifest(fn func(*domain.Manifest) error) error {
	lock, err := fs.Lock(filepath.Join(s.root, manifestLockName))
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	m, err := s.LoadManifest()
	if err != nil {
		return err
	}
	if err := fn(m); err != nil {
		return err
	}
	return s.saveManifest(m)
}

// saveManifest keeps the previous good manifest as the rollback copy, then
// replaces the current file atomically. The caller holds the manifest lock.
func (s *Store) saveManifest(m *domain.Manifest) error {
	m.SchemaVersion = domain.CurrentSchemaVersion
	m.UpdatedAt = s.now().UTC()
	m.Checksum = m.ComputeChecksum()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}

	if _, err := readManifest(s.manifestPath()); err == nil {
		if err := fs.CopyFileAtomic(s.manifestPath(), s.backupPath(), domain.FilePerm); err != nil {
			return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
		}
	}

	if err := s.write(s.manifestPath(), data, domain.FilePerm); err != nil {
		return zerr.Wrap(err, domain.ErrManifestWriteFailed.Error())
	}
	return nil
}

func readManifest(path string) (*domain.Manifest, error) {
	//nolint:gosec // Path is constructed from the configured cache directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.Wrap(err, "manifest is not valid json")
	}
	if m.SchemaVersion > domain.CurrentSchemaVersion {
		err := zerr.Wrap(domain.ErrSchemaUnsupported, "manifest written by a newer version")
		return nil, zerr.With(err, "schema_version", m.SchemaVersion)
	}
	if m.Checksum != "" && m.Checksum != m.ComputeChecksum() {
		return nil, zerr.With(zerr.New("manifest checksum mismatch"), "path", path)
	}
	if m.Records == nil {
		m.Records = make(map[string]domain.ManifestRecord)
	}
	return &m, nil
}
