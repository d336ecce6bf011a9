package fs

import (
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/predicate/internal/core/domain"
)

const tempPrefix = ".tmp-"

// beforeRename runs after the temp file is durable and before it replaces the target.
// Tests use it to simulate a crash at the most sensitive point of a write.
var beforeRename = func(string) error { return nil }

// WriteFileAtomic writes data to path by writing a synced temp file in the same
// directory and renaming it over path. Readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, tempPrefix+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	if err := beforeRename(path); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return syncDir(dir)
}

// CopyFileAtomic copies src over dst using WriteFileAtomic.
func CopyFileAtomic(src, dst string, perm os.FileMode) error {
	//nolint:gosec // paths are built from the configured cache directory
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	return WriteFileAtomic(dst, data, perm)
}

// syncDir flushes the directory entry so the rename survives a power loss.
func syncDir(dir string) error {
	//nolint:gosec // dir is the parent of a path we just wrote
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()
	// Some platforms do not support syncing directories.
	_ = d.Sync()
	return nil
}
