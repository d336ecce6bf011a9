// Package fs provides file system primitives: atomic writes, advisory locks and directory walking.
package fs

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
	"time"
)

// FileInfo describes a file yielded by the walker.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Walker provides file walking functionality.
type Walker struct{}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// WalkFiles yields every regular file directly under root whose name ends with suffix.
// Temporary files left by interrupted atomic writes are skipped.
func (w *Walker) WalkFiles(root, suffix string) iter.Seq[FileInfo] {
	return func(yield func(FileInfo) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // unreadable entries are skipped
			}
			if d.IsDir() {
				if path != root {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), suffix) || strings.HasPrefix(d.Name(), tempPrefix) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil //nolint:nilerr // file vanished between readdir and stat
			}

			if !yield(FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}
