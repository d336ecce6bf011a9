//go:build !unix

package fs

import (
	"errors"
	"os"
	"time"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

const lockPollInterval = 10 * time.Millisecond

// FileLock is an exclusive lock implemented with a lock file created exclusively.
type FileLock struct {
	path string
}

// Lock blocks until the lock file at path could be created.
func Lock(path string) (*FileLock, error) {
	lockPath := path + ".excl"
	for {
		//nolint:gosec // lock path is derived from configured directories
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, domain.PrivateFilePerm)
		if err == nil {
			_ = f.Close()
			return &FileLock{path: lockPath}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "path", path)
		}
		time.Sleep(lockPollInterval)
	}
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	return err
}
