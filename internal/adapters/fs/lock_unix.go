//go:build unix

package fs

import (
	"errors"
	"os"

	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

// FileLock is an advisory, cross-process exclusive lock held on a file.
type FileLock struct {
	f *os.File
}

// Lock blocks until an exclusive lock on path is held. The file is created if needed.
func Lock(path string) (*FileLock, error) {
	//nolint:gosec // lock path is derived from configured directories
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, domain.PrivateFilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "path", path)
	}

	for {
		err = unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if !errors.Is(err, unix.EINTR) {
			break
		}
	}
	if err != nil {
		_ = f.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrLockFailed.Error()), "path", path)
	}

	return &FileLock{f: f}, nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return closeErr
}
