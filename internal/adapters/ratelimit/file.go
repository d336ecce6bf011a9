package ratelimit

import (
	"encoding/json"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/predicate/internal/adapters/fs"
	"go.trai.ch/predicate/internal/core/domain"
	"go.trai.ch/zerr"
)

const lockFileName = "ratelimit.lock"

// FileLimiter is a token bucket whose state lives on disk so that cooperating
// processes share one budget. Every take happens under an advisory file lock.
type FileLimiter struct {
	*limiter
	statePath string
	lockPath  string
}

// NewFileLimiter creates a limiter persisting its state in dir.
func NewFileLimiter(dir string, cfg domain.RateLimitConfig, opts ...Option) (*FileLimiter, error) {
	clean := filepath.Clean(dir)
	if err := os.MkdirAll(clean, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrRateLimitStateFailed.Error()), "path", clean)
	}
	f := &FileLimiter{
		statePath: filepath.Join(clean, domain.RateLimitStateFile),
		lockPath:  filepath.Join(clean, lockFileName),
	}
	f.limiter = newLimiter(cfg, f.takeTokens, opts)
	return f, nil
}

func (f *FileLimiter) takeTokens(n int, now time.Time) (time.Duration, error) {
	lock, err := fs.Lock(f.lockPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = lock.Unlock() }()

	st, err := f.load(now)
	if err != nil {
		return 0, err
	}

	st, wait := f.bucket.take(st, n, now)

	data, err := json.Marshal(st)
	if err != nil {
		return 0, zerr.Wrap(err, domain.ErrRateLimitStateFailed.Error())
	}
	if err := fs.WriteFileAtomic(f.statePath, data, domain.PrivateFilePerm); err != nil {
		return 0, zerr.With(zerr.Wrap(err, domain.ErrRateLimitStateFailed.Error()), "path", f.statePath)
	}
	return wait, nil
}

func (f *FileLimiter) load(now time.Time) (state, error) {
	data, err := os.ReadFile(f.statePath)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return f.bucket.full(now), nil
		}
		return state{}, zerr.With(zerr.Wrap(err, domain.ErrRateLimitStateFailed.Error()), "path", f.statePath)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		// A damaged state file must not block traffic forever. Start from an
		// empty bucket so the damage can never grant extra requests.
		return state{Tokens: 0, UpdatedAt: now}, nil
	}
	return st, nil
}
