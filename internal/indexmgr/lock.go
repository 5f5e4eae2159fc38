package indexmgr

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// buildLock provides cross-process exclusive locking around a build, so
// two retrieverctl build invocations (or a build racing a background
// rebuild) never write into the same version directory concurrently.
type buildLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newBuildLock creates a build lock for the given index directory. The
// lock file is created at <dir>/.build.lock.
func newBuildLock(dir string) *buildLock {
	lockPath := filepath.Join(dir, ".build.lock")
	return &buildLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *buildLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire build lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *buildLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire build lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times.
func (l *buildLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release build lock: %w", err)
	}
	l.locked = false
	return nil
}
