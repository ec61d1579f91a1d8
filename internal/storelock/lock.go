// Package storelock provides cross-process locking for the graph store's
// on-disk files, so two cadi processes never write the same SQLite
// database or blob directory concurrently.
package storelock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// FileLock guards a store directory with an exclusive, cross-process
// advisory lock. Works on Unix, Linux, macOS, and Windows.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New creates a lock for the given store directory. The lock file lives
// at <dir>/.store.lock.
func New(dir string) *FileLock {
	lockPath := filepath.Join(dir, ".store.lock")
	return &FileLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires the exclusive lock, blocking until available.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire store lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call repeatedly or when unlocked.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release store lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string { return l.path }

// IsLocked reports whether this handle currently holds the lock.
func (l *FileLock) IsLocked() bool { return l.locked }
