// Package runlock guards against two pipeline runs sharing the same data
// directory at once. Without it, two simultaneous runs could both observe an
// identity as unseen and double-select it before either commits.
package runlock

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Lock is an advisory file lock scoped to one data directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// New points the lock at <dataDir>/digest.lock.
func New(dataDir string) *Lock {
	path := filepath.Join(dataDir, "digest.lock")
	return &Lock{path: path, lock: flock.New(path)}
}

// Path reports the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking; a held lock means another run is
// in progress and this invocation must not proceed.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another digest run is already in progress (lock %s)", l.path)
	}
	return nil
}

// Release drops the lock.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}
