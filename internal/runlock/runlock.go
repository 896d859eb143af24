// Package runlock enforces one transcription run at a time on a machine via
// a lock file next to the history database.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning indicates another process holds the run lock.
var ErrAlreadyRunning = errors.New("another transcription run is already in progress")

// Lock guards against concurrent runs using an advisory file lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock at the given path without acquiring it.
func New(path string) (*Lock, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("runlock: lock path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("runlock: ensure lock directory: %w", err)
	}
	return &Lock{path: path, lock: flock.New(path)}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking. ErrAlreadyRunning is returned when
// another process holds it.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("runlock: acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("runlock: release lock: %w", err)
	}
	return nil
}
