// Package lock provides the single-instance guard for the application
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning indicates another process already holds the instance lock
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard holds a named, OS-level exclusive lock for the lifetime of the
// process. The caller must keep the Guard referenced from a process-scoped
// owner (the application root), never a function local: if the Guard is
// reclaimable, nothing stops a second instance from starting.
type Guard struct {
	name string
	fl   *flock.Flock
}

// Acquire attempts to take the named lock inside dir. The directory must be
// private to the user (the application directory), so one user's instance
// never contends with another's. Acquire returns ErrAlreadyRunning when the
// lock is held by another process; the caller is expected to show a notice
// and exit cleanly, never to continue.
func Acquire(dir, name string) (*Guard, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".lock")

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire instance lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	return &Guard{name: name, fl: fl}, nil
}

// Name returns the lock name the guard was acquired under
func (g *Guard) Name() string {
	return g.name
}

// Release drops the lock. Called only on the quit path; the OS releases the
// lock anyway if the process dies without reaching it.
func (g *Guard) Release() error {
	if g == nil || g.fl == nil {
		return nil
	}
	if err := g.fl.Unlock(); err != nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}
	return nil
}
