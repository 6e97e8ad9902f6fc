package csvout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the output directory while a run holds it.
const LockFileName = ".job_scraper.lock"

// ErrDirLocked is returned when another run holds the output directory.
var ErrDirLocked = errors.New("output directory is in use by another run")

// DirLock guards an output directory against concurrent runs.
type DirLock struct {
	fl *flock.Flock
}

// LockDir creates dir if needed and takes its lock without blocking.
func LockDir(dir string) (*DirLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock output directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDirLocked, dir)
	}
	return &DirLock{fl: fl}, nil
}

// Unlock releases the lock and removes the lock file.
func (l *DirLock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	_ = os.Remove(l.fl.Path())
	return nil
}
