package tracker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/danielolaszy/attractor/internal/logging"
)

const lockRetryDelay = 50 * time.Millisecond

// FileLocker serializes writers of a storage repository across goroutines
// and processes with an advisory lock file next to the working copy.
type FileLocker struct {
	retryDelay time.Duration
}

// NewFileLocker returns a FileLocker.
func NewFileLocker() *FileLocker {
	return &FileLocker{retryDelay: lockRetryDelay}
}

// Lock blocks until the lock for storePath is held or ctx is done.
func (l *FileLocker) Lock(ctx context.Context, storePath string) (func(), error) {
	path := filepath.Clean(storePath) + ".lock"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	locked, err := fl.TryLockContext(ctx, l.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", storePath, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", storePath)
	}

	logging.Debug("store locked", "path", path)
	return func() {
		if err := fl.Unlock(); err != nil {
			logging.Warn("failed to release store lock", "path", path, "error", err)
		}
	}, nil
}
