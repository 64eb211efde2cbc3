package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "drocsid.lock"

// DirLock guards a local state directory so that two clients never share one
type DirLock struct {
	lockFile *flock.Flock
	lockPath string
}

// NewDirLock creates the directory if needed and prepares a lock file inside it
func NewDirLock(dir string) (*DirLock, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	lockPath := filepath.Join(dir, lockFileName)
	return &DirLock{
		lockFile: flock.New(lockPath),
		lockPath: lockPath,
	}, nil
}

// TryLock attempts to acquire the directory lock
// Returns nil if successful, error if lock is already held or other error occurs
func (dl *DirLock) TryLock() error {
	locked, err := dl.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to try lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another drocsid client is already using %s", filepath.Dir(dl.lockPath))
	}

	return nil
}

// Unlock releases the directory lock and removes the lock file
func (dl *DirLock) Unlock() error {
	if dl.lockFile == nil {
		return nil
	}

	if err := dl.lockFile.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}

	if err := os.Remove(dl.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	return nil
}

func (dl *DirLock) GetLockPath() string {
	return dl.lockPath
}
