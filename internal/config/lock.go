package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// WithLock serialises read-modify-write cycles on the config file across
// processes.
func WithLock(fn func() error) error {
	if err := os.MkdirAll(Dir(), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	lockPath := filepath.Join(Dir(), "config.lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("acquiring config lock: %w", err)
	}
	defer unlockFile(f)

	return fn()
}
