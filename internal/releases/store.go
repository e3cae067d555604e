package releases

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/kamranahmedse/podsup/internal/log"
)

// Store holds the releases read from a JSON cache file written by the
// update poller.
type Store struct {
	path string

	mu       sync.RWMutex
	releases []Release
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the cache file. A missing file leaves the store empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.set(nil)
			return nil
		}
		return fmt.Errorf("reading releases: %w", err)
	}

	var releases []Release
	if err := json.Unmarshal(data, &releases); err != nil {
		return fmt.Errorf("parsing releases: %w", err)
	}
	s.set(releases)
	return nil
}

func (s *Store) set(releases []Release) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases = releases
}

// Releases returns a copy of the cached list; never nil.
func (s *Store) Releases() []Release {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Release, len(s.releases))
	copy(out, s.releases)
	return out
}

// Watch reloads the store whenever the cache file changes, until ctx is
// done. The parent directory is watched so that atomic replacements and
// late creation are seen.
func (s *Store) Watch(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating releases dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Load(); err != nil {
				log.Warn("reloading releases: %v", err)
				continue
			}
			log.Debug("reloaded releases from %s", s.path)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("releases watcher: %v", err)
		}
	}
}
