package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store when the settings file changes on disk and
// then runs the registered OnReload callbacks. It blocks until ctx is
// cancelled. The parent directory is watched rather than the file
// itself so atomic rename-replace writes are seen as events.
func (s *Store) Watch(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if !loaded {
		return ErrNotLoaded
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating settings watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Load(); err != nil {
				// Keep the last good values on a bad reload.
				continue
			}
			s.notifyReload()
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (s *Store) notifyReload() {
	s.mu.RLock()
	callbacks := make([]func(), len(s.onReload))
	copy(callbacks, s.onReload)
	s.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}
