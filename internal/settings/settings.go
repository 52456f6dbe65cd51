// Package settings persists the scalar configuration shared by the
// pipeline: accessibility traversal depth, debounce quiet interval, and
// the suggestion count. Absent entries fall back to compiled defaults;
// values are clamped or validated on write, never rejected on read.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/underlint/underlint/internal/ax"
)

// Compiled defaults used when the store has no entry.
const (
	DefaultDebounceInterval = 400 * time.Millisecond
	DefaultMaxSuggestions   = 5
)

// ErrNotLoaded indicates Watch was called before Load.
var ErrNotLoaded = errors.New("settings store not loaded")

// ParseError indicates the settings file could not be parsed.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("settings file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// fileSchema is the on-disk shape. Pointer fields distinguish an absent
// entry from a zero value.
type fileSchema struct {
	TraversalDepth     *int `toml:"traversal_depth"`
	DebounceIntervalMS *int `toml:"debounce_interval_ms"`
	MaxSuggestions     *int `toml:"max_suggestions"`
}

// Store is the persisted settings store.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	path     string
	data     fileSchema
	loaded   bool
	onReload []func()
}

// New creates a store backed by the file at path. Call Load before use.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the settings file. A missing file leaves every entry at
// its compiled default.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.data = fileSchema{}
			s.loaded = true
			s.mu.Unlock()
			return nil
		}
		return &ParseError{Path: s.path, Err: err}
	}

	var parsed fileSchema
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return &ParseError{Path: s.path, Err: err}
	}

	s.mu.Lock()
	s.data = parsed
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// TraversalDepth returns the accessibility traversal depth. Values are
// clamped into the valid window even if the file was edited by hand.
func (s *Store) TraversalDepth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.TraversalDepth == nil {
		return ax.DefaultDepth
	}
	return ax.ClampDepth(*s.data.TraversalDepth)
}

// SetTraversalDepth clamps d into [ax.MinDepth, ax.MaxDepth] and
// persists it.
func (s *Store) SetTraversalDepth(d int) error {
	d = ax.ClampDepth(d)
	s.mu.Lock()
	s.data.TraversalDepth = &d
	s.mu.Unlock()
	return s.save()
}

// DebounceInterval returns the typing quiet interval.
func (s *Store) DebounceInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.DebounceIntervalMS == nil || *s.data.DebounceIntervalMS <= 0 {
		return DefaultDebounceInterval
	}
	return time.Duration(*s.data.DebounceIntervalMS) * time.Millisecond
}

// SetDebounceInterval persists the quiet interval. Non-positive values
// reset to the compiled default.
func (s *Store) SetDebounceInterval(d time.Duration) error {
	ms := int(d / time.Millisecond)
	s.mu.Lock()
	if ms <= 0 {
		s.data.DebounceIntervalMS = nil
	} else {
		s.data.DebounceIntervalMS = &ms
	}
	s.mu.Unlock()
	return s.save()
}

// MaxSuggestions returns the suggestion list cap.
func (s *Store) MaxSuggestions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.MaxSuggestions == nil || *s.data.MaxSuggestions <= 0 {
		return DefaultMaxSuggestions
	}
	return *s.data.MaxSuggestions
}

// SetMaxSuggestions persists the suggestion cap. Non-positive values
// reset to the compiled default.
func (s *Store) SetMaxSuggestions(n int) error {
	s.mu.Lock()
	if n <= 0 {
		s.data.MaxSuggestions = nil
	} else {
		s.data.MaxSuggestions = &n
	}
	s.mu.Unlock()
	return s.save()
}

// OnReload registers a callback run after the settings file is
// reloaded by Watch.
func (s *Store) OnReload(fn func()) {
	s.mu.Lock()
	s.onReload = append(s.onReload, fn)
	s.mu.Unlock()
}

// save writes the store atomically via write-new-then-rename.
func (s *Store) save() error {
	s.mu.RLock()
	data, err := toml.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp settings file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing settings: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing settings: %w", err)
	}
	return nil
}
