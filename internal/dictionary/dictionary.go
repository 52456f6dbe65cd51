// Package dictionary implements the persistent set of user-accepted words.
//
// Words are stored case-folded, so membership checks are case-insensitive.
// The set is persisted to a TOML file after every mutation using a
// write-new-then-rename sequence, so a crash mid-write can never leave a
// truncated store. Readers take an immutable snapshot; the analysis side
// never observes a half-applied mutation.
package dictionary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/cases"
)

// storeVersion is written to the store file for forward compatibility.
const storeVersion = 1

// storeFile is the on-disk representation of the dictionary.
type storeFile struct {
	Version int      `toml:"version"`
	Words   []string `toml:"words"`
}

// Dictionary is a persistent, case-insensitive set of accepted words.
//
// Thread Safety: Dictionary is safe for concurrent use. Mutations take the
// write lock; Contains and Snapshot take the read lock.
type Dictionary struct {
	mu    sync.RWMutex
	words map[string]struct{}
	path  string
}

// New creates a dictionary backed by the store file at path.
// The store is not read until Load is called.
func New(path string) *Dictionary {
	return &Dictionary{
		words: make(map[string]struct{}),
		path:  path,
	}
}

// fold normalizes a word for storage and comparison.
func fold(word string) string {
	return cases.Fold().String(word)
}

// Load reads the persisted store. A missing store file is treated as an
// empty dictionary. A corrupt store returns *LoadError and leaves the
// dictionary empty but usable.
func (d *Dictionary) Load() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &LoadError{Path: d.path, Err: err}
	}

	var store storeFile
	if err := toml.Unmarshal(data, &store); err != nil {
		return &LoadError{Path: d.path, Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.words = make(map[string]struct{}, len(store.Words))
	for _, w := range store.Words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		d.words[fold(w)] = struct{}{}
	}
	return nil
}

// Add inserts the case-folded form of word. Empty or whitespace-only words
// are rejected with ErrInvalidWord. The insert is idempotent; the store is
// persisted only when the set actually changed. A persistence failure is
// returned as *IOError after one immediate retry, with the in-memory insert
// kept in place.
func (d *Dictionary) Add(word string) error {
	trimmed := strings.TrimSpace(word)
	if trimmed == "" {
		return ErrInvalidWord
	}
	key := fold(trimmed)

	d.mu.Lock()
	if _, exists := d.words[key]; exists {
		d.mu.Unlock()
		return nil
	}
	d.words[key] = struct{}{}
	snapshot := d.sortedLocked()
	d.mu.Unlock()

	return d.persist(snapshot)
}

// Remove deletes the case-folded form of word. Removing an absent word is
// a no-op. Persistence failures are reported as *IOError; the in-memory
// removal stands regardless.
func (d *Dictionary) Remove(word string) error {
	key := fold(strings.TrimSpace(word))

	d.mu.Lock()
	if _, exists := d.words[key]; !exists {
		d.mu.Unlock()
		return nil
	}
	delete(d.words, key)
	snapshot := d.sortedLocked()
	d.mu.Unlock()

	return d.persist(snapshot)
}

// Contains reports whether word is in the dictionary, case-insensitively.
func (d *Dictionary) Contains(word string) bool {
	key := fold(strings.TrimSpace(word))

	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.words[key]
	return ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.words)
}

// Words returns all entries in sorted order.
func (d *Dictionary) Words() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sortedLocked()
}

// sortedLocked returns the entries sorted. Must hold mu (read or write).
func (d *Dictionary) sortedLocked() []string {
	words := make([]string, 0, len(d.words))
	for w := range d.words {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Snapshot returns an immutable copy of the current set for use by an
// analysis pass. The snapshot is unaffected by later mutations.
func (d *Dictionary) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	words := make(map[string]struct{}, len(d.words))
	for w := range d.words {
		words[w] = struct{}{}
	}
	return &Snapshot{words: words}
}

// persist writes the given word list via write-new-then-rename. A failed
// write is retried once before being surfaced as *IOError.
func (d *Dictionary) persist(words []string) error {
	err := d.writeStore(words)
	if err == nil {
		return nil
	}
	if err = d.writeStore(words); err == nil {
		return nil
	}
	return &IOError{Path: d.path, Err: err}
}

// writeStore marshals and atomically replaces the store file.
func (d *Dictionary) writeStore(words []string) error {
	data, err := toml.Marshal(storeFile{Version: storeVersion, Words: words})
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(d.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp store: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store: %w", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

// Snapshot is an immutable view of the dictionary taken at a point in time.
type Snapshot struct {
	words map[string]struct{}
}

// Contains reports case-insensitive membership in the snapshot.
func (s *Snapshot) Contains(word string) bool {
	if s == nil {
		return false
	}
	_, ok := s.words[fold(word)]
	return ok
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.words)
}
