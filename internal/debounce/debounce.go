// Package debounce paces analysis submissions against live typing.
//
// Each monitored field has at most one pending scheduled callback. A
// burst of resets within the quiet interval collapses to a single fire
// attributable to the last reset in the burst. A fire version per field
// invalidates timer callbacks that lose a race with Reset or Cancel.
package debounce

import (
	"sync"
	"time"
)

// DefaultQuiet is the quiet interval used when none is configured.
const DefaultQuiet = 400 * time.Millisecond

// Executor runs fired callbacks on the pipeline's execution context.
// A nil Executor runs them directly on the timer goroutine.
type Executor interface {
	Post(fn func())
}

// pending is the single scheduled callback for one field.
type pending struct {
	timer   *time.Timer
	fn      func()
	version uint64
}

// Debouncer coalesces per-field input events into single fires.
//
// Thread Safety: Debouncer is safe for concurrent use.
type Debouncer struct {
	mu       sync.Mutex
	quiet    time.Duration
	exec     Executor
	pending  map[string]*pending
	versions map[string]uint64
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithQuiet sets the quiet interval.
func WithQuiet(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.quiet = d
		}
	}
}

// WithExecutor delivers fires through exec instead of the timer
// goroutine.
func WithExecutor(exec Executor) Option {
	return func(db *Debouncer) {
		db.exec = exec
	}
}

// New creates a debouncer.
func New(opts ...Option) *Debouncer {
	db := &Debouncer{
		quiet:    DefaultQuiet,
		pending:  make(map[string]*pending),
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// SetQuiet changes the quiet interval for subsequent resets. Already
// scheduled callbacks keep their original deadline.
func (db *Debouncer) SetQuiet(d time.Duration) {
	if d <= 0 {
		return
	}
	db.mu.Lock()
	db.quiet = d
	db.mu.Unlock()
}

// Reset cancels any pending callback for fieldID and schedules fn to
// fire after the quiet interval measured from now.
func (db *Debouncer) Reset(fieldID string, fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.cancelLocked(fieldID)

	db.versions[fieldID]++
	version := db.versions[fieldID]

	p := &pending{fn: fn, version: version}
	p.timer = time.AfterFunc(db.quiet, func() {
		db.fire(fieldID, version)
	})
	db.pending[fieldID] = p
}

// fire delivers a timer expiry if it is still the current pending
// callback for the field.
func (db *Debouncer) fire(fieldID string, version uint64) {
	db.mu.Lock()
	p, ok := db.pending[fieldID]
	if !ok || p.version != version {
		// A Reset or Cancel won the race with this timer.
		db.mu.Unlock()
		return
	}
	delete(db.pending, fieldID)
	fn := p.fn
	db.mu.Unlock()

	if db.exec != nil {
		db.exec.Post(fn)
		return
	}
	fn()
}

// Flush invokes the pending callback for fieldID immediately and
// synchronously, then clears the pending state. No-op when nothing is
// pending.
func (db *Debouncer) Flush(fieldID string) {
	db.mu.Lock()
	p, ok := db.pending[fieldID]
	if !ok {
		db.mu.Unlock()
		return
	}
	p.timer.Stop()
	delete(db.pending, fieldID)
	db.versions[fieldID]++
	fn := p.fn
	db.mu.Unlock()

	fn()
}

// Cancel discards any pending callback for fieldID without invoking it.
func (db *Debouncer) Cancel(fieldID string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.cancelLocked(fieldID)
}

// CancelAll discards every pending callback.
func (db *Debouncer) CancelAll() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for fieldID := range db.pending {
		db.cancelLocked(fieldID)
	}
}

// Pending reports whether a callback is scheduled for fieldID.
func (db *Debouncer) Pending(fieldID string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.pending[fieldID]
	return ok
}

// cancelLocked removes and stops the field's timer. Must hold mu.
func (db *Debouncer) cancelLocked(fieldID string) {
	p, ok := db.pending[fieldID]
	if !ok {
		return
	}
	p.timer.Stop()
	delete(db.pending, fieldID)
	db.versions[fieldID]++
}
