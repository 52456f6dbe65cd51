// Package supervise owns the lifecycle of the lint engine as a
// fault-isolated unit.
//
// The engine runs behind a message-passing boundary: callers post
// requests and receive results via a callback on their own execution
// context, so a panicking or hanging analysis can never corrupt or
// block the caller. Failures drive a bounded restart schedule; when the
// schedule is exhausted the supervisor parks in the terminal Failed
// state and waits for an external relaunch.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/underlint/underlint/internal/lint"
)

// State is the supervised engine's lifecycle state.
type State uint8

const (
	// StateInitializing means the startup probe has not completed.
	StateInitializing State = iota

	// StateReady means the engine is accepting requests.
	StateReady

	// StateDegraded means the engine is down and bounded restart
	// attempts are in progress.
	StateDegraded

	// StateFailed means the restart schedule is exhausted. Terminal
	// for this instance; recovery requires an external relaunch.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateChange is emitted to listeners on every state transition.
type StateChange struct {
	// State is the state being entered.
	State State

	// RetryCount is the number of consecutive restart failures since
	// leaving Ready. Meaningful only when State is StateDegraded.
	RetryCount int

	// ScheduleLen is the configured restart schedule length, for
	// rendering "retrying (k/total)" status lines.
	ScheduleLen int

	// Err is the failure that caused the transition, if any.
	Err error
}

// String renders the change for status display.
func (c StateChange) String() string {
	if c.State == StateDegraded {
		return fmt.Sprintf("degraded - retrying (%d/%d)", c.RetryCount+1, c.ScheduleLen)
	}
	return c.State.String()
}

// Analyzer is the supervised workload.
type Analyzer interface {
	Analyze(text string, dict lint.Dictionary) []lint.Issue
}

// Factory builds a fresh engine instance. It is invoked at startup and
// on every restart attempt; a crashed instance is always discarded.
type Factory func() (Analyzer, error)

// Executor runs callbacks on the caller's execution context. Results
// are always delivered through it, never on the supervisor goroutine.
type Executor interface {
	Post(fn func())
}

// Config tunes the supervisor.
type Config struct {
	// Delays is the restart-delay schedule. After entering
	// Degraded(n) the supervisor waits Delays[n] before the next
	// restart attempt; the schedule length bounds automatic retries.
	Delays []time.Duration

	// Timeout bounds each analysis round trip and the startup probe.
	Timeout time.Duration

	// ProbeText is analyzed to verify an engine instance works.
	ProbeText string
}

// DefaultConfig returns the production restart schedule.
func DefaultConfig() Config {
	return Config{
		Delays:    []time.Duration{1 * time.Second, 2 * time.Second, 5 * time.Second},
		Timeout:   2 * time.Second,
		ProbeText: "The quick brown fox jumps over the lazy dog.",
	}
}

// request crosses the message-passing boundary into the engine side.
type request struct {
	req     lint.Request
	dict    lint.Dictionary
	deliver func(lint.Result, error)
}

// Supervisor drives the engine state machine.
//
// Thread Safety: Supervisor is safe for concurrent use. The state field
// uses atomic loads for lock-free reads; retryCount is guarded by mu.
type Supervisor struct {
	mu      sync.Mutex
	cfg     Config
	factory Factory
	exec    Executor

	engine     Analyzer
	state      atomic.Int32
	retryCount int
	analyses   uint64
	crashes    uint64

	reqCh  chan request
	events chan StateChange

	ctx       context.Context
	cancel    context.CancelFunc
	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// New creates a supervisor. exec may be nil, in which case results are
// delivered synchronously on the supervisor goroutine (test use only).
func New(factory Factory, exec Executor, cfg Config) *Supervisor {
	if len(cfg.Delays) == 0 {
		cfg.Delays = DefaultConfig().Delays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.ProbeText == "" {
		cfg.ProbeText = DefaultConfig().ProbeText
	}

	s := &Supervisor{
		cfg:     cfg,
		factory: factory,
		exec:    exec,
		reqCh:   make(chan request, 8),
		events:  make(chan StateChange, 16),
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateInitializing))
	return s
}

// Start launches the supervision goroutine. It returns immediately; the
// startup probe outcome is observable via Events.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	go s.run()
	return nil
}

// Stop terminates supervision. Idempotent.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.started.Load() {
		<-s.done
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.events)
	})
}

// State returns the current engine state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// RetryCount returns the consecutive restart failures since leaving
// Ready. Meaningful only while Degraded.
func (s *Supervisor) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount
}

// Events returns the state-change notification channel. Transitions are
// dropped, never blocked on, if the listener falls behind. The channel
// is closed by Stop.
func (s *Supervisor) Events() <-chan StateChange {
	return s.events
}

// Stats is a point-in-time snapshot for status reporting.
type Stats struct {
	State       State
	RetryCount  int
	ScheduleLen int
	Analyses    uint64
	Crashes     uint64
}

// Stats returns current supervisor statistics.
func (s *Supervisor) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		State:       State(s.state.Load()),
		RetryCount:  s.retryCount,
		ScheduleLen: len(s.cfg.Delays),
		Analyses:    s.analyses,
		Crashes:     s.crashes,
	}
}

// Submit posts a request for analysis. If the engine is not Ready the
// request is rejected with ErrEngineUnavailable rather than queued:
// every request carries the latest snapshot and a fresh generation, so
// a queued stale request would only add latency after recovery.
// The result is delivered asynchronously through the executor.
func (s *Supervisor) Submit(req lint.Request, dict lint.Dictionary, deliver func(lint.Result, error)) error {
	if s.State() != StateReady {
		return ErrEngineUnavailable
	}
	select {
	case s.reqCh <- request{req: req, dict: dict, deliver: deliver}:
		return nil
	default:
		return ErrEngineUnavailable
	}
}

// run is the supervision loop.
func (s *Supervisor) run() {
	defer close(s.done)

	s.transition(StateInitializing, 0, nil)

	engine, err := s.bringUp()
	if err != nil {
		if !s.recoverLoop(err) {
			return
		}
	} else {
		s.setEngine(engine)
		s.transition(StateReady, 0, nil)
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case r := <-s.reqCh:
			issues, err := s.analyzeIsolated(r.req.Text, r.dict)
			if err != nil {
				s.deliver(r, lint.Result{Generation: r.req.Generation}, ErrEngineUnavailable)
				s.mu.Lock()
				s.crashes++
				s.mu.Unlock()
				if !s.recoverLoop(err) {
					return
				}
				continue
			}

			s.mu.Lock()
			s.analyses++
			s.mu.Unlock()
			s.deliver(r, lint.Result{Generation: r.req.Generation, Issues: issues}, nil)
		}
	}
}

// bringUp builds a fresh engine and probes it.
func (s *Supervisor) bringUp() (Analyzer, error) {
	engine, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("engine construction: %w", err)
	}

	if _, err := isolatedAnalyze(s.ctx, engine, s.cfg.ProbeText, nil, s.cfg.Timeout); err != nil {
		return nil, fmt.Errorf("startup probe: %w", err)
	}
	return engine, nil
}

func (s *Supervisor) setEngine(engine Analyzer) {
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
}

// analyzeIsolated runs one analysis on the current engine with panic
// isolation and the configured timeout.
func (s *Supervisor) analyzeIsolated(text string, dict lint.Dictionary) ([]lint.Issue, error) {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()

	if engine == nil {
		return nil, ErrEngineUnavailable
	}
	return isolatedAnalyze(s.ctx, engine, text, dict, s.cfg.Timeout)
}

// isolatedAnalyze runs Analyze on its own goroutine. A panic is
// converted to an error; a timeout abandons the goroutine along with
// the engine instance, which is discarded by the restart path.
func isolatedAnalyze(ctx context.Context, engine Analyzer, text string, dict lint.Dictionary, timeout time.Duration) ([]lint.Issue, error) {
	type outcome struct {
		issues []lint.Issue
		err    error
	}
	ch := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: fmt.Errorf("%w: %v", ErrEngineCrashed, r)}
			}
		}()
		ch <- outcome{issues: engine.Analyze(text, dict)}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-ch:
		return out.issues, out.err
	case <-timer.C:
		return nil, ErrAnalysisTimeout
	}
}

// recoverLoop walks the restart schedule after a failure. It returns
// true once an attempt succeeds (state Ready), false when the schedule
// is exhausted (state Failed) or the supervisor is stopping.
func (s *Supervisor) recoverLoop(cause error) bool {
	s.setEngine(nil)
	s.drainPending()

	last := len(s.cfg.Delays) - 1
	for n := 0; ; n++ {
		s.transition(StateDegraded, n, cause)

		select {
		case <-s.ctx.Done():
			return false
		case <-time.After(s.cfg.Delays[n]):
		}

		engine, err := s.bringUp()
		if err == nil {
			s.setEngine(engine)
			s.transition(StateReady, 0, nil)
			return true
		}

		cause = err
		if n == last {
			s.transition(StateFailed, n, err)
			return false
		}
	}
}

// drainPending rejects requests that were queued before a failure was
// detected. Their snapshots are stale by definition.
func (s *Supervisor) drainPending() {
	for {
		select {
		case r := <-s.reqCh:
			s.deliver(r, lint.Result{Generation: r.req.Generation}, ErrEngineUnavailable)
		default:
			return
		}
	}
}

// deliver hands a result back on the caller's execution context.
func (s *Supervisor) deliver(r request, res lint.Result, err error) {
	if r.deliver == nil {
		return
	}
	if s.exec == nil {
		r.deliver(res, err)
		return
	}
	s.exec.Post(func() { r.deliver(res, err) })
}

// transition updates the state machine and notifies listeners.
func (s *Supervisor) transition(state State, retryCount int, err error) {
	s.mu.Lock()
	s.state.Store(int32(state))
	if state == StateDegraded {
		s.retryCount = retryCount
	} else {
		s.retryCount = 0
	}
	s.mu.Unlock()

	s.emit(StateChange{
		State:       state,
		RetryCount:  retryCount,
		ScheduleLen: len(s.cfg.Delays),
		Err:         err,
	})
}

// emit sends an event without ever blocking the state machine.
func (s *Supervisor) emit(event StateChange) {
	if s.closed.Load() {
		return
	}
	select {
	case s.events <- event:
	default:
		// Listener fell behind, drop.
	}
}

// errors

var (
	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("supervisor already started")

	// ErrEngineUnavailable indicates the engine is not Ready. Callers
	// recover by simply not updating the overlay for that generation.
	ErrEngineUnavailable = errors.New("engine unavailable")

	// ErrEngineCrashed indicates an analysis panicked.
	ErrEngineCrashed = errors.New("engine crashed")

	// ErrAnalysisTimeout indicates an analysis exceeded the configured
	// round-trip timeout.
	ErrAnalysisTimeout = errors.New("analysis timed out")
)
