package supervise

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/underlint/underlint/internal/lint"
)

// stubEngine is a scriptable Analyzer.
type stubEngine struct {
	panicOn string
	sleep   time.Duration
	issues  []lint.Issue
}

func (e *stubEngine) Analyze(text string, _ lint.Dictionary) []lint.Issue {
	if e.panicOn != "" && strings.Contains(text, e.panicOn) {
		panic("stub engine crash")
	}
	if e.sleep > 0 {
		time.Sleep(e.sleep)
	}
	return e.issues
}

// stubFactory builds engines from a script of outcomes. Each call
// consumes one entry; the last entry repeats.
type stubFactory struct {
	mu      sync.Mutex
	outcome []func() (Analyzer, error)
	calls   int
}

func (f *stubFactory) factory() (Analyzer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.outcome) {
		i = len(f.outcome) - 1
	}
	f.calls++
	return f.outcome[i]()
}

func good() (Analyzer, error)   { return &stubEngine{}, nil }
func broken() (Analyzer, error) { return nil, errors.New("construction failed") }

func fastConfig() Config {
	return Config{
		Delays:    []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
		Timeout:   200 * time.Millisecond,
		ProbeText: "probe",
	}
}

// collectState waits for the next event carrying the wanted state.
func collectState(t *testing.T, events <-chan StateChange, want State) StateChange {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("events closed while waiting for %v", want)
			}
			if ev.State == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %v", want)
		}
	}
}

func TestStartupProbe_Success(t *testing.T) {
	f := &stubFactory{outcome: []func() (Analyzer, error){good}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	collectState(t, s.Events(), StateReady)
	if s.State() != StateReady {
		t.Errorf("State() = %v, want ready", s.State())
	}
}

func TestStartupProbe_FailureEntersDegradedZero(t *testing.T) {
	f := &stubFactory{outcome: []func() (Analyzer, error){broken, good}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ev := collectState(t, s.Events(), StateDegraded)
	if ev.RetryCount != 0 {
		t.Errorf("first degraded RetryCount = %d, want 0", ev.RetryCount)
	}
	collectState(t, s.Events(), StateReady)
}

func TestRestartSchedule_ExhaustionIsTerminal(t *testing.T) {
	// First construction succeeds so we reach Ready; a crash then
	// drives the schedule, and every rebuild fails.
	f := &stubFactory{outcome: []func() (Analyzer, error){
		func() (Analyzer, error) { return &stubEngine{panicOn: "boom"}, nil },
		broken,
	}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	collectState(t, s.Events(), StateReady)

	err := s.Submit(lint.Request{FieldID: "f", Text: "boom", Generation: 1}, nil, nil)
	if err != nil {
		t.Fatalf("Submit while ready: %v", err)
	}

	var retries []int
	deadline := time.After(2 * time.Second)
	for {
		var ev StateChange
		select {
		case ev = <-s.Events():
		case <-deadline:
			t.Fatalf("timed out; retries seen: %v", retries)
		}
		if ev.State == StateDegraded {
			retries = append(retries, ev.RetryCount)
		}
		if ev.State == StateFailed {
			if len(retries) != 3 || retries[0] != 0 || retries[1] != 1 || retries[2] != 2 {
				t.Errorf("degraded retry sequence = %v, want [0 1 2]", retries)
			}
			// No further automatic restart after Failed.
			factoryCalls := func() int {
				f.mu.Lock()
				defer f.mu.Unlock()
				return f.calls
			}
			before := factoryCalls()
			time.Sleep(20 * time.Millisecond)
			if after := factoryCalls(); after != before {
				t.Errorf("factory called after Failed: %d -> %d", before, after)
			}
			if s.State() != StateFailed {
				t.Errorf("State() = %v, want failed", s.State())
			}
			return
		}
	}
}

func TestRecovery_ResetsRetryCount(t *testing.T) {
	f := &stubFactory{outcome: []func() (Analyzer, error){
		func() (Analyzer, error) { return &stubEngine{panicOn: "boom"}, nil },
		broken,
		good,
	}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	collectState(t, s.Events(), StateReady)

	if err := s.Submit(lint.Request{FieldID: "f", Text: "boom", Generation: 1}, nil, nil); err != nil {
		t.Fatal(err)
	}

	collectState(t, s.Events(), StateDegraded)
	ev := collectState(t, s.Events(), StateReady)
	if ev.RetryCount != 0 {
		t.Errorf("ready event RetryCount = %d, want 0", ev.RetryCount)
	}
	if s.RetryCount() != 0 {
		t.Errorf("RetryCount() = %d after recovery, want 0", s.RetryCount())
	}
}

func TestSubmit_NotReady(t *testing.T) {
	f := &stubFactory{outcome: []func() (Analyzer, error){good}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	// Not started: still Initializing.
	err := s.Submit(lint.Request{FieldID: "f", Text: "x", Generation: 1}, nil, nil)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("Submit before ready = %v, want ErrEngineUnavailable", err)
	}
}

func TestSubmit_DeliversResult(t *testing.T) {
	want := []lint.Issue{{
		Range: lint.Range{Start: 0, Length: 4},
		Kind:  lint.KindSpelling,
	}}
	f := &stubFactory{outcome: []func() (Analyzer, error){
		func() (Analyzer, error) { return &stubEngine{issues: want}, nil },
	}}
	s := New(f.factory, nil, fastConfig())
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	collectState(t, s.Events(), StateReady)

	resCh := make(chan lint.Result, 1)
	err := s.Submit(lint.Request{FieldID: "f", Text: "zzqy here", Generation: 7}, nil,
		func(res lint.Result, err error) {
			if err != nil {
				t.Errorf("deliver err = %v", err)
			}
			resCh <- res
		})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case res := <-resCh:
		if res.Generation != 7 {
			t.Errorf("Generation = %d, want 7", res.Generation)
		}
		if len(res.Issues) != 1 {
			t.Errorf("Issues = %v, want 1", res.Issues)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("result not delivered")
	}
}

func TestTimeout_DrivesDegraded(t *testing.T) {
	cfg := fastConfig()
	cfg.Timeout = 10 * time.Millisecond

	// The engine must answer the probe instantly or the startup probe
	// itself would time out.
	f := &stubFactory{outcome: []func() (Analyzer, error){
		func() (Analyzer, error) { return &slowAfterProbe{probe: cfg.ProbeText}, nil },
	}}

	s := New(f.factory, nil, cfg)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	collectState(t, s.Events(), StateReady)

	errCh := make(chan error, 1)
	err := s.Submit(lint.Request{FieldID: "f", Text: "slow", Generation: 1}, nil,
		func(_ lint.Result, err error) { errCh <- err })
	if err != nil {
		t.Fatal(err)
	}

	select {
	case derr := <-errCh:
		if !errors.Is(derr, ErrEngineUnavailable) {
			t.Errorf("delivered err = %v, want ErrEngineUnavailable", derr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery after timeout")
	}

	collectState(t, s.Events(), StateDegraded)
}

// slowAfterProbe answers the probe text instantly and hangs on
// everything else.
type slowAfterProbe struct {
	probe string
}

func (e *slowAfterProbe) Analyze(text string, _ lint.Dictionary) []lint.Issue {
	if text == e.probe {
		return nil
	}
	time.Sleep(time.Second)
	return nil
}

func TestStateChange_String(t *testing.T) {
	tests := []struct {
		change StateChange
		want   string
	}{
		{StateChange{State: StateReady}, "ready"},
		{StateChange{State: StateDegraded, RetryCount: 1, ScheduleLen: 3}, "degraded - retrying (2/3)"},
		{StateChange{State: StateFailed}, "failed"},
	}
	for _, tt := range tests {
		if got := tt.change.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestStop_Idempotent(t *testing.T) {
	f := &stubFactory{outcome: []func() (Analyzer, error){good}}
	s := New(f.factory, nil, fastConfig())

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	collectState(t, s.Events(), StateReady)

	s.Stop()
	s.Stop()
}
