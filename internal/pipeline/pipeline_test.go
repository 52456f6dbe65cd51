package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/underlint/underlint/internal/ax"
	"github.com/underlint/underlint/internal/overlay"
	"github.com/underlint/underlint/internal/settings"
	"github.com/underlint/underlint/internal/supervise"
)

func TestExecutor_RunsInOrder(t *testing.T) {
	exec := NewExecutor(16)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		exec.Post(func() { got = append(got, i) })
	}
	exec.Post(func() { close(done) })

	ctx, cancel := context.WithCancel(context.Background())
	go exec.Run(ctx)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("executor did not drain the queue")
	}
	cancel()

	for i, v := range got {
		if v != i {
			t.Fatalf("callback order = %v, want ascending", got)
		}
	}
	if len(got) != 5 {
		t.Fatalf("ran %d callbacks, want 5", len(got))
	}
}

func TestGenerationGate_DiscardsStale(t *testing.T) {
	g := newGenerationGate()

	if !g.Admit("field", 2) {
		t.Fatal("first result should be admitted")
	}
	if g.Admit("field", 1) {
		t.Fatal("out-of-order generation 1 after 2 should be discarded")
	}
	if !g.Admit("field", 2) {
		t.Fatal("re-delivery of the highest generation should be admitted")
	}
	if !g.Admit("field", 3) {
		t.Fatal("newer generation should be admitted")
	}
	if !g.Admit("other", 1) {
		t.Fatal("gate state must be per field")
	}
}

// chanSink collects published mark batches.
type chanSink struct {
	ch chan publish
}

type publish struct {
	fieldID string
	marks   []overlay.Mark
}

func newChanSink() *chanSink {
	return &chanSink{ch: make(chan publish, 8)}
}

func (s *chanSink) Publish(fieldID string, marks []overlay.Mark) {
	s.ch <- publish{fieldID: fieldID, marks: marks}
}

func (s *chanSink) next(t *testing.T) publish {
	t.Helper()
	select {
	case p := <-s.ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published marks")
		return publish{}
	}
}

func testSettings(t *testing.T) *settings.Store {
	t.Helper()
	store := settings.New(filepath.Join(t.TempDir(), "settings.toml"))
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return store
}

func fastSupervise() supervise.Config {
	return supervise.Config{
		Delays:  []time.Duration{time.Millisecond, time.Millisecond},
		Timeout: time.Second,
	}
}

// startPipeline runs p until the test ends and waits for the engine to
// come up.
func startPipeline(t *testing.T, p *Pipeline) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	deadline := time.Now().Add(2 * time.Second)
	for p.EngineState() != supervise.StateReady {
		if time.Now().After(deadline) {
			t.Fatalf("engine state = %v, never became ready", p.EngineState())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPipeline_FocusGainedPublishesMarks(t *testing.T) {
	reader := ax.NewFakeReader()
	fieldID := reader.AddField("Tihs is a tset.", 0, 0)
	sink := newChanSink()

	p := New(Options{
		Reader:    reader,
		Settings:  testSettings(t),
		Sink:      sink,
		Geometry:  overlay.Geometry{HostHeight: 500},
		Supervise: fastSupervise(),
	})
	startPipeline(t, p)

	p.FocusGained(fieldID, reader.Text(fieldID))

	got := sink.next(t)
	if got.fieldID != fieldID {
		t.Fatalf("published for field %q, want %q", got.fieldID, fieldID)
	}
	if len(got.marks) != 2 {
		t.Fatalf("got %d marks, want 2", len(got.marks))
	}
	for _, m := range got.marks {
		if m.Style != overlay.StyleSpelling {
			t.Errorf("mark style = %v, want spelling", m.Style)
		}
		if m.Rect.Y != 484 { // 500 - (0 + 16)
			t.Errorf("mark Y = %v, want 484", m.Rect.Y)
		}
	}
	if x := got.marks[0].Rect.X; x != 0 {
		t.Errorf("first mark X = %v, want 0", x)
	}
	if x := got.marks[1].Rect.X; x != 80 { // rune offset 10 on an 8px grid
		t.Errorf("second mark X = %v, want 80", x)
	}
}

func TestPipeline_TextChangedDebouncesUntilFlush(t *testing.T) {
	reader := ax.NewFakeReader()
	fieldID := reader.AddField("", 0, 0)
	sink := newChanSink()

	p := New(Options{
		Reader:    reader,
		Settings:  testSettings(t),
		Sink:      sink,
		Geometry:  overlay.Geometry{HostHeight: 500},
		Supervise: fastSupervise(),
	})
	startPipeline(t, p)

	p.FocusGained(fieldID, "")
	if got := sink.next(t); len(got.marks) != 0 {
		t.Fatalf("empty field produced %d marks", len(got.marks))
	}

	// A burst of edits must not publish until the debounce fires.
	reader.SetText(fieldID, "the the can")
	p.TextChanged(fieldID, "the th")
	p.TextChanged(fieldID, "the the can")

	select {
	case got := <-sink.ch:
		t.Fatalf("published %d marks before flush", len(got.marks))
	case <-time.After(50 * time.Millisecond):
	}

	p.Flush(fieldID)

	got := sink.next(t)
	if len(got.marks) != 1 {
		t.Fatalf("got %d marks, want 1 repeated-word mark", len(got.marks))
	}
	if got.marks[0].Style != overlay.StyleGrammar {
		t.Errorf("mark style = %v, want grammar", got.marks[0].Style)
	}
}

func TestPipeline_FocusLostClearsMarks(t *testing.T) {
	reader := ax.NewFakeReader()
	fieldID := reader.AddField("Tihs is a tset.", 0, 0)
	sink := newChanSink()

	p := New(Options{
		Reader:    reader,
		Settings:  testSettings(t),
		Sink:      sink,
		Geometry:  overlay.Geometry{HostHeight: 500},
		Supervise: fastSupervise(),
	})
	startPipeline(t, p)

	p.FocusGained(fieldID, reader.Text(fieldID))
	first := sink.next(t)
	if len(first.marks) == 0 {
		t.Fatal("expected marks before focus loss")
	}

	p.FocusLost(fieldID)
	got := sink.next(t)
	if got.fieldID != fieldID {
		t.Fatalf("cleared field %q, want %q", got.fieldID, fieldID)
	}
	if got.marks != nil {
		t.Fatalf("got %d marks after focus loss, want nil", len(got.marks))
	}
}

func TestPipeline_InaccessibleHostWarnsOnce(t *testing.T) {
	reader := ax.NewFakeReader()
	fieldID := reader.AddField("Tihs is a tset.", 0, 0)
	reader.SetAccessible(false)
	sink := newChanSink()

	var mu sync.Mutex
	var warns []error
	p := New(Options{
		Reader:   reader,
		Settings: testSettings(t),
		Sink:     sink,
		Geometry: overlay.Geometry{HostHeight: 500},
		Warn: func(err error) {
			mu.Lock()
			warns = append(warns, err)
			mu.Unlock()
		},
		Supervise: fastSupervise(),
	})
	startPipeline(t, p)

	p.FocusGained(fieldID, reader.Text(fieldID))
	p.FocusGained(fieldID, reader.Text(fieldID))

	// Wait for both analyses to come back through the executor.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(warns)
		mu.Unlock()
		if n >= 1 && p.EngineStats().Analyses >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for analyses")
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(warns) != 1 {
		t.Fatalf("got %d warnings, want exactly 1", len(warns))
	}

	select {
	case got := <-sink.ch:
		t.Fatalf("published %d marks while inaccessible", len(got.marks))
	default:
	}
}
