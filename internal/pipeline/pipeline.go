// Package pipeline composes the annotation pipeline: keystroke and
// focus events feed the typing debouncer, settled bursts submit
// snapshots to the supervised engine, and admitted results are mapped
// through the accessibility geometry into overlay marks.
package pipeline

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/underlint/underlint/internal/ax"
	"github.com/underlint/underlint/internal/debounce"
	"github.com/underlint/underlint/internal/dictionary"
	"github.com/underlint/underlint/internal/lint"
	"github.com/underlint/underlint/internal/overlay"
	"github.com/underlint/underlint/internal/settings"
	"github.com/underlint/underlint/internal/supervise"
)

// MarkSink receives overlay mark batches for rendering. A nil batch
// clears the field's marks.
type MarkSink interface {
	Publish(fieldID string, marks []overlay.Mark)
}

// MarkSinkFunc adapts a function to MarkSink.
type MarkSinkFunc func(fieldID string, marks []overlay.Mark)

// Publish implements MarkSink.
func (f MarkSinkFunc) Publish(fieldID string, marks []overlay.Mark) {
	f(fieldID, marks)
}

// Options configures a Pipeline.
type Options struct {
	// Reader walks the host accessibility tree.
	Reader ax.Reader

	// Dictionary is the user's accepted-word set.
	Dictionary *dictionary.Dictionary

	// Settings supplies traversal depth, quiet interval, and the
	// suggestion cap. Must be loaded.
	Settings *settings.Store

	// Sink receives computed marks.
	Sink MarkSink

	// Status receives engine state changes, if set.
	Status func(supervise.StateChange)

	// Warn receives non-fatal pipeline errors, if set. The
	// accessibility-permission error is reported through here exactly
	// once per denial.
	Warn func(error)

	// Rules are extra grammar rules (user rule packs).
	Rules []lint.GrammarRule

	// Calculator supplies popup/mark metrics. Zero value gets
	// DefaultCalculator.
	Calculator overlay.Calculator

	// Geometry is the accessibility-to-host flip for the display.
	Geometry overlay.Geometry

	// Supervise tunes the engine supervisor. Zero value gets
	// DefaultConfig.
	Supervise supervise.Config
}

// Pipeline wires the annotation components together. All mutable state
// is confined to the executor goroutine; the exported event methods may
// be called from any goroutine.
type Pipeline struct {
	exec   *Executor
	deb    *debounce.Debouncer
	sup    *supervise.Supervisor
	dict   *dictionary.Dictionary
	reader ax.Reader
	store  *settings.Store
	calc   overlay.Calculator
	geom   overlay.Geometry
	sink   MarkSink
	status func(supervise.StateChange)
	warn   func(error)

	// Executor-confined state.
	ctx      context.Context
	focused  string
	gens     map[string]uint64
	gate     *generationGate
	axWarned bool
}

// New assembles a pipeline. The supervisor is not started until Run.
func New(opts Options) *Pipeline {
	calc := opts.Calculator
	if calc == (overlay.Calculator{}) {
		calc = overlay.DefaultCalculator()
	}

	exec := NewExecutor(128)
	p := &Pipeline{
		exec:   exec,
		dict:   opts.Dictionary,
		reader: opts.Reader,
		store:  opts.Settings,
		calc:   calc,
		geom:   opts.Geometry,
		sink:   opts.Sink,
		status: opts.Status,
		warn:   opts.Warn,
		gens:   make(map[string]uint64),
		gate:   newGenerationGate(),
	}

	p.deb = debounce.New(
		debounce.WithQuiet(opts.Settings.DebounceInterval()),
		debounce.WithExecutor(exec),
	)
	opts.Settings.OnReload(func() {
		p.deb.SetQuiet(opts.Settings.DebounceInterval())
	})

	factory := func() (supervise.Analyzer, error) {
		engineOpts := []lint.Option{
			lint.WithMaxSuggestions(opts.Settings.MaxSuggestions()),
		}
		for _, rule := range opts.Rules {
			engineOpts = append(engineOpts, lint.WithRule(rule))
		}
		return lint.New(engineOpts...), nil
	}
	p.sup = supervise.New(factory, exec, opts.Supervise)

	return p
}

// Run drives the pipeline until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	p.ctx = ctx

	if err := p.sup.Start(ctx); err != nil {
		return err
	}
	defer p.sup.Stop()

	g.Go(func() error { return p.exec.Run(ctx) })
	g.Go(func() error {
		p.forwardStatus(ctx)
		return nil
	})
	g.Go(func() error {
		// Losing live settings reload degrades the experience but does
		// not stop annotation.
		if err := p.store.Watch(ctx); err != nil && p.warn != nil {
			p.warn(err)
		}
		return nil
	})

	return g.Wait()
}

// forwardStatus relays supervisor state changes to the status callback.
func (p *Pipeline) forwardStatus(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-p.sup.Events():
			if !ok {
				return
			}
			if p.status != nil {
				p.status(ev)
			}
		}
	}
}

// EngineState returns the supervised engine's current state.
func (p *Pipeline) EngineState() supervise.State {
	return p.sup.State()
}

// EngineStats returns supervisor statistics for status display.
func (p *Pipeline) EngineStats() supervise.Stats {
	return p.sup.Stats()
}

// FocusGained records the newly focused field and triggers a fresh
// analysis of its snapshot. Any previous field's pending debounce is
// cancelled: its timeline is no longer relevant.
func (p *Pipeline) FocusGained(fieldID, text string) {
	p.exec.Post(func() {
		if p.focused != "" && p.focused != fieldID {
			p.deb.Cancel(p.focused)
		}
		p.focused = fieldID
		p.analyze(fieldID, text)
	})
}

// FocusLost cancels the field's pending debounce and clears its marks.
func (p *Pipeline) FocusLost(fieldID string) {
	p.exec.Post(func() {
		p.deb.Cancel(fieldID)
		if p.focused == fieldID {
			p.focused = ""
		}
		if p.sink != nil {
			p.sink.Publish(fieldID, nil)
		}
	})
}

// TextChanged paces a new snapshot through the debouncer. A burst of
// changes inside the quiet interval produces a single analysis of the
// last snapshot.
func (p *Pipeline) TextChanged(fieldID, text string) {
	p.exec.Post(func() {
		if fieldID != p.focused {
			return
		}
		p.deb.Reset(fieldID, func() {
			p.analyze(fieldID, text)
		})
	})
}

// Flush forces the field's pending analysis to run now (used before
// reading results in one-shot flows and tests).
func (p *Pipeline) Flush(fieldID string) {
	p.exec.Post(func() {
		p.deb.Flush(fieldID)
	})
}

// analyze submits a snapshot to the supervised engine. Runs on the
// executor.
func (p *Pipeline) analyze(fieldID, text string) {
	p.gens[fieldID]++
	req := lint.Request{
		FieldID:    fieldID,
		Text:       text,
		Generation: p.gens[fieldID],
	}

	var snap lint.Dictionary
	if p.dict != nil {
		snap = p.dict.Snapshot()
	}

	// A rejected submit means the engine is down; the overlay keeps
	// its previous marks for this generation.
	_ = p.sup.Submit(req, snap, func(res lint.Result, err error) {
		p.onResult(fieldID, res, err)
	})
}

// onResult consumes one delivered result. Runs on the executor.
func (p *Pipeline) onResult(fieldID string, res lint.Result, err error) {
	if err != nil {
		return
	}
	if !p.gate.Admit(fieldID, res.Generation) {
		return
	}
	if p.focused != fieldID {
		return
	}

	segments, ok := p.readGeometry(fieldID)
	if !ok {
		return
	}

	rects := func(r lint.Range) (overlay.Rect, bool) {
		return ax.ResolveRect(segments, ax.TextRange{Start: r.Start, Length: r.Length}, p.calc.CharWidth)
	}
	marks := p.calc.Marks(res, rects, p.geom)
	if p.sink != nil {
		p.sink.Publish(fieldID, marks)
	}
}

// readGeometry walks the accessibility tree for the field. A permission
// denial is warned about once, not retried in a tight loop.
func (p *Pipeline) readGeometry(fieldID string) ([]ax.Segment, bool) {
	traversal, err := p.reader.Read(p.ctx, fieldID, p.store.TraversalDepth())
	if err != nil {
		if errors.Is(err, ax.ErrNotAccessible) {
			if !p.axWarned {
				p.axWarned = true
				if p.warn != nil {
					p.warn(err)
				}
			}
			return nil, false
		}
		if p.warn != nil {
			p.warn(err)
		}
		return nil, false
	}

	p.axWarned = false
	return traversal.Collect(), true
}
