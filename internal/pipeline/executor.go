package pipeline

import "context"

// Executor is the single cooperative execution context for the UI-facing
// side of the pipeline: focus handling, debounce fires, result
// consumption, and overlay geometry all run here, one callback at a
// time, in submission order. The only suspension point in the whole
// pipeline is the asynchronous round trip to the supervised engine.
type Executor struct {
	ch chan func()
}

// NewExecutor creates an executor with the given queue depth.
func NewExecutor(buffer int) *Executor {
	if buffer <= 0 {
		buffer = 128
	}
	return &Executor{ch: make(chan func(), buffer)}
}

// Post queues fn for execution. Callbacks run in the order posted.
func (e *Executor) Post(fn func()) {
	if fn == nil {
		return
	}
	e.ch <- fn
}

// Run executes queued callbacks until ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-e.ch:
			fn()
		}
	}
}
