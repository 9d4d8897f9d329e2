package client

import (
	"context"
	"time"
)

const (
	defaultAutosaveInterval = 30 * time.Second
	defaultDebounce         = 3 * time.Second
	finalFlushTimeout       = 5 * time.Second
)

// Autosaver periodically flushes the engine. Edits are debounced so a burst
// of typing produces one save; a slower interval tick catches anything the
// debounce missed. Failures stay on the engine's save status and the next
// tick retries.
type Autosaver struct {
	engine   *Engine
	interval time.Duration
	debounce time.Duration
}

// AutosaveOption tunes the autosaver timing, mainly for tests.
type AutosaveOption func(*Autosaver)

func WithInterval(d time.Duration) AutosaveOption {
	return func(a *Autosaver) { a.interval = d }
}

func WithDebounce(d time.Duration) AutosaveOption {
	return func(a *Autosaver) { a.debounce = d }
}

func NewAutosaver(engine *Engine, opts ...AutosaveOption) *Autosaver {
	a := &Autosaver{
		engine:   engine,
		interval: defaultAutosaveInterval,
		debounce: defaultDebounce,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run blocks until ctx is cancelled, flushing on edit bursts and on the
// interval tick. On shutdown a final flush runs with its own timeout so the
// last edits are not lost with the context.
func (a *Autosaver) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(a.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
			_ = a.engine.Flush(flushCtx)
			cancel()
			return

		case <-a.engine.Changes():
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(a.debounce)

		case <-debounce.C:
			_ = a.engine.Flush(ctx)

		case <-ticker.C:
			_ = a.engine.Flush(ctx)
		}
	}
}
