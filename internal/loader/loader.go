// Package loader runs one-time initializers, such as a provider SDK
// bootstrap, with an explicit lifecycle.
//
// A Loader is unstarted until the first Load. Concurrent Loads while the
// initializer runs share its outcome. Once it finishes the outcome is
// remembered: success is final, and a failure is returned to later callers
// until Reset.
package loader

import (
	"context"
	"sync"
)

// Status is the loader state.
type Status int

const (
	Unstarted Status = iota
	InFlight
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case InFlight:
		return "in-flight"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Func is the initializer guarded by a Loader.
type Func func(ctx context.Context) error

// Loader is a single-flight, resettable initializer.
type Loader struct {
	fn Func

	mu     sync.Mutex
	status Status
	err    error
	cur    *run
}

// run is one execution of the initializer. err is set before done closes.
type run struct {
	done chan struct{}
	err  error
}

// New creates a Loader for fn.
func New(fn Func) *Loader {
	return &Loader{fn: fn}
}

// Load runs the initializer if it has not run yet and waits for its outcome.
// ctx only bounds the wait; the initializer runs on the first caller's ctx
// with its cancellation removed.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	switch l.status {
	case Done:
		l.mu.Unlock()
		return nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		return err
	case InFlight:
		r := l.cur
		l.mu.Unlock()
		return wait(ctx, r)
	}

	r := &run{done: make(chan struct{})}
	l.status = InFlight
	l.cur = r
	l.mu.Unlock()

	go l.exec(context.WithoutCancel(ctx), r)
	return wait(ctx, r)
}

func (l *Loader) exec(ctx context.Context, r *run) {
	if l.fn != nil {
		r.err = l.fn(ctx)
	}

	l.mu.Lock()
	if l.cur == r {
		l.err = r.err
		if r.err != nil {
			l.status = Failed
		} else {
			l.status = Done
		}
	}
	l.mu.Unlock()
	close(r.done)
}

// wait returns the outcome of the run r, even if the loader was reset since.
func wait(ctx context.Context, r *run) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Status returns the current state.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Reset returns the loader to Unstarted. A run in flight completes and its
// callers see its outcome, but the loader does not record it.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = Unstarted
	l.err = nil
	l.cur = nil
}
