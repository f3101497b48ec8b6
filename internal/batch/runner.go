package batch

import (
	"context"
	"sync"
)

// Runner holds the cancellation of the single live search. Starting a new
// run cancels the previous one.
type Runner struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Start cancels any live run and returns a context for the new one. The
// returned done func releases the run; it is safe to call more than once.
func (r *Runner) Start(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	id := r.seq
	r.cancel = cancel
	r.mu.Unlock()

	done := func() {
		r.mu.Lock()
		if r.seq == id && r.cancel != nil {
			r.cancel = nil
		}
		r.mu.Unlock()
		cancel()
	}
	return ctx, done
}

// Cancel aborts the live run. It reports whether a run was active.
func (r *Runner) Cancel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel == nil {
		return false
	}
	r.cancel()
	r.cancel = nil
	return true
}

// Active reports whether a run is in progress.
func (r *Runner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
