// Package future tracks GPU work that has been submitted but may not have
// finished, together with the resources that must outlive it.
package future

import "github.com/cockroachdb/errors"

// Fence is a completion signal the host can poll or block on.
type Fence interface {
	Signaled() (bool, error)
	Wait() error
}

// Semaphore is an opaque GPU-side signal that the next submission must wait on.
type Semaphore any

type pending struct {
	fence   Fence
	release []func()
}

// Token is the chain of outstanding GPU work. The zero value is complete.
//
// Release hooks run exactly once, on the host thread, after the fence they
// are attached to has signaled.
type Token struct {
	pending  []pending
	waits    []Semaphore
	detached []func()
}

// Now returns a token with nothing outstanding.
func Now() *Token {
	return &Token{}
}

// Acquired returns a token for a GPU-side signal, such as an acquired
// swapchain image. The hooks run once the submission that consumes it completes.
func Acquired(s Semaphore, release ...func()) *Token {
	return &Token{
		waits:    []Semaphore{s},
		detached: release,
	}
}

// Join moves everything outstanding in o into t and returns t. o is left complete.
func (t *Token) Join(o *Token) *Token {
	if o == nil || o == t {
		return t
	}
	t.pending = append(t.pending, o.pending...)
	t.waits = append(t.waits, o.waits...)
	t.detached = append(t.detached, o.detached...)
	*o = Token{}
	return t
}

// Semaphores lists the signals a submission continuing this token must wait on.
func (t *Token) Semaphores() []Semaphore {
	return t.waits
}

// Then records a submission that waited on every outstanding semaphore and
// signals f when done. Hooks left from Acquired and the given release hooks
// are attached to f.
func (t *Token) Then(f Fence, release ...func()) {
	hooks := make([]func(), 0, len(t.detached)+len(release))
	hooks = append(hooks, t.detached...)
	hooks = append(hooks, release...)

	t.pending = append(t.pending, pending{fence: f, release: hooks})
	t.waits = nil
	t.detached = nil
}

// Pending reports the number of submissions not yet known to be complete.
func (t *Token) Pending() int {
	return len(t.pending)
}

// CleanupFinished releases every submission whose fence has already
// signaled. It never blocks.
func (t *Token) CleanupFinished() error {
	kept := t.pending[:0]
	var firstErr error
	for _, p := range t.pending {
		if firstErr != nil {
			kept = append(kept, p)
			continue
		}
		done, err := p.fence.Signaled()
		if err != nil {
			firstErr = errors.Wrap(err, "poll fence")
			kept = append(kept, p)
			continue
		}
		if !done {
			kept = append(kept, p)
			continue
		}
		runHooks(p.release)
	}
	clearTail(t.pending, len(kept))
	t.pending = kept
	return firstErr
}

// Drain blocks until at most n submissions remain outstanding, oldest first.
func (t *Token) Drain(n int) error {
	if n < 0 {
		n = 0
	}
	for len(t.pending) > n {
		p := t.pending[0]
		if err := p.fence.Wait(); err != nil {
			return errors.Wrap(err, "wait for fence")
		}
		runHooks(p.release)
		t.pending[0] = pending{}
		t.pending = t.pending[1:]
	}
	return nil
}

// Wait blocks until every submission has completed.
func (t *Token) Wait() error {
	return t.Drain(0)
}

func runHooks(hooks []func()) {
	for _, h := range hooks {
		h()
	}
}

func clearTail(s []pending, from int) {
	for i := from; i < len(s); i++ {
		s[i] = pending{}
	}
}
