package atomirx

import (
	"context"
	"sync"
)

// Awaitable is the type-erased view of an asynchronous value. Identity of the
// interface value (the underlying pointer) is what the promise-state cache
// keys on.
type Awaitable interface {
	// Done is closed once the awaitable has settled.
	Done() <-chan struct{}

	// Result returns the settled value or error. settled is false while the
	// awaitable is still pending, in which case value and err are meaningless.
	Result() (value any, err error, settled bool)
}

// Promise is a settle-once asynchronous value of type T.
type Promise[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	value   T
	err     error
	settled bool
}

// NewPromise creates a pending promise along with its resolve and reject
// functions. Settling more than once is a no-op; the first settlement wins.
func NewPromise[T any]() (p *Promise[T], resolve func(T), reject func(error)) {
	p = &Promise[T]{done: make(chan struct{})}
	return p, p.resolve, p.reject
}

// Resolved returns an already-fulfilled promise. Inspecting it reports ready
// immediately; there is no pending flash.
func Resolved[T any](v T) *Promise[T] {
	return &Promise[T]{done: closedChan, value: v, settled: true}
}

// Rejected returns an already-rejected promise.
func Rejected[T any](err error) *Promise[T] {
	return &Promise[T]{done: closedChan, err: err, settled: true}
}

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func (p *Promise[T]) resolve(v T) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.value = v
	p.settled = true
	p.mu.Unlock()
	close(p.done)
}

func (p *Promise[T]) reject(err error) {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.settled = true
	p.mu.Unlock()
	close(p.done)
}

// Done implements Awaitable.
func (p *Promise[T]) Done() <-chan struct{} { return p.done }

// Result implements Awaitable.
func (p *Promise[T]) Result() (any, error, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.settled {
		return nil, nil, false
	}
	return p.value, p.err, true
}

// Wait blocks until the promise settles or ctx is cancelled.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		var zero T
		return zero, p.err
	}
	return p.value, nil
}
