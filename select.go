package atomirx

import (
	"context"

	"github.com/petermattis/goid"
)

// suspenseSignal unwinds the selector call stack when a dependency is not
// ready yet. It is control flow, not an error, and is only recovered at the
// Select boundary.
type suspenseSignal struct {
	aw Awaitable
}

// errorSignal unwinds the selector call stack when a dependency is rejected.
type errorSignal struct {
	err error
}

// Ctx is the tracking context handed to a selector for the duration of one
// synchronous execution. It records every value container read, so
// subscriptions can be minimal and precise.
//
// A Ctx is only valid during the selector call that received it and on the
// goroutine that ran the selector. Storing it and calling any method later,
// or from another goroutine, panics with a MisuseError.
type Ctx struct {
	gid    int64
	closed bool

	cache *promiseCache

	deps      []Dependency
	depSet    map[Dependency]struct{}
	poolReads []*poolRead
	handles   map[*poolEntry]any

	cleanups []func()
	runCtx   context.Context
	cancel   context.CancelFunc
}

type poolRead struct {
	pool  *poolCore
	entry *poolEntry
}

func newCtx(cfg *config) *Ctx {
	runCtx, cancel := context.WithCancel(cfg.parentCtx)
	return &Ctx{
		gid:    goid.Get(),
		cache:  defaultCache,
		depSet: make(map[Dependency]struct{}),
		runCtx: runCtx,
		cancel: cancel,
	}
}

func (ctx *Ctx) check(op string) {
	if ctx.closed {
		panicMisuse(op, "tracking context used outside its execution window")
	}
	if goid.Get() != ctx.gid {
		panicMisuse(op, "tracking context used from a different goroutine")
	}
}

func (ctx *Ctx) register(d Dependency) {
	if _, ok := ctx.depSet[d]; ok {
		return
	}
	ctx.depSet[d] = struct{}{}
	ctx.deps = append(ctx.deps, d)
}

// inspect classifies a raw container value without unwinding: plain values
// are ready, awaitables are consulted against the promise-state cache. For a
// pending awaitable the state's Value slot carries the awaitable itself, so
// callers can re-throw it by identity.
func (ctx *Ctx) inspect(raw any) State {
	if aw, ok := raw.(Awaitable); ok {
		state := ctx.cache.track(aw)
		if state.Status == StatusPending {
			state.Value = aw
		}
		return state
	}
	return State{Status: StatusReady, Value: raw}
}

// unwrap turns a non-ready state into stack unwinding and returns the value
// otherwise.
func unwrap(state State) any {
	switch state.Status {
	case StatusError:
		panic(errorSignal{err: state.Err})
	case StatusPending:
		panic(suspenseSignal{aw: state.Value.(Awaitable)})
	default:
		return state.Value
	}
}

func (ctx *Ctx) resolve(c Readable) any {
	ctx.register(c.trackDep())
	return unwrap(ctx.inspect(c.rawValue()))
}

// Read registers src in the read-set and returns its current value. A pending
// dependency suspends the computation; a rejected one propagates its error.
// Both unwind to the Select boundary and surface in the Outcome.
func Read[T any](ctx *Ctx, src Source[T]) T {
	ctx.check("read")
	return as[T](ctx.resolve(src))
}

// Await reads an atom holding a promise and returns the resolved value. It is
// typed sugar over the same inspection Read performs on awaitable values.
func Await[T any](ctx *Ctx, src Source[*Promise[T]]) T {
	ctx.check("await")
	return as[T](ctx.resolve(src))
}

// Track adds src to the read-set without reading or unwrapping its value.
// Useful when the computation already has the value through another path but
// still wants to re-run when it changes.
func (ctx *Ctx) Track(src Readable) {
	ctx.check("track")
	ctx.register(src.trackDep())
}

// State inspects src like Read but never unwinds: it always returns a tagged
// ready/error/pending record for inline handling.
func (ctx *Ctx) State(src Readable) State {
	ctx.check("state")
	ctx.register(src.trackDep())
	return ctx.inspect(src.rawValue())
}

// StateFn executes fn and reports its outcome as a tagged record instead of
// unwinding: suspense and dependency errors are captured, not thrown.
func StateFn[T any](ctx *Ctx, fn func() T) (state State) {
	ctx.check("state")
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case suspenseSignal:
				state = State{Status: StatusPending, Value: sig.aw}
			case errorSignal:
				state = State{Status: StatusError, Err: sig.err}
			default:
				panic(r)
			}
		}
	}()
	return State{Status: StatusReady, Value: fn()}
}

// Safe executes fn, converting a dependency error unwind into an ordinary
// error return. A suspense signal is deliberately re-thrown so the outer
// suspension mechanism still works: Safe is the escape hatch for selectors
// that want to catch real errors without swallowing "not ready yet".
func Safe[T any](ctx *Ctx, fn func() (T, error)) (result T, err error) {
	ctx.check("safe")
	defer func() {
		if r := recover(); r != nil {
			switch sig := r.(type) {
			case suspenseSignal:
				panic(sig)
			case errorSignal:
				err = sig.err
			default:
				panic(r)
			}
		}
	}()
	return fn()
}

// OnCleanup registers fn to run when the owning node re-executes or stops.
// Cleanups run in reverse registration order.
func (ctx *Ctx) OnCleanup(fn func()) {
	ctx.check("onCleanup")
	ctx.cleanups = append(ctx.cleanups, fn)
}

// Context returns the per-run context. It is cancelled when the owning
// derived node or effect is about to re-execute or be torn down, so selectors
// can hand it to in-flight external operations they kick off as side effects.
func (ctx *Ctx) Context() context.Context {
	ctx.check("context")
	return ctx.runCtx
}

func (ctx *Ctx) close() {
	ctx.closed = true
	for _, h := range ctx.handles {
		h.(interface{ invalidate() }).invalidate()
	}
	ctx.handles = nil
}

// Outcome is the structured result of one synchronous execution of a tracked
// computation. Exactly one of Value, Err, Pending is meaningfully present.
type Outcome[T any] struct {
	Value   T
	Err     error
	Pending Awaitable

	ctx      *Ctx
	rejected *Promise[T]
	resolved *Promise[T]
}

// Select executes selector against a fresh tracking context and captures its
// outcome. The selector must be synchronous: returning an awaitable is a
// programmer error and panics. Dependency suspense and rejection unwinds are
// converted into the Pending and Err fields; the selector's own returned
// error also lands in Err.
func Select[T any](selector func(*Ctx) (T, error), opts ...Option) *Outcome[T] {
	cfg := newConfig(opts)
	return runSelect(selector, cfg)
}

func runSelect[T any](selector func(*Ctx) (T, error), cfg *config) *Outcome[T] {
	ctx := newCtx(cfg)
	out := &Outcome[T]{ctx: ctx}

	defer ctx.close()

	func() {
		defer func() {
			if r := recover(); r != nil {
				switch sig := r.(type) {
				case suspenseSignal:
					out.Pending = sig.aw
				case errorSignal:
					out.Err = sig.err
				case *MisuseError:
					panic(sig)
				default:
					out.Err = asError(r)
				}
			}
		}()

		value, err := selector(ctx)
		if err != nil {
			out.Err = err
			return
		}
		if _, ok := any(value).(Awaitable); ok {
			panicMisuse("select", "selector returned an awaitable; selectors must be synchronous")
		}
		out.Value = value
	}()

	return out
}

// Status reports which of the three outcome fields is present.
func (o *Outcome[T]) Status() Status {
	switch {
	case o.Pending != nil:
		return StatusPending
	case o.Err != nil:
		return StatusError
	default:
		return StatusReady
	}
}

// State returns the outcome as a tagged record.
func (o *Outcome[T]) State() State {
	switch o.Status() {
	case StatusPending:
		return State{Status: StatusPending, Value: o.Pending}
	case StatusError:
		return State{Status: StatusError, Err: o.Err}
	default:
		return State{Status: StatusReady, Value: o.Value}
	}
}

// Dependencies returns the recorded read-set in first-read order.
func (o *Outcome[T]) Dependencies() []Dependency {
	deps := make([]Dependency, len(o.ctx.deps))
	copy(deps, o.ctx.deps)
	return deps
}

// StartTracking subscribes fn to every container in the read-set and to the
// removal event of every pool entry read. It returns a single teardown that
// unsubscribes everything. This is a separate step from execution so callers
// can inspect the outcome first and diff against a previous read-set.
func (o *Outcome[T]) StartTracking(fn func()) (stop func()) {
	unsubs := make([]func(), 0, len(o.ctx.deps)+len(o.ctx.poolReads))
	for _, d := range o.ctx.deps {
		unsubs = append(unsubs, d.subscribe(fn))
	}
	for _, pr := range o.ctx.poolReads {
		unsubs = append(unsubs, pr.pool.onEntryRemoved(pr.entry, fn))
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// Dispose cancels the run's context and executes registered cleanups in
// reverse order. Owning nodes call it before re-executing or stopping.
func (o *Outcome[T]) Dispose() {
	o.ctx.cancel()
	cleanups := o.ctx.cleanups
	o.ctx.cleanups = nil
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// promise returns an awaitable view of a settled outcome with stable identity
// for this execution pass. A pending outcome is represented by the owning
// node's waiter, never by this view.
func (o *Outcome[T]) promise() *Promise[T] {
	if o.Err != nil {
		if o.rejected == nil {
			o.rejected = Rejected[T](o.Err)
		}
		return o.rejected
	}
	if o.resolved == nil {
		o.resolved = Resolved(o.Value)
	}
	return o.resolved
}
