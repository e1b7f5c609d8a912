package atomirx

import "sync"

// Derived is a persistent computation node bound to whatever containers its
// selector actually reads. It re-runs automatically when any tracked
// dependency changes, refreshing its subscriptions to match the new read-set.
type Derived[T any] struct {
	selector func(*Ctx) (T, error)
	equality Equality
	cfg      *config
	kind     Kind

	mu            sync.Mutex
	outcome       *Outcome[T]
	stale         *T
	fallback      *T
	lastErr       error
	hasErr        bool
	stopTracking  func()
	waiter        *Promise[T]
	waiterResolve func(T)
	waiterReject  func(error)
	pendingGen    int
	running       bool
	queued        bool
	stopped       bool

	listeners listenerList
	tagStore
}

// NewDerived creates a derived node from a selector and runs it eagerly. The
// resolved-value equality strategy defaults to shallow, since derived values
// are typically freshly constructed containers whose contents are what
// matters.
func NewDerived[T any](selector func(*Ctx) (T, error), opts ...Option) *Derived[T] {
	return newDerivedNode(selector, KindDerived, opts)
}

func newDerivedNode[T any](selector func(*Ctx) (T, error), kind Kind, opts []Option) *Derived[T] {
	cfg := newConfig(opts)
	eq := cfg.equality
	if !cfg.hasEquality {
		eq = EqShallow()
	}

	d := &Derived[T]{
		selector: selector,
		equality: eq,
		cfg:      cfg,
		kind:     kind,
		tagStore: newTagStore(cfg.tags),
	}
	if cfg.hasFallback {
		fallback := as[T](cfg.fallback)
		d.fallback = &fallback
	}

	cfg.hooks.fireCreate(kind, d)
	d.rerun()
	return d
}

// rerun executes the selector once, coalescing notifications that arrive
// while a run is in flight into a single follow-up run.
func (d *Derived[T]) rerun() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.running {
		d.queued = true
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	for {
		d.mu.Lock()
		prev := d.outcome
		d.mu.Unlock()

		// Cleanups and the per-run context go down before the next execution.
		if prev != nil {
			prev.Dispose()
		}

		out := runSelect(d.selector, d.cfg)

		// Subscribe the new read-set before tearing down the old one, so no
		// change notification is missed in between.
		newStop := out.StartTracking(d.onDepChange)

		d.mu.Lock()
		oldStop := d.stopTracking
		d.stopTracking = newStop
		actions := d.apply(out)
		if d.stopped {
			d.stopTracking = nil
			newStop()
		}
		again := d.queued && !d.stopped
		d.queued = false
		if !again {
			d.running = false
		}
		d.mu.Unlock()

		if oldStop != nil {
			oldStop()
		}
		actions.run(d)

		if !again {
			return
		}
	}
}

type applyActions[T any] struct {
	notify       bool
	callError    error
	fireError    error
	resolveValue *T
	rejectErr    error
	resolve      func(T)
	reject       func(error)
	watch        Awaitable
	watchGen     int
}

func (a applyActions[T]) run(d *Derived[T]) {
	if a.resolveValue != nil && a.resolve != nil {
		a.resolve(*a.resolveValue)
	}
	if a.rejectErr != nil && a.reject != nil {
		a.reject(a.rejectErr)
	}
	if a.callError != nil && d.cfg.onError != nil {
		d.cfg.onError(a.callError)
	}
	if a.fireError != nil {
		d.cfg.hooks.fireError(newComputeError(d.cfg.debugKey, a.fireError), d)
	}
	if a.watch != nil {
		gen := a.watchGen
		go func() {
			<-a.watch.Done()
			d.mu.Lock()
			stale := gen != d.pendingGen || d.stopped
			d.mu.Unlock()
			if !stale {
				d.rerun()
			}
		}()
	}
	if a.notify {
		d.listeners.notify()
	}
}

// apply digests a fresh outcome under d.mu, returning the side effects to run
// after the lock is released.
func (d *Derived[T]) apply(out *Outcome[T]) applyActions[T] {
	prev := d.outcome
	prevStatus := StatusPending
	if prev != nil {
		prevStatus = prev.Status()
	}
	var prevPending Awaitable
	if prev != nil {
		prevPending = prev.Pending
	}
	d.outcome = out
	d.pendingGen++

	var actions applyActions[T]

	switch out.Status() {
	case StatusReady:
		value := out.Value
		changed := prev == nil || prevStatus != StatusReady || d.stale == nil || !d.equality(*d.stale, value)
		d.stale = &value
		d.lastErr = nil
		d.hasErr = false
		if d.waiter != nil {
			actions.resolve = d.waiterResolve
			actions.resolveValue = &value
			d.waiter, d.waiterResolve, d.waiterReject = nil, nil, nil
		}
		actions.notify = changed

	case StatusError:
		err := out.Err
		distinct := !d.hasErr || !strictEqual(d.lastErr, err)
		d.lastErr = err
		d.hasErr = true
		if d.waiter != nil {
			actions.reject = d.waiterReject
			actions.rejectErr = err
			d.waiter, d.waiterResolve, d.waiterReject = nil, nil, nil
		}
		if distinct {
			actions.callError = err
			actions.fireError = err
			actions.notify = true
		} else {
			actions.notify = prevStatus != StatusError
		}

	case StatusPending:
		if d.waiter == nil {
			d.waiter, d.waiterResolve, d.waiterReject = NewPromise[T]()
		}
		actions.watch = out.Pending
		actions.watchGen = d.pendingGen
		// A re-run that suspends on the same logical wait is not a state
		// change worth announcing.
		actions.notify = prevStatus != StatusPending ||
			(prevPending != nil && !defaultCache.sameCombined(prevPending, out.Pending))
	}

	return actions
}

func (d *Derived[T]) onDepChange() {
	d.rerun()
}

// Get returns an awaitable that resolves once the current outcome is ready,
// rejects if it errored, and stays pending while the computation suspends.
// The returned promise has stable identity for a given pass.
func (d *Derived[T]) Get() *Promise[T] {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outcome == nil || d.outcome.Status() == StatusPending {
		if d.waiter == nil {
			d.waiter, d.waiterResolve, d.waiterReject = NewPromise[T]()
		}
		return d.waiter
	}
	return d.outcome.promise()
}

// State returns the current outcome as a tagged record without blocking or
// unwinding.
func (d *Derived[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outcome == nil {
		return State{Status: StatusPending}
	}
	switch d.outcome.Status() {
	case StatusReady:
		return State{Status: StatusReady, Value: d.outcome.Value}
	case StatusError:
		return State{Status: StatusError, Err: d.outcome.Err}
	default:
		return State{Status: StatusPending}
	}
}

// StaleValue returns the last successfully resolved value, or the configured
// fallback, even while a newer computation is pending or failed.
func (d *Derived[T]) StaleValue() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stale != nil {
		return *d.stale, true
	}
	if d.fallback != nil {
		return *d.fallback, true
	}
	var zero T
	return zero, false
}

// Refresh forces an immediate re-execution regardless of whether tracked
// dependencies changed.
func (d *Derived[T]) Refresh() {
	d.rerun()
}

// Dependencies returns the read-set of the most recent execution.
func (d *Derived[T]) Dependencies() []Dependency {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outcome == nil {
		return nil
	}
	return d.outcome.Dependencies()
}

// On registers a listener notified whenever the node's observable state
// changes.
func (d *Derived[T]) On(fn func()) (unsub func()) {
	return d.listeners.add(fn)
}

// stop halts future re-execution and tears down subscriptions. Reserved for
// effects; derived nodes have no explicit destroy in the base design.
func (d *Derived[T]) stop() {
	d.mu.Lock()
	d.stopped = true
	d.pendingGen++
	stopTracking := d.stopTracking
	d.stopTracking = nil
	out := d.outcome
	d.mu.Unlock()

	if stopTracking != nil {
		stopTracking()
	}
	if out != nil {
		out.Dispose()
	}
}

// Kind implements Readable.
func (d *Derived[T]) Kind() Kind { return d.kind }

// DebugKey implements Readable.
func (d *Derived[T]) DebugKey() string { return d.cfg.debugKey }

func (d *Derived[T]) rawValue() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outcome == nil {
		if d.waiter == nil {
			d.waiter, d.waiterResolve, d.waiterReject = NewPromise[T]()
		}
		return d.waiter
	}
	switch d.outcome.Status() {
	case StatusReady:
		return d.outcome.Value
	case StatusError:
		return d.outcome.promise()
	default:
		if d.waiter == nil {
			d.waiter, d.waiterResolve, d.waiterReject = NewPromise[T]()
		}
		return d.waiter
	}
}

func (d *Derived[T]) trackDep() Dependency { return d }

func (d *Derived[T]) subscribe(fn func()) func() { return d.listeners.add(fn) }

func (d *Derived[T]) sourceOf() T {
	var zero T
	return zero
}
