package atomirx

import "sync"

// atomState is the untyped mutable core shared by atoms and pool entries.
type atomState struct {
	mu       sync.Mutex
	value    any
	initial  any
	init     func() any
	equality Equality
	debugKey string

	listeners listenerList
}

func newAtomState(init func() any, eq Equality, debugKey string) *atomState {
	if eq == nil {
		eq = EqStrict()
	}
	initial := init()
	return &atomState{
		value:    initial,
		initial:  initial,
		init:     init,
		equality: eq,
		debugKey: debugKey,
	}
}

func (s *atomState) get() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// set stores next if it differs from the current value under the atom's
// equality strategy, then notifies listeners in registration order.
func (s *atomState) set(next any) (changed bool) {
	s.mu.Lock()
	if s.equality(s.value, next) {
		s.mu.Unlock()
		return false
	}
	s.value = next
	s.mu.Unlock()

	s.listeners.notify()
	return true
}

// update applies a reducer to the current value. A panicking reducer leaves
// the state unchanged; the panic propagates to the caller.
func (s *atomState) update(reduce func(any) any) bool {
	s.mu.Lock()
	current := s.value
	s.mu.Unlock()

	return s.set(reduce(current))
}

// reset re-invokes the initializer and sets the atom to the fresh initial
// value. The dirty flag is false afterwards regardless of equality strategy.
func (s *atomState) reset() {
	next := s.init()
	s.mu.Lock()
	s.initial = next
	s.mu.Unlock()
	s.set(next)
}

func (s *atomState) dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.equality(s.value, s.initial)
}

func (s *atomState) subscribe(fn func()) func() {
	return s.listeners.add(fn)
}

func (s *atomState) DebugKey() string {
	return s.debugKey
}

// teardown makes the atom inert after pool eviction.
func (s *atomState) teardown() {
	s.listeners.clear()
}

// Atom is an identity-bearing mutable container holding a value of type T.
// It is the foundational unit everything else builds on.
type Atom[T any] struct {
	state *atomState
	tagStore
}

// NewAtom creates an atom holding initial. The default equality strategy is
// strict (identity).
func NewAtom[T any](initial T, opts ...Option) *Atom[T] {
	return NewLazyAtom(func() T { return initial }, opts...)
}

// NewLazyAtom creates an atom whose initial value comes from init. The
// initializer is re-invoked on every Reset.
func NewLazyAtom[T any](init func() T, opts ...Option) *Atom[T] {
	cfg := newConfig(opts)
	a := &Atom[T]{
		state:    newAtomState(func() any { return init() }, cfg.equality, cfg.debugKey),
		tagStore: newTagStore(cfg.tags),
	}
	cfg.hooks.fireCreate(KindAtom, a)
	return a
}

// Get returns the current value. It never triggers computation.
func (a *Atom[T]) Get() T {
	return as[T](a.state.get())
}

// Set stores v if it differs from the current value under the atom's equality
// strategy, notifying listeners in registration order. Equal values are a
// no-op.
func (a *Atom[T]) Set(v T) {
	a.state.set(v)
}

// Update applies a reducer to the current value. A panicking reducer leaves
// the state unchanged.
func (a *Atom[T]) Update(reduce func(T) T) {
	a.state.update(func(v any) any { return reduce(as[T](v)) })
}

// Reset restores the initial value (re-invoking the lazy initializer if one
// was supplied) and clears the dirty flag.
func (a *Atom[T]) Reset() {
	a.state.reset()
}

// Dirty reports whether the current value differs from the initial value
// under the atom's equality strategy.
func (a *Atom[T]) Dirty() bool {
	return a.state.dirty()
}

// On registers a change listener and returns its unsubscribe function.
// Duplicate registrations of the same listener are independent subscriptions.
func (a *Atom[T]) On(fn func()) (unsub func()) {
	return a.state.subscribe(fn)
}

// Kind implements Readable.
func (a *Atom[T]) Kind() Kind { return KindAtom }

// DebugKey implements Readable.
func (a *Atom[T]) DebugKey() string { return a.state.debugKey }

func (a *Atom[T]) rawValue() any { return a.state.get() }

func (a *Atom[T]) trackDep() Dependency { return a.state }

func (a *Atom[T]) sourceOf() T {
	var zero T
	return zero
}
