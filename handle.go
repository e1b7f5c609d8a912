package atomirx

import "sync"

// Handle is a pool-scoped virtual atom: a wrapper over a pooled entry that
// only exists for the duration of one computation pass. When that pass
// completes the handle is permanently invalidated, so a selector that leaks
// it into an asynchronous callback fails loudly instead of silently touching
// a pooled atom outside its valid window.
type Handle[T any] struct {
	core  *poolCore
	entry *poolEntry

	mu    sync.Mutex
	valid bool
}

// From registers (pool, params) in the computation's pool-read-set, creating
// the underlying entry if needed, and returns a virtual wrapper around it.
// The wrapper is memoized per entry for this execution, so calling From twice
// with equal params inside one selector yields the same handle.
func From[P any, T any](ctx *Ctx, pool *Pool[P, T], params P) *Handle[T] {
	ctx.check("from")

	e := pool.core.entryFor(params, true)
	pool.core.touch(e)

	if ctx.handles == nil {
		ctx.handles = make(map[*poolEntry]any)
	}
	if h, ok := ctx.handles[e]; ok {
		return h.(*Handle[T])
	}

	ctx.poolReads = append(ctx.poolReads, &poolRead{pool: pool.core, entry: e})
	h := &Handle[T]{core: pool.core, entry: e, valid: true}
	ctx.handles[e] = h
	return h
}

func (h *Handle[T]) ensure(op string) {
	h.mu.Lock()
	valid := h.valid
	h.mu.Unlock()
	if !valid {
		panicMisuse(op, "pool handle used after its computation window closed")
	}
}

func (h *Handle[T]) invalidate() {
	h.mu.Lock()
	h.valid = false
	h.mu.Unlock()
}

// Get returns the entry's current value and re-arms its idle timer.
func (h *Handle[T]) Get() T {
	h.ensure("handle.Get")
	h.core.touch(h.entry)
	return as[T](h.entry.state.get())
}

// Set stores v into the entry.
func (h *Handle[T]) Set(v T) {
	h.ensure("handle.Set")
	h.entry.state.set(v)
	h.core.touch(h.entry)
}

// Update applies a reducer to the entry's value.
func (h *Handle[T]) Update(reduce func(T) T) {
	h.ensure("handle.Update")
	h.entry.state.update(func(v any) any { return reduce(as[T](v)) })
	h.core.touch(h.entry)
}

// Kind implements Readable.
func (h *Handle[T]) Kind() Kind { return KindHandle }

// DebugKey implements Readable.
func (h *Handle[T]) DebugKey() string { return h.entry.state.debugKey }

func (h *Handle[T]) rawValue() any {
	h.ensure("handle.read")
	h.core.touch(h.entry)
	return h.entry.state.get()
}

// trackDep reports the underlying real atom, so the read-set records the
// pooled entry rather than the transient wrapper.
func (h *Handle[T]) trackDep() Dependency { return h.entry.state }

func (h *Handle[T]) sourceOf() T {
	var zero T
	return zero
}
