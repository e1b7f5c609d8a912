package atomirx

import "sync"

// Status describes the settlement state of an awaitable or a computation
// outcome.
type Status int

const (
	// StatusPending means the value is still being produced.
	StatusPending Status = iota
	// StatusReady means the value resolved successfully.
	StatusReady
	// StatusError means the computation or awaitable failed.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the tagged ready/error/pending record used throughout the engine.
type State struct {
	Status Status
	Value  any
	Err    error
}

type combineKind int

const (
	combineAll combineKind = iota
	combineRace
	combineAllSettled
)

type cacheEntry struct {
	meta *combinedMeta
}

type combinedMeta struct {
	kind    combineKind
	sources []Awaitable
	promise Awaitable
}

// promiseCache tracks pending awaitables keyed by object identity, so
// re-running a computation that touches the same awaitable does not duplicate
// subscriptions or manufacture fresh identities. An entry lives only while
// its awaitable is pending: the watcher drops it on settlement, and settled
// awaitables are answered straight from Result, so the cache never grows with
// the number of promises a process has ever seen.
type promiseCache struct {
	mu       sync.Mutex
	entries  map[Awaitable]*cacheEntry
	combined []*combinedMeta
}

var defaultCache = newPromiseCache()

func newPromiseCache() *promiseCache {
	return &promiseCache{entries: make(map[Awaitable]*cacheEntry)}
}

func settledState(value any, err error) State {
	if err != nil {
		return State{Status: StatusError, Err: err}
	}
	return State{Status: StatusReady, Value: value}
}

// track returns the current state for aw, registering a watcher on first
// sight of a pending awaitable. The returned state is consistent with aw's
// actual settlement at call time: a settled awaitable never reports a pending
// flash, and registration of one is a no-op.
func (c *promiseCache) track(aw Awaitable) State {
	c.mu.Lock()
	_, ok := c.entries[aw]
	if !ok {
		// Poll before registering, so settled awaitables never re-enter the
		// cache and a settle that raced the watcher is visible synchronously.
		if value, err, settled := aw.Result(); settled {
			c.mu.Unlock()
			return settledState(value, err)
		}
		c.entries[aw] = &cacheEntry{}
		c.watch(aw)
	}
	c.mu.Unlock()

	if value, err, settled := aw.Result(); settled {
		return settledState(value, err)
	}
	return State{Status: StatusPending}
}

// peek is a non-registering lookup. ok is false only for a pending awaitable
// the cache has never seen.
func (c *promiseCache) peek(aw Awaitable) (State, bool) {
	if value, err, settled := aw.Result(); settled {
		return settledState(value, err), true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[aw]; !ok {
		return State{}, false
	}
	return State{Status: StatusPending}, true
}

// watch evicts aw's entry once it settles. From then on its state is read
// straight off the awaitable.
func (c *promiseCache) watch(aw Awaitable) {
	go func() {
		<-aw.Done()
		c.mu.Lock()
		delete(c.entries, aw)
		c.forgetCombined(aw)
		c.mu.Unlock()
	}()
}

// combine synthesizes (or reuses) an awaitable that represents waiting on the
// given sources under the given kind. Two calls with the same kind and
// element-wise identical sources yield the same awaitable, so re-running a
// selector does not create a new identity every pass.
func (c *promiseCache) combine(kind combineKind, sources []Awaitable) Awaitable {
	if len(sources) == 1 {
		return sources[0]
	}

	c.mu.Lock()
	for _, meta := range c.combined {
		if meta.kind == kind && sameSources(meta.sources, sources) {
			p := meta.promise
			c.mu.Unlock()
			return p
		}
	}

	promise, resolve, reject := NewPromise[any]()
	meta := &combinedMeta{kind: kind, sources: append([]Awaitable(nil), sources...), promise: promise}
	c.combined = append(c.combined, meta)
	c.entries[promise] = &cacheEntry{meta: meta}
	c.watch(promise)
	c.mu.Unlock()

	switch kind {
	case combineAll:
		go waitAll(meta.sources, resolve, reject)
	case combineRace:
		go waitFirst(meta.sources, resolve, reject)
	case combineAllSettled:
		go waitAllSettled(meta.sources, resolve)
	}

	return promise
}

// sameCombined reports whether two awaitables represent the same logical
// wait: either identical, or combinations of the same kind over element-wise
// identical sources.
func (c *promiseCache) sameCombined(a, b Awaitable) bool {
	if a == b {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ea, oka := c.entries[a]
	eb, okb := c.entries[b]
	if !oka || !okb || ea.meta == nil || eb.meta == nil {
		return false
	}
	return ea.meta.kind == eb.meta.kind && sameSources(ea.meta.sources, eb.meta.sources)
}

// forgetCombined drops a settled combination from the reuse scan list. Late
// inspections read the final state off the combined promise itself.
func (c *promiseCache) forgetCombined(aw Awaitable) {
	for i, meta := range c.combined {
		if meta.promise == aw {
			c.combined = append(c.combined[:i], c.combined[i+1:]...)
			return
		}
	}
}

func sameSources(a, b []Awaitable) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitAll(sources []Awaitable, resolve func(any), reject func(error)) {
	values := make([]any, len(sources))
	for i, src := range sources {
		<-src.Done()
		value, err, _ := src.Result()
		if err != nil {
			reject(err)
			return
		}
		values[i] = value
	}
	resolve(values)
}

func waitFirst(sources []Awaitable, resolve func(any), reject func(error)) {
	type settled struct {
		value any
		err   error
	}
	ch := make(chan settled, len(sources))
	for _, src := range sources {
		go func(src Awaitable) {
			<-src.Done()
			value, err, _ := src.Result()
			ch <- settled{value: value, err: err}
		}(src)
	}
	first := <-ch
	if first.err != nil {
		reject(first.err)
		return
	}
	resolve(first.value)
}

func waitAllSettled(sources []Awaitable, resolve func(any)) {
	for _, src := range sources {
		<-src.Done()
	}
	resolve(nil)
}

// TrackAwaitable registers aw with the promise-state cache (on first sight of
// a pending awaitable) and returns its current state without blocking.
func TrackAwaitable(aw Awaitable) State {
	return defaultCache.track(aw)
}

// PeekAwaitable returns aw's current state without registering it. ok is
// false only for a pending awaitable the cache has never seen.
func PeekAwaitable(aw Awaitable) (State, bool) {
	return defaultCache.peek(aw)
}
