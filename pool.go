package atomirx

import (
	"fmt"
	"sync"
	"time"
)

// PoolEventKind tags pool lifecycle events.
type PoolEventKind int

const (
	// PoolCreated fires when an entry is lazily created.
	PoolCreated PoolEventKind = iota
	// PoolChanged fires when an entry's value changes.
	PoolChanged
	// PoolRemoved fires when an entry is evicted or explicitly removed.
	PoolRemoved
)

func (k PoolEventKind) String() string {
	switch k {
	case PoolCreated:
		return "created"
	case PoolChanged:
		return "changed"
	case PoolRemoved:
		return "removed"
	}
	return "unknown"
}

// PoolEvent describes one entry lifecycle event.
type PoolEvent[P any] struct {
	Kind   PoolEventKind
	Params P
}

// poolCore is the untyped keyed collection behind Pool.
type poolCore struct {
	mu       sync.Mutex
	init     func(any) any
	equality Equality
	gcTime   time.Duration
	entries  []*poolEntry
	events   []*poolListenerEntry
	debugKey string
}

type poolListenerEntry struct {
	fn func(PoolEventKind, any)
}

type poolEntry struct {
	params   any
	state    *atomState
	timer    *time.Timer
	removed  bool
	watchGen int

	removal     listenerList
	unsubChange func()
}

func newPoolCore(init func(any) any, cfg *config) *poolCore {
	eq := cfg.equality
	if !cfg.hasEquality {
		eq = EqShallow()
	}
	return &poolCore{
		init:     init,
		equality: eq,
		gcTime:   cfg.gcTime,
		debugKey: cfg.debugKey,
	}
}

// entryFor finds the entry whose params match under the pool's equality
// strategy, lazily creating it when create is set.
func (c *poolCore) entryFor(params any, create bool) *poolEntry {
	c.mu.Lock()
	for _, e := range c.entries {
		if c.equality(e.params, params) {
			c.mu.Unlock()
			return e
		}
	}
	if !create {
		c.mu.Unlock()
		return nil
	}

	entryKey := c.debugKey
	if entryKey != "" {
		entryKey = fmt.Sprintf("%s[%v]", entryKey, params)
	}
	e := &poolEntry{
		params: params,
		state:  newAtomState(func() any { return c.init(params) }, nil, entryKey),
	}
	e.unsubChange = e.state.subscribe(func() { c.entryChanged(e) })
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	c.fire(PoolCreated, params)
	c.touch(e)
	return e
}

func (c *poolCore) entryChanged(e *poolEntry) {
	c.fire(PoolChanged, e.params)
	c.touch(e)
}

// touch re-arms the entry's idle-eviction timer, or suspends it while the
// entry's current value is an unresolved awaitable. An in-flight entry must
// never be evicted; once the value settles the timer resumes from a fresh
// interval.
func (c *poolCore) touch(e *poolEntry) {
	c.mu.Lock()
	if e.removed {
		c.mu.Unlock()
		return
	}

	raw := e.state.get()
	e.watchGen++
	gen := e.watchGen

	if aw, ok := raw.(Awaitable); ok {
		if state := defaultCache.track(aw); state.Status == StatusPending {
			if e.timer != nil {
				e.timer.Stop()
			}
			c.mu.Unlock()
			go func() {
				<-aw.Done()
				c.mu.Lock()
				stale := e.removed || gen != e.watchGen
				c.mu.Unlock()
				if !stale {
					c.touch(e)
				}
			}()
			return
		}
	}

	if c.gcTime <= 0 {
		c.mu.Unlock()
		return
	}
	if e.timer == nil {
		e.timer = time.AfterFunc(c.gcTime, func() { c.evict(e) })
	} else {
		e.timer.Reset(c.gcTime)
	}
	c.mu.Unlock()
}

// evict tears an entry down: removal event, change unsubscription, and an
// inert atom afterwards.
func (c *poolCore) evict(e *poolEntry) {
	c.mu.Lock()
	if e.removed {
		c.mu.Unlock()
		return
	}
	e.removed = true
	e.watchGen++
	if e.timer != nil {
		e.timer.Stop()
	}
	for i, candidate := range c.entries {
		if candidate == e {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if e.unsubChange != nil {
		e.unsubChange()
	}
	e.state.teardown()
	c.fire(PoolRemoved, e.params)
	e.removal.notify()
	e.removal.clear()
}

// onEntryRemoved subscribes fn to one entry's removal. Subscribing to an
// already-removed entry invokes fn immediately so a computation that read the
// entry in the eviction window still re-runs.
func (c *poolCore) onEntryRemoved(e *poolEntry, fn func()) func() {
	c.mu.Lock()
	removed := e.removed
	c.mu.Unlock()
	if removed {
		fn()
		return func() {}
	}
	return e.removal.add(fn)
}

func (c *poolCore) on(fn func(PoolEventKind, any)) func() {
	entry := &poolListenerEntry{fn: fn}
	c.mu.Lock()
	c.events = append(c.events, entry)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.events {
			if e == entry {
				c.events = append(c.events[:i], c.events[i+1:]...)
				return
			}
		}
	}
}

func (c *poolCore) fire(kind PoolEventKind, params any) {
	c.mu.Lock()
	snapshot := make([]*poolListenerEntry, len(c.events))
	copy(snapshot, c.events)
	c.mu.Unlock()

	for _, e := range snapshot {
		e.fn(kind, params)
	}
}

func (c *poolCore) snapshot() []*poolEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := make([]*poolEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// Pool is a keyed collection of lazily-created atoms with idle-timeout
// eviction. Params are matched via a configurable equality strategy, shallow
// by default.
type Pool[P any, T any] struct {
	core *poolCore
	tagStore
}

// NewPool creates a pool whose entries are initialized by init on first
// access for a given params value.
func NewPool[P any, T any](init func(P) T, opts ...Option) *Pool[P, T] {
	cfg := newConfig(opts)
	p := &Pool[P, T]{
		core:     newPoolCore(func(params any) any { return init(as[P](params)) }, cfg),
		tagStore: newTagStore(cfg.tags),
	}
	cfg.hooks.fireCreate(KindPool, p)
	return p
}

// Get returns the entry value for params, creating the entry if needed, and
// re-arms its idle timer.
func (p *Pool[P, T]) Get(params P) T {
	e := p.core.entryFor(params, true)
	p.core.touch(e)
	return as[T](e.state.get())
}

// Set stores v for params, creating the entry if needed. A changed value
// fires a change event; either way the idle timer is re-armed.
func (p *Pool[P, T]) Set(params P, v T) {
	e := p.core.entryFor(params, true)
	e.state.set(v)
	p.core.touch(e)
}

// Update applies a reducer to the entry value for params.
func (p *Pool[P, T]) Update(params P, reduce func(T) T) {
	e := p.core.entryFor(params, true)
	e.state.update(func(v any) any { return reduce(as[T](v)) })
	p.core.touch(e)
}

// Has reports whether an entry exists for params, without creating one or
// touching its timer.
func (p *Pool[P, T]) Has(params P) bool {
	return p.core.entryFor(params, false) != nil
}

// Size returns the number of live entries.
func (p *Pool[P, T]) Size() int {
	p.core.mu.Lock()
	defer p.core.mu.Unlock()
	return len(p.core.entries)
}

// ForEach visits every live entry.
func (p *Pool[P, T]) ForEach(fn func(params P, value T)) {
	for _, e := range p.core.snapshot() {
		fn(as[P](e.params), as[T](e.state.get()))
	}
}

// Remove explicitly evicts the entry for params, firing a removal event.
func (p *Pool[P, T]) Remove(params P) bool {
	e := p.core.entryFor(params, false)
	if e == nil {
		return false
	}
	p.core.evict(e)
	return true
}

// Clear evicts every entry, firing a removal event per entry.
func (p *Pool[P, T]) Clear() {
	for _, e := range p.core.snapshot() {
		p.core.evict(e)
	}
}

// On subscribes to create/change/remove events for any entry.
func (p *Pool[P, T]) On(fn func(PoolEvent[P])) (unsub func()) {
	return p.core.on(func(kind PoolEventKind, params any) {
		fn(PoolEvent[P]{Kind: kind, Params: as[P](params)})
	})
}

// Kind identifies the container type.
func (p *Pool[P, T]) Kind() Kind { return KindPool }

// DebugKey returns the pool's metadata key.
func (p *Pool[P, T]) DebugKey() string { return p.core.debugKey }
