package atomirx

import (
	"context"
	"sync"
	"time"
)

// Kind identifies what sort of container a value came from.
type Kind int

const (
	// KindAtom is a plain mutable atom.
	KindAtom Kind = iota
	// KindDerived is a derived computation node.
	KindDerived
	// KindPool is a keyed atom pool.
	KindPool
	// KindHandle is a per-execution virtual wrapper over a pooled atom.
	KindHandle
	// KindEffect is a side-effecting computation node.
	KindEffect
)

func (k Kind) String() string {
	switch k {
	case KindAtom:
		return "atom"
	case KindDerived:
		return "derived"
	case KindPool:
		return "pool"
	case KindHandle:
		return "handle"
	case KindEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// Readable is the type-erased value container consumed by the tracking
// context: something with a current value and change notification.
type Readable interface {
	Kind() Kind
	DebugKey() string

	// rawValue returns the stored value with awaitables left as-is.
	rawValue() any

	// trackDep returns the dependency the engine should record and later
	// subscribe to. Virtual wrappers report their underlying real atom.
	trackDep() Dependency
}

// Source is a Readable whose resolved values have type T. The marker method
// only exists so the compiler can infer T at Read call sites.
type Source[T any] interface {
	Readable
	sourceOf() T
}

// Dependency is one entry of a computation's recorded read-set.
type Dependency interface {
	DebugKey() string

	// subscribe attaches a change listener and returns its teardown.
	subscribe(fn func()) (unsub func())
}

// as converts a type-erased value back to T, treating nil as the zero value.
func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

// listenerList is a registration-ordered subscriber list. Duplicate
// registrations of the same function are independent subscriptions, and
// notification iterates over a snapshot so listeners may subscribe or
// unsubscribe mid-notification.
type listenerList struct {
	mu      sync.Mutex
	entries []*listenerEntry
}

type listenerEntry struct {
	fn func()
}

func (l *listenerList) add(fn func()) (unsub func()) {
	entry := &listenerEntry{fn: fn}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, e := range l.entries {
			if e == entry {
				l.entries = append(l.entries[:i], l.entries[i+1:]...)
				return
			}
		}
	}
}

func (l *listenerList) notify() {
	l.mu.Lock()
	snapshot := make([]*listenerEntry, len(l.entries))
	copy(snapshot, l.entries)
	l.mu.Unlock()

	for _, e := range snapshot {
		e.fn()
	}
}

func (l *listenerList) clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// DefaultGCTime is the pool idle-eviction interval used when WithGCTime is
// not given.
const DefaultGCTime = time.Minute

// Option configures atoms, pools, derived nodes, effects, and Select runs.
type Option func(*config)

type config struct {
	equality    Equality
	hasEquality bool
	gcTime      time.Duration
	debugKey    string
	hooks       *Hooks
	onError     func(error)
	tags        map[any]any
	parentCtx   context.Context
	fallback    any
	hasFallback bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		gcTime:    DefaultGCTime,
		hooks:     DefaultHooks(),
		parentCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithEquality sets the equality strategy. Defaults: strict for atoms,
// shallow for derived values and pool params.
func WithEquality(eq Equality) Option {
	return func(cfg *config) {
		cfg.equality = eq
		cfg.hasEquality = true
	}
}

// WithGCTime sets a pool's idle-eviction interval.
func WithGCTime(d time.Duration) Option {
	return func(cfg *config) {
		cfg.gcTime = d
	}
}

// WithDebugKey attaches a metadata key used only for debugging and devtools
// correlation. It has no runtime effect.
func WithDebugKey(key string) Option {
	return func(cfg *config) {
		cfg.debugKey = key
	}
}

// WithHooks injects a hooks registry instead of the process default.
func WithHooks(h *Hooks) Option {
	return func(cfg *config) {
		cfg.hooks = h
	}
}

// WithErrorCallback registers a per-node error callback, invoked once per
// distinct error produced by a derived or effect computation.
func WithErrorCallback(fn func(error)) Option {
	return func(cfg *config) {
		cfg.onError = fn
	}
}

// WithParentContext sets the parent of the per-run context handed to
// selectors via Ctx.Context.
func WithParentContext(ctx context.Context) Option {
	return func(cfg *config) {
		cfg.parentCtx = ctx
	}
}

// WithFallback sets the value StaleValue reports before the first successful
// resolution.
func WithFallback[T any](v T) Option {
	return func(cfg *config) {
		cfg.fallback = v
		cfg.hasFallback = true
	}
}

// WithTagValue stores a typed tag at construction time.
func WithTagValue[T any](tag Tag[T], val T) Option {
	return func(cfg *config) {
		if cfg.tags == nil {
			cfg.tags = make(map[any]any)
		}
		cfg.tags[tag] = val
	}
}
