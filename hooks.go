package atomirx

import "sync"

// ErrorHook observes every structured error produced by a derived or effect
// computation. source is the node that produced the error.
type ErrorHook func(err error, source any)

// CreateHook observes every creation of an atom, derived node, pool, or
// effect.
type CreateHook func(kind Kind, source any)

// Hooks is a registry of side-channel taps. Hooks never alter computation
// results; they exist for centralized logging, monitoring, and devtools
// instrumentation.
//
// The registry is an explicit handler chain: Use* pushes a handler on top of
// the previous ones, the returned restore function pops exactly that handler,
// and Reset empties the chain. Constructors accept a registry through
// WithHooks for testability; DefaultHooks is the process-wide fallback.
type Hooks struct {
	mu       sync.Mutex
	onError  []*errorHookEntry
	onCreate []*createHookEntry
}

type errorHookEntry struct{ fn ErrorHook }
type createHookEntry struct{ fn CreateHook }

var defaultHooks = &Hooks{}

// DefaultHooks returns the process-wide registry.
func DefaultHooks() *Hooks {
	return defaultHooks
}

// NewHooks returns an empty registry, independent of the process default.
func NewHooks() *Hooks {
	return &Hooks{}
}

// UseError pushes an error tap. The returned function removes it.
func (h *Hooks) UseError(fn ErrorHook) (restore func()) {
	entry := &errorHookEntry{fn: fn}
	h.mu.Lock()
	h.onError = append(h.onError, entry)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, e := range h.onError {
			if e == entry {
				h.onError = append(h.onError[:i], h.onError[i+1:]...)
				return
			}
		}
	}
}

// UseCreate pushes a creation tap. The returned function removes it.
func (h *Hooks) UseCreate(fn CreateHook) (restore func()) {
	entry := &createHookEntry{fn: fn}
	h.mu.Lock()
	h.onCreate = append(h.onCreate, entry)
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, e := range h.onCreate {
			if e == entry {
				h.onCreate = append(h.onCreate[:i], h.onCreate[i+1:]...)
				return
			}
		}
	}
}

// Reset empties both chains.
func (h *Hooks) Reset() {
	h.mu.Lock()
	h.onError = nil
	h.onCreate = nil
	h.mu.Unlock()
}

func (h *Hooks) fireError(err error, source any) {
	h.mu.Lock()
	snapshot := make([]*errorHookEntry, len(h.onError))
	copy(snapshot, h.onError)
	h.mu.Unlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		snapshot[i].fn(err, source)
	}
}

func (h *Hooks) fireCreate(kind Kind, source any) {
	h.mu.Lock()
	snapshot := make([]*createHookEntry, len(h.onCreate))
	copy(snapshot, h.onCreate)
	h.mu.Unlock()

	for i := len(snapshot) - 1; i >= 0; i-- {
		snapshot[i].fn(kind, source)
	}
}
