// Package atomirx is a fine-grained reactive state container for Go.
//
// # Overview
//
// Atomirx organizes state around four core concepts:
//
//  1. Atoms: identity-bearing mutable containers with change notification
//  2. Selectors: synchronous computations executed against a tracking context
//     that records exactly which containers were read
//  3. Derived nodes: persistent selectors that re-run automatically when any
//     tracked dependency changes
//  4. Pools: keyed collections of lazily-created atoms with idle eviction
//
// # Basic Usage
//
// Create atoms to hold state:
//
//	count := atomirx.NewAtom(5)
//
// Derive values from them:
//
//	doubled := atomirx.NewDerived(func(ctx *atomirx.Ctx) (int, error) {
//	    return atomirx.Read(ctx, count) * 2, nil
//	})
//
//	state := doubled.State() // {Status: Ready, Value: 10}
//	count.Set(7)             // doubled recomputes to 14
//
// The derived node subscribes to exactly the containers its selector read on
// the last run. A selector that conditionally reads a or b based on a flag is
// only subscribed to the flag plus whichever branch it actually took.
//
// # Asynchronous values
//
// Atoms can hold promises. Reading one inside a selector suspends the
// computation until the promise settles; the selector body stays plain
// synchronous code:
//
//	user := atomirx.NewAtom(fetchUser()) // *atomirx.Promise[User]
//
//	greeting := atomirx.NewDerived(func(ctx *atomirx.Ctx) (string, error) {
//	    u := atomirx.Await(ctx, user)
//	    return "hello " + u.Name, nil
//	})
//
//	g, err := greeting.Get().Wait(context.Background())
//
// Suspension is tracked by a promise-state cache keyed on object identity, so
// re-running a selector over the same promise does not duplicate work, and
// combined waits (All/Race/Any/Settled) reuse their synthesized awaitable
// across runs when the underlying sources are unchanged.
//
// While a new computation is pending, the last resolved value stays available
// as a stale fallback:
//
//	if v, ok := greeting.StaleValue(); ok {
//	    render(v) // keep showing old data while refreshing
//	}
//
// # Combinators
//
// A selector can aggregate several containers under one computation:
//
//	both := ctx.All(a, b)                     // waits on every pending entry in parallel
//	key, v := ctx.Race(atomirx.K("cache", c), // first ready wins, errors propagate
//	    atomirx.K("net", n))
//	key, v = ctx.Any(entries...)              // errors are skipped until all have failed
//	states := ctx.Settled(a, b)               // per-slot ready/error records
//
// Errors thrown by dependencies unwind the selector; Safe catches them
// without swallowing suspension:
//
//	v, err := atomirx.Safe(ctx, func() (int, error) {
//	    return atomirx.Read(ctx, risky), nil
//	})
//
// # Pools
//
// Pools key atoms by a params value and evict entries after a configurable
// idle interval. An entry is never evicted while its value is an unresolved
// promise:
//
//	users := atomirx.NewPool(func(id string) *atomirx.Promise[User] {
//	    return loadUser(id)
//	}, atomirx.WithGCTime(30*time.Second))
//
// Inside a selector, From returns a virtual wrapper over the pooled entry
// that is only valid for that execution pass; leaking it into a callback and
// using it later panics instead of silently touching evicted state.
//
//	h := atomirx.From(ctx, users, "u1")
//	u := atomirx.Await(ctx, h)
//
// # Tracking contract
//
// One Select call is one synchronous execution attempt:
//
//	out := atomirx.Select(func(ctx *atomirx.Ctx) (int, error) { ... })
//
// Exactly one of out.Value, out.Err, out.Pending is present. After inspecting
// the outcome, callers attach listeners with out.StartTracking(fn), which
// subscribes fn to every container read and every pool entry's removal, and
// returns a single teardown. The context itself is dead once the selector
// returns: using it from a stored reference, a timer, or another goroutine
// panics with a MisuseError.
//
// # Hooks
//
// Process-wide (or injected) hook chains observe errors and container
// creation for logging and devtools. They are side channels and never alter
// results:
//
//	restore := atomirx.DefaultHooks().UseError(func(err error, src any) {
//	    log.Printf("computation failed: %v", err)
//	})
//	defer restore()
package atomirx
