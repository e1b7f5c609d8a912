package atomirx

// Keyed names a container for the Race and Any combinators. A keyed ordered
// list is used instead of a map so iteration order is deterministic.
type Keyed struct {
	Key    string
	Source Readable
}

// K pairs a key with a container.
func K(key string, src Readable) Keyed {
	return Keyed{Key: key, Source: src}
}

// All resolves every container, registering each in the read-set. The first
// rejected dependency propagates immediately. Pending dependencies are
// accumulated across all entries, and if any exist the computation suspends
// on a single combined awaitable that settles once every one of them has,
// so they are waited on in parallel rather than rediscovered one at a time.
func (ctx *Ctx) All(srcs ...Readable) []any {
	ctx.check("all")

	values := make([]any, len(srcs))
	var pending []Awaitable
	for i, src := range srcs {
		ctx.register(src.trackDep())
		state := ctx.inspect(src.rawValue())
		switch state.Status {
		case StatusError:
			panic(errorSignal{err: state.Err})
		case StatusPending:
			pending = append(pending, state.Value.(Awaitable))
		default:
			values[i] = state.Value
		}
	}
	if len(pending) > 0 {
		panic(suspenseSignal{aw: ctx.cache.combine(combineAll, pending)})
	}
	return values
}

// Race returns the first entry whose state is ready, by iteration order for
// the synchronously-ready case. An errored entry encountered before a ready
// one propagates its error. Only when every entry is pending does the
// computation suspend, on a combined awaitable that settles with the first of
// them.
func (ctx *Ctx) Race(entries ...Keyed) (string, any) {
	ctx.check("race")
	if len(entries) == 0 {
		panicMisuse("race", "called with zero entries")
	}

	pending := make([]Awaitable, 0, len(entries))
	for _, entry := range entries {
		ctx.register(entry.Source.trackDep())
		state := ctx.inspect(entry.Source.rawValue())
		switch state.Status {
		case StatusReady:
			return entry.Key, state.Value
		case StatusError:
			panic(errorSignal{err: state.Err})
		default:
			pending = append(pending, state.Value.(Awaitable))
		}
	}
	panic(suspenseSignal{aw: ctx.cache.combine(combineRace, pending)})
}

// Any is Race with error-skipping: errored entries are recorded and passed
// over, and only once every entry has errored does it propagate an
// AggregateError carrying the individual errors in input order. When no entry
// is ready and at least one is still pending, the computation suspends on the
// first of the pending entries to settle.
func (ctx *Ctx) Any(entries ...Keyed) (string, any) {
	ctx.check("any")
	if len(entries) == 0 {
		panicMisuse("any", "called with zero entries")
	}

	var pending []Awaitable
	var errs []error
	for _, entry := range entries {
		ctx.register(entry.Source.trackDep())
		state := ctx.inspect(entry.Source.rawValue())
		switch state.Status {
		case StatusReady:
			return entry.Key, state.Value
		case StatusError:
			errs = append(errs, state.Err)
		default:
			pending = append(pending, state.Value.(Awaitable))
		}
	}
	if len(errs) == len(entries) {
		panic(errorSignal{err: &AggregateError{Errors: errs}})
	}
	panic(suspenseSignal{aw: ctx.cache.combine(combineRace, pending)})
}

// Settled resolves every container like All but never propagates individual
// errors: each slot is a tagged ready/error record. The computation only
// suspends while any entry is still pending, on a combined awaitable covering
// all of them.
func (ctx *Ctx) Settled(srcs ...Readable) []State {
	ctx.check("settled")

	states := make([]State, len(srcs))
	var pending []Awaitable
	for i, src := range srcs {
		ctx.register(src.trackDep())
		state := ctx.inspect(src.rawValue())
		if state.Status == StatusPending {
			pending = append(pending, state.Value.(Awaitable))
		}
		states[i] = state
	}
	if len(pending) > 0 {
		panic(suspenseSignal{aw: ctx.cache.combine(combineAllSettled, pending)})
	}
	return states
}
