package atomirx

// Effect runs a computation for its side effects and re-runs it whenever a
// tracked dependency changes. Selectors can register per-run cleanups via
// Ctx.OnCleanup and hand Ctx.Context to external operations; both are torn
// down before every re-run and on Stop.
type Effect struct {
	node *Derived[struct{}]
}

// NewEffect creates an effect and runs it immediately. Errors returned by fn
// surface through the error callback and the error hook chain, never as a
// value.
func NewEffect(fn func(*Ctx) error, opts ...Option) *Effect {
	node := newDerivedNode(func(ctx *Ctx) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}, KindEffect, opts)
	return &Effect{node: node}
}

// Refresh forces an immediate re-execution.
func (e *Effect) Refresh() {
	e.node.Refresh()
}

// Stop halts future re-execution, runs pending cleanups, and cancels the
// current run's context. A stopped effect never runs again.
func (e *Effect) Stop() {
	e.node.stop()
}

// State reports the last run's outcome.
func (e *Effect) State() State {
	return e.node.State()
}

// Dependencies returns the read-set of the most recent run.
func (e *Effect) Dependencies() []Dependency {
	return e.node.Dependencies()
}

// GetTag implements Taggable.
func (e *Effect) GetTag(tag any) (any, bool) { return e.node.GetTag(tag) }

// SetTag implements Taggable.
func (e *Effect) SetTag(tag any, val any) { e.node.SetTag(tag, val) }

// Kind identifies the container type.
func (e *Effect) Kind() Kind { return KindEffect }

// DebugKey returns the effect's metadata key.
func (e *Effect) DebugKey() string { return e.node.DebugKey() }
