package atomirx

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// ComputeError wraps a failure produced while executing a selector, carrying
// the owning node's debug key and the stack at the point of capture.
type ComputeError struct {
	DebugKey   string
	Cause      error
	StackTrace []byte
}

func (e *ComputeError) Error() string {
	if e.DebugKey != "" {
		return fmt.Sprintf("compute error in %q: %v", e.DebugKey, e.Cause)
	}
	return fmt.Sprintf("compute error: %v", e.Cause)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}

func newComputeError(debugKey string, cause error) *ComputeError {
	return &ComputeError{
		DebugKey:   debugKey,
		Cause:      cause,
		StackTrace: debug.Stack(),
	}
}

// AggregateError is produced by Any when every candidate has errored. Errors
// holds the individual failures in input order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("all %d candidates errored: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// PanicError wraps a non-error value recovered from a panicking selector or
// reducer so it can travel through error-typed channels.
type PanicError struct {
	Recovered any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Recovered)
}

// asError normalizes a recovered panic value into an error.
func asError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Recovered: recovered}
}

// MisuseError reports a programmer error: calling into the engine outside its
// documented window or with an invalid shape. These are panicked, never
// returned, and must not be retried.
type MisuseError struct {
	Op     string
	Reason string
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("atomirx: %s: %s", e.Op, e.Reason)
}

func panicMisuse(op, reason string) {
	panic(&MisuseError{Op: op, Reason: reason})
}
