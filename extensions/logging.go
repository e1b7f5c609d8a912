// Package extensions provides optional instrumentation taps for atomirx:
// structured logging of hook traffic and terminal rendering of dependency
// trees. Nothing in here alters computation results.
package extensions

import (
	"log/slog"

	atomirx "github.com/linq2js/atomirx-sub001"
)

// Logging forwards error-hook and creation-hook traffic to a slog.Logger.
//
// Usage:
//
//	ext := extensions.NewLogging(slog.NewJSONHandler(os.Stdout, nil))
//	detach := ext.Attach(atomirx.DefaultHooks())
//	defer detach()
type Logging struct {
	logger *slog.Logger
}

// NewLogging creates a logging tap writing through the given handler.
func NewLogging(handler slog.Handler) *Logging {
	return &Logging{logger: slog.New(handler)}
}

// Attach registers the tap on a hooks registry and returns a function that
// removes it.
func (l *Logging) Attach(hooks *atomirx.Hooks) (detach func()) {
	restoreErr := hooks.UseError(func(err error, source any) {
		key := ""
		if src, ok := source.(interface{ DebugKey() string }); ok {
			key = src.DebugKey()
		}
		l.logger.Error("computation failed", "node", key, "err", err)
	})
	restoreCreate := hooks.UseCreate(func(kind atomirx.Kind, source any) {
		key := ""
		if src, ok := source.(interface{ DebugKey() string }); ok {
			key = src.DebugKey()
		}
		l.logger.Debug("container created", "kind", kind.String(), "node", key)
	})

	return func() {
		restoreErr()
		restoreCreate()
	}
}
