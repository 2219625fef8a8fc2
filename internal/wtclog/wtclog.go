// Package wtclog provides the module's slog component-scoping
// convention, per SPEC_FULL.md §B: one *slog.Logger threaded by
// constructor injection, structured key-value fields, no package
// global except the slog.Default() fallback callers supply at their
// outermost entry point.
package wtclog

import "log/slog"

// Component returns logger with a "component" field set to name. The
// teacher threads a single *slog.Logger into every constructor
// (server.New, session.NewManager, filebrowser.New, git.New,
// notify.New all take `logger *slog.Logger`) without itself tagging a
// component field; this module has many more internal layers passing
// that same logger down, so Component is the one addition needed to
// tell their log lines apart, applied at each package's constructor.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}
