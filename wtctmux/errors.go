// Package wtctmux is the public façade: the only package a compositor
// integration imports. It owns the CC list and every entity
// collection (spec.md §3), and exposes connect/disconnect, config
// setters, exec, lookup accessors, and event registration — component
// 13.
package wtctmux

import "github.com/loppo-llc/wtctmux/internal/wtcerr"

// Code classifies an error per spec.md §7. It is a type alias (not a
// redeclaration) so a lower package's *wtcerr.Error compares and type
// switches identically to a wtctmux.Error constructed here — there is
// exactly one Code type in the whole module, just two import paths to
// it, which avoids the import cycle a literal Code type living in
// package wtctmux would otherwise force on internal/tmuxproc,
// internal/ccproto and internal/reload.
type Code = wtcerr.Code

const (
	Invalid       = wtcerr.Invalid
	Busy          = wtcerr.Busy
	OutOfMemory   = wtcerr.OutOfMemory
	IO            = wtcerr.IO
	VersionTooOld = wtcerr.VersionTooOld
	Timeout       = wtcerr.Timeout
)

// Error is the error type returned across this package's surface. See
// internal/wtcerr.Error for the Unwrap contract.
type Error = wtcerr.Error
