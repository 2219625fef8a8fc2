// Package ccproto implements the control client (CC) record, the
// control-mode line parser, and the cc_exec request/response plexer —
// spec.md components 5, 6, and 7.
package ccproto

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/loppo-llc/wtctmux/internal/procio"
	"github.com/loppo-llc/wtctmux/internal/ringbuf"
	"github.com/loppo-llc/wtctmux/internal/tmuxproc"
)

// ReplyCallback receives a parsed command reply envelope: the payload
// bytes between %begin and %end|%error, and whether it terminated in
// %error. Installed temporarily by cc_exec (Exec) and restored after.
type ReplyCallback func(payload []byte, isError bool, userdata any)

// CC is a reference-counted record wrapping one long-running
// `tmux -C attach-session`/`new-session` child, per spec.md §3/§4.4.
type CC struct {
	mu sync.Mutex

	// DebugID is a per-CC correlation id for log fields, not part of
	// the protocol — grounded on the teacher's generateID() pattern,
	// generalized to uuid per SPEC_FULL.md §C.
	DebugID string

	Pid       int
	SessionID string // empty when Temp
	Temp      bool

	child *tmuxproc.Child
	Ring  *ringbuf.Ring

	// compensate discards the startup reply tmux emits at attach,
	// before it can reach the first real caller. Consumed once.
	compensate bool

	pending     ReplyCallback
	pendingUser any

	parser *Parser

	refs int32 // façade + event source, per spec.md §4.4

	logger *slog.Logger

	closed bool
}

// New constructs a CC around an already-launched tmux child. The
// caller (the façade's cc_launch equivalent) is responsible for
// sequencing the refresh-client size lock. The CC starts with its
// compensate flag set, so the first reply it parses is discarded.
func New(child *tmuxproc.Child, sessionID string, temp bool, logger *slog.Logger) *CC {
	if logger == nil {
		logger = slog.Default()
	}
	cc := &CC{
		DebugID:    uuid.NewString(),
		Pid:        child.Pid,
		SessionID:  sessionID,
		Temp:       temp,
		child:      child,
		Ring:       ringbuf.New(4096),
		compensate: true,
		parser:     NewParser(),
		refs:       2,
		logger:     logger.With("component", "cc", "cc_id", child.Pid),
	}
	return cc
}

// StdinFd returns the parent-side write descriptor for this CC's
// stdin, or -1 if stdin was not requested at launch.
func (cc *CC) StdinFd() int { return cc.child.InFd }

// StdoutFd returns the parent-side read descriptor for this CC's
// stdout, or -1 if stdout was not requested at launch.
func (cc *CC) StdoutFd() int { return cc.child.OutFd }

// Ref increments the reference count.
func (cc *CC) Ref() {
	atomic.AddInt32(&cc.refs, 1)
}

// Unref decrements the reference count and frees the underlying child
// resources once it reaches zero, per spec.md §3's CC lifetime rule
// ("freed when its last reference drops").
func (cc *CC) Unref() {
	if atomic.AddInt32(&cc.refs, -1) == 0 {
		cc.mu.Lock()
		defer cc.mu.Unlock()
		if !cc.closed {
			cc.child.Close()
			cc.closed = true
		}
	}
}

// SetPending installs a temporary pending-reply callback, returning
// the previous (callback, userdata) pair so the caller can restore it
// once its own wait completes. Used by cc_exec (spec.md §4.6).
func (cc *CC) SetPending(cb ReplyCallback, userdata any) (prevCB ReplyCallback, prevUser any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	prevCB, prevUser = cc.pending, cc.pendingUser
	cc.pending, cc.pendingUser = cb, userdata
	return prevCB, prevUser
}

// RestorePending restores a previously-saved pending-reply callback.
func (cc *CC) RestorePending(cb ReplyCallback, userdata any) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pending, cc.pendingUser = cb, userdata
}

// dispatchReply is invoked by the parser when a complete envelope is
// recognized. It honors the one-shot compensate discard (spec.md
// §4.4/§4.6: "the first reply of a newly launched CC is discarded").
func (cc *CC) dispatchReply(payload []byte, isError bool) {
	cc.mu.Lock()
	if cc.compensate {
		cc.compensate = false
		cc.mu.Unlock()
		cc.logger.Debug("discarding compensate reply")
		return
	}
	cb, userdata := cc.pending, cc.pendingUser
	cc.mu.Unlock()

	if cb != nil {
		cb(payload, isError, userdata)
	}
}

// Pump drains the CC's stdout fd into its ring (C-string framing, per
// spec.md §4.5's driver loop: "drain fd into ring (C-string + ring)"),
// then runs the parser until the ring is exhausted or more data is
// needed. Returns the refresh flags accumulated from any notifications
// recognized during this pump, and an error if parsing hit an
// unrecognized leading non-% byte.
func (cc *CC) Pump() (Flags, error) {
	if _, err := procio.ReadAvailable(cc.StdoutFd(), procio.CString, procio.RingSink, nil, cc.Ring); err != nil {
		return 0, err
	}
	return cc.parser.Drain(cc)
}

// Child exposes the underlying launched process, for the supervisor
// and bounded-wait helper.
func (cc *CC) Child() *tmuxproc.Child { return cc.child }
