package reload

import (
	"log/slog"
	"sync"

	"github.com/loppo-llc/wtctmux/internal/ccproto"
	"github.com/loppo-llc/wtctmux/internal/tmuxmodel"
)

// Coordinator implements spec.md §4.9's refresh-bitmask precedence
// logic: notifications accumulate as pending bits, and a single pass
// collapses them into at most the handful of reload procedures that
// are actually needed, since a sessions reload already re-derives
// windows, panes and clients beneath it.
type Coordinator struct {
	mu      sync.Mutex
	pending ccproto.Flags

	m               *tmuxmodel.Model
	q               *Queue
	ex              Execer
	tempSessionName string
	dispatcher      *Dispatcher
	logger          *slog.Logger

	// LaunchTempCC is invoked after a pass leaves the session set
	// empty, per spec.md §4.4's closing rule: the temp-session
	// singleton is relaunched once nothing else is attached.
	LaunchTempCC func() error
}

// NewCoordinator builds a Coordinator wired to a shadow model, closure
// queue, command executor and callback dispatcher.
func NewCoordinator(m *tmuxmodel.Model, q *Queue, ex Execer, tempSessionName string, dispatcher *Dispatcher, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{m: m, q: q, ex: ex, tempSessionName: tempSessionName, dispatcher: dispatcher, logger: logger}
}

// QueueRefresh ORs newly observed notification bits into the pending
// mask. Safe to call from the control-mode parser's goroutine while a
// pass is in flight.
func (c *Coordinator) QueueRefresh(flags ccproto.Flags) {
	if flags == 0 {
		return
	}
	c.mu.Lock()
	c.pending |= flags
	c.mu.Unlock()
}

// Pending reports the currently accumulated refresh mask.
func (c *Coordinator) Pending() ccproto.Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// RunPass drains the pending mask and runs exactly the reload
// procedures spec.md §4.9's precedence order calls for:
//
//  1. Sessions set → sessions_reload() clears all four flags (it
//     recurses into windows, panes and clients itself).
//  2. Else Windows set → windows_reload() clears Windows and Panes.
//  3. Else Panes set → panes_reload() clears Panes.
//  4. Independently, Clients set → clients_reload() clears Clients.
//
// On error, any bits the failed procedure did not get to clear are
// left pending for the next pass, queued closures are discarded
// (spec.md §7), and the error is returned without dispatching.
func (c *Coordinator) RunPass() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = 0
	c.mu.Unlock()

	if pending == 0 {
		return nil
	}

	var needTempLaunch bool
	var err error

	switch {
	case pending.Has(ccproto.FlagSessions):
		needTempLaunch, err = SessionsReload(c.ex, c.m, c.q, c.tempSessionName)
		if err == nil {
			pending = 0
		}
	case pending.Has(ccproto.FlagWindows):
		err = WindowsReload(c.ex, c.m, c.q)
		if err == nil {
			pending &^= ccproto.FlagWindows | ccproto.FlagPanes
		}
	case pending.Has(ccproto.FlagPanes):
		err = PanesReload(c.ex, c.m, c.q)
		if err == nil {
			pending &^= ccproto.FlagPanes
		}
	}

	if err == nil && pending.Has(ccproto.FlagClients) {
		if cerr := ClientsReload(c.ex, c.m, c.q); cerr != nil {
			err = cerr
		} else {
			pending &^= ccproto.FlagClients
		}
	}

	if err != nil {
		c.mu.Lock()
		c.pending |= pending
		c.mu.Unlock()
		c.q.Discard()
		c.logger.Error("reload pass failed", "error", err, "pending", pending.String())
		return err
	}

	closures := c.q.Drain()
	if dispatchErr := c.dispatcher.InvokeAll(closures); dispatchErr != nil {
		c.logger.Error("closure dispatch aborted", "error", dispatchErr)
		return dispatchErr
	}

	if needTempLaunch && c.LaunchTempCC != nil {
		return c.LaunchTempCC()
	}
	return nil
}
