package reload

import "github.com/loppo-llc/wtctmux/internal/tmuxmodel"

// Callbacks is the host-supplied event registration, per spec.md §6:
// "Callbacks exposed to the host." spec.md §9 allows either an
// interface-like capability set or an options struct of nullable
// handlers, and requires only that a missing handler behave as a
// no-op; this is the options-struct form, matching the teacher's own
// `server.Config{...}` constructor-options idiom.
//
// Each handler corresponds to "(core_handle, entity_snapshot) → int"
// in the source; the idiomatic Go mapping returns error instead of an
// integer status — a non-nil error aborts the closure pass exactly as
// a non-zero return does in the source.
type Callbacks struct {
	NewSession           func(*tmuxmodel.Session) error
	SessionClosed        func(*tmuxmodel.Session) error
	SessionWindowChanged func(*tmuxmodel.Session) error

	NewWindow         func(*tmuxmodel.Window) error
	WindowClosed      func(*tmuxmodel.Window) error
	WindowPaneChanged func(*tmuxmodel.Window) error

	NewPane         func(*tmuxmodel.Pane) error
	PaneClosed      func(*tmuxmodel.Pane) error
	PaneResized     func(*tmuxmodel.Pane) error
	PaneModeChanged func(*tmuxmodel.Pane) error

	ClientSessionChanged func(*tmuxmodel.Client) error
}

// Dispatcher invokes queued closures against a Callbacks set, handling
// the NewSession special case.
type Dispatcher struct {
	Callbacks Callbacks

	// LaunchCC is the cc_launch hook (spec.md §4.4), supplied by the
	// façade since launching a CC needs the command assembler, the
	// supervisor, and the CC list that only the façade owns. Invoke
	// calls this before the user's NewSession callback, per spec.md
	// §4.9/§8 scenario 2: "a new session must have its CC attached
	// before the compositor sees it."
	LaunchCC func(sessionID int) error
}

// Invoke runs c's callback (if any), then clears the closure. It
// returns the callback's error, if any, so the caller (the refresh
// coordinator) can abort further dispatch in this pass per spec.md
// §7: "Callback-returned errors abort further closure dispatch in
// that pass." A closure whose Kind has already been invoked
// (kindEmpty) is a no-op.
func (d *Dispatcher) Invoke(c *Closure) error {
	if c.Kind == kindEmpty {
		return nil
	}
	kind := c.Kind
	c.Kind = kindEmpty

	var err error
	switch kind {
	case KindNewSession:
		if d.LaunchCC != nil && c.Session != nil {
			if launchErr := d.LaunchCC(c.Session.ID); launchErr != nil {
				err = launchErr
				break
			}
		}
		if d.Callbacks.NewSession != nil {
			err = d.Callbacks.NewSession(c.Session)
		}
	case KindSessionClosed:
		if d.Callbacks.SessionClosed != nil {
			err = d.Callbacks.SessionClosed(c.Session)
		}
	case KindSessionWindowChanged:
		if d.Callbacks.SessionWindowChanged != nil {
			err = d.Callbacks.SessionWindowChanged(c.Session)
		}
	case KindNewWindow:
		if d.Callbacks.NewWindow != nil {
			err = d.Callbacks.NewWindow(c.Window)
		}
	case KindWindowClosed:
		if d.Callbacks.WindowClosed != nil {
			err = d.Callbacks.WindowClosed(c.Window)
		}
	case KindWindowPaneChanged:
		if d.Callbacks.WindowPaneChanged != nil {
			err = d.Callbacks.WindowPaneChanged(c.Window)
		}
	case KindNewPane:
		if d.Callbacks.NewPane != nil {
			err = d.Callbacks.NewPane(c.Pane)
		}
	case KindPaneClosed:
		if d.Callbacks.PaneClosed != nil {
			err = d.Callbacks.PaneClosed(c.Pane)
		}
	case KindPaneResized:
		if d.Callbacks.PaneResized != nil {
			err = d.Callbacks.PaneResized(c.Pane)
		}
	case KindPaneModeChanged:
		if d.Callbacks.PaneModeChanged != nil {
			err = d.Callbacks.PaneModeChanged(c.Pane)
		}
	case KindClientSessionChanged:
		if d.Callbacks.ClientSessionChanged != nil {
			err = d.Callbacks.ClientSessionChanged(c.Client)
		}
	}

	if c.FreeAfterUse {
		c.detach()
	}
	return err
}

// InvokeAll dispatches every closure in order, stopping at the first
// error per spec.md §7. Remaining undispatched closures are
// discarded (their free-after-use payloads released), matching the
// "closures are discarded" recovery contract.
func (d *Dispatcher) InvokeAll(closures []*Closure) error {
	for i, c := range closures {
		if err := d.Invoke(c); err != nil {
			for _, rest := range closures[i+1:] {
				if rest.FreeAfterUse {
					rest.detach()
				}
			}
			return err
		}
	}
	return nil
}
