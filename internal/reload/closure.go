// Package reload implements the refresh coordinator, the four reload
// procedures, the window-layout parser, and the callback closure
// queue — spec.md components 10, 11, and 12.
package reload

import (
	"sync"

	"github.com/loppo-llc/wtctmux/internal/tmuxmodel"
)

// Kind tags a Closure with the event kind the host callback set
// distinguishes, per spec.md §6's callback list.
type Kind int

const (
	KindNewSession Kind = iota
	KindSessionClosed
	KindSessionWindowChanged
	KindNewWindow
	KindWindowClosed
	KindWindowPaneChanged
	KindNewPane
	KindPaneClosed
	KindPaneResized
	KindPaneModeChanged
	KindClientSessionChanged
	kindEmpty // set after Invoke; further Invoke calls are a no-op
)

// Closure is a deferred event-callback invocation, queued during a
// reload pass and dispatched at the pass boundary.
//
// spec.md §9 directs against collapsing the payload to a single
// opaque pointer: "implement as a tagged variant... the free-after-use
// branch needs the concrete type." Session/Window/Pane/Client are kept
// as four distinct typed fields rather than one `any`, exactly one of
// which is populated per Kind, so FreeAfterUse's detach step can
// operate on the concrete type without a type assertion.
type Closure struct {
	Kind Kind

	Session *tmuxmodel.Session
	Window  *tmuxmodel.Window
	Pane    *tmuxmodel.Pane
	Client  *tmuxmodel.Client

	// FreeAfterUse marks a *Closed closure whose entity has already
	// been unlinked from the model; Invoke detaches the typed pointer
	// after the callback returns so nothing retains it.
	FreeAfterUse bool
}

// Queue is a growable, ordered list of pending closures.
type Queue struct {
	mu    sync.Mutex
	items []*Closure
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue { return &Queue{} }

// Add appends a closure to the tail of the queue.
func (q *Queue) Add(c *Closure) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
}

// Len returns the number of pending closures.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain atomically removes and returns every pending closure, leaving
// the queue empty. Used by each refresh pass to take the closures it
// is about to dispatch, which also enforces spec.md §8's invariant "the closure queue is empty at the
// entry and exit of every refresh callback invocation."
func (q *Queue) Drain() []*Closure {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Discard drops every pending closure without dispatching them,
// releasing any free-after-use payloads. Used on reload error per
// spec.md §7: "closures are discarded (free-after-use payloads are
// released)".
func (q *Queue) Discard() {
	for _, c := range q.Drain() {
		if c.FreeAfterUse {
			c.detach()
		}
	}
}

func (c *Closure) detach() {
	c.Session = nil
	c.Window = nil
	c.Pane = nil
	c.Client = nil
}
