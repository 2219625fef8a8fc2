// Package tmuxmodel holds the shadow model: keyed collections of
// sessions, windows, panes, and clients that mirror a tmux server's
// authoritative state, per spec.md §3.
package tmuxmodel

import "sync"

// StatusBar is a session's statusbar position, per spec.md §3.
type StatusBar int

const (
	StatusBarOff StatusBar = iota
	StatusBarTop
	StatusBarBottom
)

// Session mirrors one tmux session ($id). Its Windows slice is
// independently owned per spec.md §3's invariant: the same window may
// appear in several sessions' arrays, or twice in one session's array
// due to tmux "window linking" — windows are therefore never sorted
// into per-session linked lists, only referenced by id here.
type Session struct {
	ID   int // $id
	Name string

	StatusBar StatusBar
	PrefixKey  string
	Prefix2Key string

	// Windows is this session's ordered window reference array
	// (lookup references, not ownership).
	Windows []int

	// ClientHead is the name of the head of this session's client
	// list, or "" if none are attached.
	ClientHead string

	ActiveWindow int // @id, or 0 if none
}

// Window mirrors one tmux window (@id). PaneHead, together with each
// Pane's Prev/Next, models the pane linked list as lookup-only
// references into Panes.
type Window struct {
	ID int // @id

	PaneCount  int
	ActivePane int // %id, or 0 if none
	PaneHead   int // %id of the first pane in this window's list, or 0
}

// Pane mirrors one tmux pane (%id).
type Pane struct {
	ID int // %id

	RootPID  int
	Active   bool
	InMode   bool
	WindowID int // lookup reference, never ownership

	Prev, Next int // %id linkage within the window's pane list, or 0

	X, Y, W, H int
}

// Client mirrors one attached tmux client.
type Client struct {
	Name string

	PID              int
	AttachedSession  int // $id, lookup reference
	Prev, Next       string
}

// Model is the façade's exclusive-owner collection of every entity
// kind, keyed by identifier, per spec.md §3's ownership semantics: "The
// façade object exclusively owns all entity collections and the CC
// list, keyed by identifier." Access is single-threaded per spec.md
// §5 ("All collections are single-threaded; no locking") during a
// refresh pass, but the mutex here guards the boundary where the
// façade's public lookup accessors (component 13) may be called
// concurrently with an in-progress refresh pass from a different
// goroutine — an allowance the single-threaded C event loop did not
// need but a concurrent Go façade does.
type Model struct {
	mu sync.RWMutex

	Sessions map[int]*Session
	Windows  map[int]*Window
	Panes    map[int]*Pane
	Clients  map[string]*Client
}

// New returns an empty Model.
func New() *Model {
	return &Model{
		Sessions: make(map[int]*Session),
		Windows:  make(map[int]*Window),
		Panes:    make(map[int]*Pane),
		Clients:  make(map[string]*Client),
	}
}

// Lock/Unlock/RLock/RUnlock expose the model's mutex directly to
// internal/reload, which performs multi-step mutations (id-sync then
// linkage rebuild) that must be observed atomically by lookup
// accessors. This mirrors the teacher's own plain-struct-with-mutex
// idiom (loppo-llc-kojo's Session/Manager) rather than hiding every
// field behind per-access methods, which would make the diff-and-
// relink reload algorithm in internal/reload unreadable.
func (m *Model) Lock()    { m.mu.Lock() }
func (m *Model) Unlock()  { m.mu.Unlock() }
func (m *Model) RLock()   { m.mu.RLock() }
func (m *Model) RUnlock() { m.mu.RUnlock() }

// Session looks up a session by id under a read lock.
func (m *Model) Session(id int) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.Sessions[id]
	return s, ok
}

// Window looks up a window by id under a read lock.
func (m *Model) Window(id int) (*Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.Windows[id]
	return w, ok
}

// Pane looks up a pane by id under a read lock.
func (m *Model) Pane(id int) (*Pane, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.Panes[id]
	return p, ok
}

// Client looks up a client by name under a read lock.
func (m *Model) Client(name string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.Clients[name]
	return c, ok
}

// AllSessions returns a snapshot slice of every tracked session,
// in no particular order, for callers that need to enumerate rather
// than look up a single known id (e.g. a session switcher UI).
func (m *Model) AllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.Sessions))
	for _, s := range m.Sessions {
		out = append(out, s)
	}
	return out
}

// AllWindows returns a snapshot slice of every tracked window.
func (m *Model) AllWindows() []*Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Window, 0, len(m.Windows))
	for _, w := range m.Windows {
		out = append(out, w)
	}
	return out
}

// AllPanes returns a snapshot slice of every tracked pane.
func (m *Model) AllPanes() []*Pane {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Pane, 0, len(m.Panes))
	for _, p := range m.Panes {
		out = append(out, p)
	}
	return out
}

// AllClients returns a snapshot slice of every tracked client.
func (m *Model) AllClients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.Clients))
	for _, c := range m.Clients {
		out = append(out, c)
	}
	return out
}

// SessionCount returns the number of sessions currently in the model.
// It backs the façade's SessionCount accessor; the sessions-reload
// procedure checks len(m.Sessions) under its own lock instead.
func (m *Model) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Sessions)
}
