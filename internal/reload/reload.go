package reload

import (
	"strconv"
	"strings"

	"github.com/loppo-llc/wtctmux/internal/tmuxmodel"
)

// Execer runs one tmux command line and returns its stdout payload,
// per spec.md §4.7's façade exec() — the reload procedures never talk
// to a CC or a one-shot child directly, only through this seam, so the
// façade is free to route either through cc_exec or a throwaway
// fork_tmux depending on whether a control client is attached yet.
//
// A non-nil error here covers plumbing failure and, from the façade, a
// %error reply (returned as an Invalid error). The procedures below
// swallow any Execer error into an empty result set, per spec.md §4.8:
// "a transient 'no server running' is not fatal", so a reload pass
// that races a dying server converges on "everything closed" instead
// of aborting.
type Execer interface {
	Exec(args []string) ([]byte, error)
}

const fieldSep = "\x1f"

// diffIDs implements spec.md §4.8's four-step diff pattern for the
// id-sync phase, steps 1-3 (existing entries not in observed are
// closed, observed entries not in existing are new). newIDs preserves
// observed order; closedIDs preserves existing order.
func diffIDs(existing, observed []int) (newIDs, closedIDs []int) {
	existingSet := make(map[int]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}
	observedSet := make(map[int]bool, len(observed))
	for _, id := range observed {
		observedSet[id] = true
		if !existingSet[id] {
			newIDs = append(newIDs, id)
		}
	}
	for _, id := range existing {
		if !observedSet[id] {
			closedIDs = append(closedIDs, id)
		}
	}
	return newIDs, closedIDs
}

func parseID(field string) (int, bool) {
	if field == "" {
		return 0, false
	}
	switch field[0] {
	case '$', '@', '%':
		n, err := strconv.Atoi(field[1:])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	n, err := strconv.Atoi(field)
	if err != nil {
		return 0, false
	}
	return n, true
}

func itoa(n int) string { return strconv.Itoa(n) }

func splitNonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func mapKeysInt[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// ---- sessions ----

type sessionRow struct {
	id   int
	name string
}

func parseSessionRows(out []byte) []sessionRow {
	var rows []sessionRow
	for _, line := range splitNonEmptyLines(string(out)) {
		f := strings.Split(line, fieldSep)
		id, ok := parseID(f[0])
		if !ok {
			continue
		}
		name := ""
		if len(f) > 1 {
			name = f[1]
		}
		rows = append(rows, sessionRow{id: id, name: name})
	}
	return rows
}

func statusBarFromOptions(status, position string) tmuxmodel.StatusBar {
	if status == "off" {
		return tmuxmodel.StatusBarOff
	}
	if position == "top" {
		return tmuxmodel.StatusBarTop
	}
	return tmuxmodel.StatusBarBottom
}

// SessionsReload issues `list-sessions`, diffs the result against the
// shadow model, resolves each session's effective status-bar
// placement, and recurses into windows/clients, per spec.md §4.8's
// sessions procedure. It reports whether the session set is now
// empty, so the caller can re-launch the temp-session singleton per
// spec.md §4.4's closing rule.
func SessionsReload(ex Execer, m *tmuxmodel.Model, q *Queue, tempSessionName string) (needTempLaunch bool, err error) {
	out, execErr := ex.Exec([]string{"list-sessions", "-F", "#{session_id}" + fieldSep + "#{session_name}"})
	if execErr != nil {
		out = nil
	}
	rows := parseSessionRows(out)

	m.Lock()
	existingIDs := mapKeysInt(m.Sessions)
	observedIDs := make([]int, 0, len(rows))
	rowByID := make(map[int]sessionRow, len(rows))
	for _, r := range rows {
		observedIDs = append(observedIDs, r.id)
		rowByID[r.id] = r
	}

	newIDs, closedIDs := diffIDs(existingIDs, observedIDs)

	for _, id := range closedIDs {
		s := m.Sessions[id]
		delete(m.Sessions, id)
		q.Add(&Closure{Kind: KindSessionClosed, Session: s, FreeAfterUse: true})
	}
	for _, id := range newIDs {
		r := rowByID[id]
		s := &tmuxmodel.Session{ID: id, Name: r.name}
		m.Sessions[id] = s
		if r.name != tempSessionName {
			q.Add(&Closure{Kind: KindNewSession, Session: s})
		}
	}
	m.Unlock()

	globalStatus, _ := GetOption(ex, "status", TargetSession, ScopeGlobal, "")
	globalPosition, _ := GetOption(ex, "status-position", TargetSession, ScopeGlobal, "")

	m.Lock()
	for _, id := range observedIDs {
		s := m.Sessions[id]
		if s == nil {
			continue
		}
		status, _ := GetOption(ex, "status", TargetSession, ScopeLocal, sessionTarget(id))
		if status == "" {
			status = globalStatus
		}
		position, _ := GetOption(ex, "status-position", TargetSession, ScopeLocal, sessionTarget(id))
		if position == "" {
			position = globalPosition
		}
		s.StatusBar = statusBarFromOptions(status, position)
	}
	m.Unlock()

	if err := WindowsReload(ex, m, q); err != nil {
		return false, err
	}
	if err := ClientsReload(ex, m, q); err != nil {
		return false, err
	}

	m.RLock()
	empty := len(m.Sessions) == 0
	m.RUnlock()
	return empty, nil
}

// ---- windows ----

type windowRow struct {
	windowID  int
	sessionID int
	active    bool
}

func parseWindowRows(out []byte) []windowRow {
	var rows []windowRow
	for _, line := range splitNonEmptyLines(string(out)) {
		f := strings.Split(line, fieldSep)
		if len(f) < 3 {
			continue
		}
		wid, ok := parseID(f[0])
		if !ok {
			continue
		}
		sid, ok := parseID(f[1])
		if !ok {
			continue
		}
		rows = append(rows, windowRow{windowID: wid, sessionID: sid, active: f[2] == "1"})
	}
	return rows
}

// WindowsReload issues `list-windows -a`, diffs the unique window-id
// set against the shadow model (a window is a single shared entity
// even when it is linked into several sessions, per spec.md §3), then
// rebuilds each session's Windows array and active-window pointer from
// the observed rows in order, and recurses into panes.
func WindowsReload(ex Execer, m *tmuxmodel.Model, q *Queue) error {
	out, execErr := ex.Exec([]string{"list-windows", "-aF",
		"#{window_id}" + fieldSep + "#{session_id}" + fieldSep + "#{window_active}"})
	if execErr != nil {
		out = nil
	}
	rows := parseWindowRows(out)

	m.Lock()
	existingIDs := mapKeysInt(m.Windows)

	seen := make(map[int]bool, len(rows))
	var uniqueObserved []int
	for _, r := range rows {
		if !seen[r.windowID] {
			seen[r.windowID] = true
			uniqueObserved = append(uniqueObserved, r.windowID)
		}
	}

	newIDs, closedIDs := diffIDs(existingIDs, uniqueObserved)
	for _, id := range closedIDs {
		w := m.Windows[id]
		delete(m.Windows, id)
		q.Add(&Closure{Kind: KindWindowClosed, Window: w, FreeAfterUse: true})
	}
	for _, id := range newIDs {
		w := &tmuxmodel.Window{ID: id}
		m.Windows[id] = w
		q.Add(&Closure{Kind: KindNewWindow, Window: w})
	}

	bySession := make(map[int][]windowRow)
	var sessionOrder []int
	for _, r := range rows {
		if _, ok := bySession[r.sessionID]; !ok {
			sessionOrder = append(sessionOrder, r.sessionID)
		}
		bySession[r.sessionID] = append(bySession[r.sessionID], r)
	}

	for _, sid := range sessionOrder {
		s := m.Sessions[sid]
		if s == nil {
			continue
		}
		winIDs := make([]int, 0, 4)
		activeID := 0
		for _, r := range bySession[sid] {
			winIDs = append(winIDs, r.windowID)
			if r.active {
				activeID = r.windowID
			}
		}
		s.Windows = winIDs
		if s.ActiveWindow != activeID {
			s.ActiveWindow = activeID
			q.Add(&Closure{Kind: KindSessionWindowChanged, Session: s})
		}
	}
	m.Unlock()

	return PanesReload(ex, m, q)
}

// ---- panes ----

type paneRow struct {
	paneID   int
	windowID int
	active   bool
	pid      int
	inMode   bool
}

func parsePaneRows(out []byte) []paneRow {
	var rows []paneRow
	for _, line := range splitNonEmptyLines(string(out)) {
		f := strings.Split(line, fieldSep)
		if len(f) < 5 {
			continue
		}
		pid, ok := parseID(f[0])
		if !ok {
			continue
		}
		wid, ok := parseID(f[1])
		if !ok {
			continue
		}
		rootPID, _ := strconv.Atoi(f[3])
		rows = append(rows, paneRow{paneID: pid, windowID: wid, active: f[2] == "1", pid: rootPID, inMode: f[4] == "1"})
	}
	return rows
}

// PanesReload issues `list-panes -a`, diffs the pane-id set, rebuilds
// per-window pane linkage (prev/next/head/count) and active-pane
// pointer, and finally re-parses `#{window_visible_layout}` per window
// to refresh geometry and detect real resizes.
//
// Because a linked window is walked once per session it is linked
// into, the same window_id — and the same pane_ids under it — can
// recur later in the listing. Transitions are therefore detected with
// a per-pane "already processed this pass" guard rather than by
// treating a change in window_id between adjacent rows as a group
// boundary, per spec.md §4.8.
func PanesReload(ex Execer, m *tmuxmodel.Model, q *Queue) error {
	out, execErr := ex.Exec([]string{"list-panes", "-aF",
		"#{pane_id}" + fieldSep + "#{window_id}" + fieldSep + "#{pane_active}" + fieldSep + "#{pane_pid}" + fieldSep + "#{pane_in_mode}"})
	if execErr != nil {
		out = nil
	}
	rows := parsePaneRows(out)

	m.Lock()
	existingIDs := mapKeysInt(m.Panes)

	processed := make(map[int]bool, len(rows))
	var uniqueObserved []int
	winPaneOrder := make(map[int][]int)
	winActivePane := make(map[int]int)
	byID := make(map[int]paneRow, len(rows))

	for _, r := range rows {
		if processed[r.paneID] {
			continue
		}
		processed[r.paneID] = true
		uniqueObserved = append(uniqueObserved, r.paneID)
		byID[r.paneID] = r
		winPaneOrder[r.windowID] = append(winPaneOrder[r.windowID], r.paneID)
		if r.active {
			winActivePane[r.windowID] = r.paneID
		}
	}

	newIDs, closedIDs := diffIDs(existingIDs, uniqueObserved)
	for _, id := range closedIDs {
		p := m.Panes[id]
		delete(m.Panes, id)
		q.Add(&Closure{Kind: KindPaneClosed, Pane: p, FreeAfterUse: true})
	}
	for _, id := range newIDs {
		p := &tmuxmodel.Pane{ID: id}
		m.Panes[id] = p
		q.Add(&Closure{Kind: KindNewPane, Pane: p})
	}

	for id, r := range byID {
		p := m.Panes[id]
		if p == nil {
			continue
		}
		p.WindowID = r.windowID
		p.Active = r.active
		p.RootPID = r.pid
		if p.InMode != r.inMode {
			p.InMode = r.inMode
			q.Add(&Closure{Kind: KindPaneModeChanged, Pane: p})
		}
	}

	for wid, order := range winPaneOrder {
		w := m.Windows[wid]
		if w == nil {
			continue
		}
		w.PaneCount = len(order)
		if len(order) > 0 {
			w.PaneHead = order[0]
		} else {
			w.PaneHead = 0
		}
		for i, pid := range order {
			p := m.Panes[pid]
			if p == nil {
				continue
			}
			p.Prev = 0
			p.Next = 0
			if i > 0 {
				p.Prev = order[i-1]
			}
			if i+1 < len(order) {
				p.Next = order[i+1]
			}
		}
		newActive := winActivePane[wid]
		if w.ActivePane != newActive {
			w.ActivePane = newActive
			q.Add(&Closure{Kind: KindWindowPaneChanged, Window: w})
		}
	}
	m.Unlock()

	layoutOut, layoutErr := ex.Exec([]string{"list-windows", "-aF", "#{window_visible_layout}"})
	if layoutErr != nil {
		return nil
	}

	m.Lock()
	defer m.Unlock()
	for _, line := range splitNonEmptyLines(string(layoutOut)) {
		_ = ParseLayout(line, func(paneID, x, y, w, h int) {
			p := m.Panes[paneID]
			if p == nil {
				return
			}
			if p.X != x || p.Y != y || p.W != w || p.H != h {
				p.X, p.Y, p.W, p.H = x, y, w, h
				q.Add(&Closure{Kind: KindPaneResized, Pane: p})
			}
		})
	}
	return nil
}

// ---- clients ----

type clientRow struct {
	name      string
	sessionID int
	pid       int
}

func parseClientRows(out []byte) []clientRow {
	var rows []clientRow
	for _, line := range splitNonEmptyLines(string(out)) {
		f := strings.Split(line, fieldSep)
		if len(f) < 2 {
			continue
		}
		sid, ok := parseID(f[0])
		if !ok {
			continue
		}
		pid, _ := strconv.Atoi(f[1])
		name := ""
		if len(f) > 2 {
			name = f[2]
		}
		rows = append(rows, clientRow{name: name, sessionID: sid, pid: pid})
	}
	return rows
}

// ClientsReload issues `list-clients`, keyed by client name, and
// enqueues ClientSessionChanged whenever a client's attached session
// differs from the shadow record (including the first time a client
// is observed at all) per spec.md §4.8. Unlike the other three
// procedures, client add/remove has no dedicated callback in spec.md
// §6's callback list, so existence changes update the map silently.
func ClientsReload(ex Execer, m *tmuxmodel.Model, q *Queue) error {
	out, execErr := ex.Exec([]string{"list-clients", "-F",
		"#{session_id}" + fieldSep + "#{client_pid}" + fieldSep + "#{client_name}"})
	if execErr != nil {
		out = nil
	}
	rows := parseClientRows(out)

	m.Lock()
	defer m.Unlock()

	observedNames := make(map[string]bool, len(rows))
	for _, r := range rows {
		observedNames[r.name] = true
	}
	for name := range m.Clients {
		if !observedNames[name] {
			delete(m.Clients, name)
		}
	}

	for _, r := range rows {
		c, existed := m.Clients[r.name]
		if !existed {
			c = &tmuxmodel.Client{Name: r.name}
			m.Clients[r.name] = c
		}
		if !existed || c.AttachedSession != r.sessionID {
			c.AttachedSession = r.sessionID
			c.PID = r.pid
			q.Add(&Closure{Kind: KindClientSessionChanged, Client: c})
		} else {
			c.PID = r.pid
		}
	}
	return nil
}
