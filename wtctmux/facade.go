package wtctmux

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/ccproto"
	"github.com/loppo-llc/wtctmux/internal/reload"
	"github.com/loppo-llc/wtctmux/internal/tmuxmodel"
	"github.com/loppo-llc/wtctmux/internal/tmuxproc"
	"github.com/loppo-llc/wtctmux/internal/wtcerr"
	"github.com/loppo-llc/wtctmux/internal/wtclog"
)

// instanceActive enforces spec.md §5's "only one active instance of
// the core may exist per process" in-process, alongside the
// cross-process gofrs/flock guard Connect takes on the socket
// namespace.
var instanceActive atomic.Bool

// Core is the façade handle: component 13. It owns the command
// assembler, the process supervisor, the shadow model, the closure
// queue, the refresh coordinator, and the CC list.
type Core struct {
	mu sync.Mutex

	logger *slog.Logger

	prefix     *tmuxproc.Prefix
	supervisor *tmuxproc.Supervisor
	model      *tmuxmodel.Model
	queue      *reload.Queue
	dispatcher *reload.Dispatcher
	coord      *reload.Coordinator

	timeout       time.Duration
	width, height int

	ccs    map[int]*ccproto.CC // keyed by pid
	tempCC *ccproto.CC

	lock    *flock.Flock
	watcher *tmuxproc.SocketWatcher

	connected bool
	stopLoop  chan struct{}
	loopDone  chan struct{}
	wake      chan struct{}

	refs int32
}

// New constructs a disconnected Core from cfg. Callbacks are installed
// immediately so no event can race registration once Connect runs.
func New(cfg Config) *Core {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = wtclog.Component(logger, "wtctmux")

	w, h := cfg.dimensions()

	c := &Core{
		logger:     logger,
		prefix:     tmuxproc.NewPrefix(),
		model:      tmuxmodel.New(),
		queue:      reload.NewQueue(),
		timeout:    cfg.timeout(),
		width:      w,
		height:     h,
		ccs:        make(map[int]*ccproto.CC),
		refs:       1,
	}
	c.dispatcher = &reload.Dispatcher{Callbacks: cfg.Callbacks, LaunchCC: c.launchSession}
	c.supervisor = tmuxproc.NewSupervisor(c.onChildReaped, c.onLastNonTempGone)
	c.coord = reload.NewCoordinator(c.model, c.queue, c, TempSessionName, c.dispatcher, logger)
	c.coord.LaunchTempCC = func() error { return c.launchTemp() }

	if cfg.BinFile != "" {
		_ = c.prefix.SetBinary(cfg.BinFile)
	}
	if cfg.SocketName != "" {
		_ = c.prefix.SetSocketName(cfg.SocketName)
	}
	if cfg.SocketPath != "" {
		_ = c.prefix.SetSocketPath(cfg.SocketPath)
	}
	if cfg.ConfigFile != "" {
		_ = c.prefix.SetConfig(cfg.ConfigFile)
	}
	return c
}

// Ref increments the handle's reference count.
func (c *Core) Ref() { atomic.AddInt32(&c.refs, 1) }

// Unref decrements the reference count, disconnecting and releasing
// resources once it reaches zero.
func (c *Core) Unref() {
	if atomic.AddInt32(&c.refs, -1) == 0 {
		_ = c.Disconnect()
	}
}

// SetBinary sets the tmux executable path. Valid only while
// disconnected.
func (c *Core) SetBinary(path string) error { return c.prefix.SetBinary(path) }

// SetSocketName sets -L name, clearing any socket path.
func (c *Core) SetSocketName(name string) error { return c.prefix.SetSocketName(name) }

// SetSocketPath sets -S path, clearing any socket name.
func (c *Core) SetSocketPath(path string) error { return c.prefix.SetSocketPath(path) }

// SetConfigFile sets the -f config file path.
func (c *Core) SetConfigFile(path string) error { return c.prefix.SetConfig(path) }

// SetTimeout sets the ms ceiling for bounded waits (cc_exec, one-shot
// exec). Valid only while disconnected.
func (c *Core) SetTimeout(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return wtcerr.New(wtcerr.Busy, "set_timeout")
	}
	if d <= 0 {
		d = DefaultTimeout
	}
	c.timeout = d
	return nil
}

// SetSize sets the virtual (w,h) of the control CC viewport, clamped
// up to MinDimension. Per spec.md §5, calling this while connected
// triggers a size-update round across every live CC instead of
// returning Busy.
func (c *Core) SetSize(w, h int) error {
	if w < MinDimension {
		w = MinDimension
	}
	if h < MinDimension {
		h = MinDimension
	}

	c.mu.Lock()
	c.width, c.height = w, h
	connected := c.connected
	ccs := make([]*ccproto.CC, 0, len(c.ccs))
	for _, cc := range c.ccs {
		ccs = append(ccs, cc)
	}
	c.mu.Unlock()

	if !connected {
		return nil
	}
	for _, cc := range ccs {
		if _, _, err := ccproto.Exec(cc, []string{"refresh-client", "-C", fmt.Sprintf("%d,%d", w, h)}, c.timeout); err != nil {
			c.logger.Warn("size update failed", "cc", cc.DebugID, "error", err)
		}
	}
	return nil
}

// Exec implements the façade's exec(cmds, out, err) (spec.md §4.7): it
// runs cmds on the temp CC if no other CC is connected yet, or on an
// arbitrary live CC otherwise — any attached CC can address any
// session by name via `-t`, so which CC carries the request is not
// observable to the caller.
func (c *Core) Exec(args []string) ([]byte, error) {
	cc, err := c.anyCC()
	if err != nil {
		return nil, err
	}
	payload, isError, err := ccproto.Exec(cc, args, c.timeout)
	if err != nil {
		return nil, err
	}
	if isError {
		return nil, wtcerr.Wrap(wtcerr.Invalid, "exec", fmt.Errorf("%s", payload))
	}
	return payload, nil
}

func (c *Core) anyCC() (*ccproto.CC, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cc := range c.ccs {
		return cc, nil
	}
	return nil, wtcerr.New(wtcerr.Invalid, "exec")
}

// Session/Window/Pane/Client expose read-only snapshots of the shadow
// model's keyed collections (component 13's lookup accessors).
func (c *Core) Session(id int) (*tmuxmodel.Session, bool) { return c.model.Session(id) }
func (c *Core) Window(id int) (*tmuxmodel.Window, bool)   { return c.model.Window(id) }
func (c *Core) Pane(id int) (*tmuxmodel.Pane, bool)       { return c.model.Pane(id) }
func (c *Core) Client(name string) (*tmuxmodel.Client, bool) {
	return c.model.Client(name)
}

// SessionCount returns the number of sessions currently tracked
// (excluding none specially — the temp session counts too, until the
// next reload culls it).
func (c *Core) SessionCount() int { return c.model.SessionCount() }

// Sessions/Windows/Panes/Clients enumerate the shadow model's
// collections for callers that need to list everything rather than
// look up one known id (e.g. a session switcher, or this package's own
// cmd/wtctmuxctl inspection CLI).
func (c *Core) Sessions() []*tmuxmodel.Session { return c.model.AllSessions() }
func (c *Core) Windows() []*tmuxmodel.Window   { return c.model.AllWindows() }
func (c *Core) Panes() []*tmuxmodel.Pane       { return c.model.AllPanes() }
func (c *Core) Clients() []*tmuxmodel.Client   { return c.model.AllClients() }

// Connect implements spec.md §4.4/§9's connect procedure: acquires
// the cross-process instance lock, runs the version gate, locks the
// prefix, launches the temp CC, starts the socket watcher, and starts
// the event loop.
func (c *Core) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return wtcerr.New(wtcerr.Busy, "connect")
	}
	c.mu.Unlock()

	if !instanceActive.CompareAndSwap(false, true) {
		return wtcerr.New(wtcerr.Busy, "connect")
	}

	lockPath := c.prefix.SocketDir() + ".wtctmux.lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		instanceActive.Store(false)
		return wtcerr.Wrap(wtcerr.IO, "connect", err)
	}
	if !locked {
		instanceActive.Store(false)
		return wtcerr.New(wtcerr.Busy, "connect")
	}

	if err := c.checkVersion(); err != nil {
		_ = lock.Unlock()
		instanceActive.Store(false)
		return err
	}

	c.prefix.SetConnected(true)

	c.mu.Lock()
	c.lock = lock
	c.connected = true
	c.stopLoop = make(chan struct{})
	c.loopDone = make(chan struct{})
	c.wake = make(chan struct{}, 1)
	c.mu.Unlock()

	if err := c.launchTemp(); err != nil {
		_ = c.Disconnect()
		return err
	}

	watcher, err := tmuxproc.WatchSocketDir(c.prefix.SocketDir(), func() {
		c.coord.QueueRefresh(sessionsRefreshFlag)
		c.requestWake()
	}, c.logger)
	if err != nil {
		c.logger.Warn("socket watcher unavailable", "error", err)
		watcher = nil
	}
	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	go c.eventLoop()

	return nil
}

func (c *Core) checkVersion() error {
	argv := c.prefix.Argv("-V")
	child, err := tmuxproc.Launch(argv, false, true, false)
	if err != nil {
		return wtcerr.Wrap(wtcerr.IO, "connect", err)
	}
	defer child.Close()

	if err := tmuxproc.WaitBounded(context.Background(), child, c.timeout); err != nil {
		return wtcerr.Wrap(wtcerr.IO, "connect", err)
	}

	buf := make([]byte, 256)
	n, _ := readAllNonblock(child.OutFd, buf)
	_, version, err := tmuxproc.ParseVersionOutput(string(buf[:n]))
	if err != nil {
		return err
	}
	return tmuxproc.CheckVersion(version)
}

// readAllNonblock is a minimal helper for the one-shot `-V` read: the
// child has already exited by the time we read (WaitBounded returned),
// so a handful of non-blocking reads drain whatever is buffered.
func readAllNonblock(fd int, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := readOnce(fd, buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil || n == 0 {
			break
		}
	}
	return total, nil
}

// Disconnect tears down the core: stops the event loop, kills the
// temp session if one is still attached, unrefs every CC, restores the
// prefix to its unconnected state, and releases the instance lock.
func (c *Core) Disconnect() error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil
	}
	stopLoop := c.stopLoop
	loopDone := c.loopDone
	watcher := c.watcher
	lock := c.lock
	ccs := make([]*ccproto.CC, 0, len(c.ccs))
	for _, cc := range c.ccs {
		ccs = append(ccs, cc)
	}
	c.connected = false
	c.mu.Unlock()

	close(stopLoop)
	<-loopDone

	if watcher != nil {
		_ = watcher.Close()
	}

	for _, cc := range ccs {
		if cc.Temp {
			_, _, _ = ccproto.Exec(cc, []string{"kill-session", "-t", TempSessionName}, c.timeout)
		}
		cc.Unref()
	}

	c.mu.Lock()
	c.ccs = make(map[int]*ccproto.CC)
	c.tempCC = nil
	c.mu.Unlock()

	c.prefix.SetConnected(false)

	if lock != nil {
		_ = lock.Unlock()
	}
	instanceActive.Store(false)
	return nil
}

// readOnce issues a single non-blocking read, translating EAGAIN into
// (0, nil) so readAllNonblock's loop treats it as "nothing more right
// now" rather than an error.
func readOnce(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, nil
		}
		return 0, err
	}
	return n, nil
}

func (c *Core) requestWake() {
	c.mu.Lock()
	wake := c.wake
	c.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}
