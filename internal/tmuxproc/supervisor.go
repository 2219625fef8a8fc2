package tmuxproc

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// Entry is a child tracked by the Supervisor.
type Entry struct {
	Child *Child
	Temp  bool
}

// Supervisor reaps finished tmux children and notifies callers when
// the last non-temporary child disappears.
//
// spec.md §4.2 describes this as a self-pipe-triggered SIGCHLD handler
// looping `waitpid(-1, WNOHANG)` on a single-threaded event loop. This
// implementation keeps that semantics — reap every finished child
// promptly, detect "last non-temp CC gone", retry past spurious
// wakeups — using one goroutine per tracked child blocked in Wait()
// instead of a self-pipe: the teacher's own concurrency model
// (loppo-llc-kojo's tmuxWaitLoop/readLoop/drainLoop) is goroutines and
// channels throughout, and spec.md §9 explicitly allows "any
// equivalent wake-the-loop primitive". See DESIGN.md's Open Question
// resolution for the full rationale.
type Supervisor struct {
	mu      sync.Mutex
	entries map[int]*Entry
	nonTemp int

	onReaped          func(pid int, entry *Entry, waitErr error)
	onLastNonTempGone func()
}

// NewSupervisor constructs a Supervisor. onReaped is invoked for every
// child as it's reaped (may be nil). onLastNonTempGone is invoked
// exactly when a reap drops the non-temp count from 1 to 0, matching
// spec.md §4.2's "queue a Sessions refresh" trigger — the caller
// (normally the refresh coordinator) is expected to call
// queue_refresh(Sessions) from this hook.
func NewSupervisor(onReaped func(pid int, entry *Entry, waitErr error), onLastNonTempGone func()) *Supervisor {
	return &Supervisor{
		entries:           make(map[int]*Entry),
		onReaped:          onReaped,
		onLastNonTempGone: onLastNonTempGone,
	}
}

// Track registers child for reaping. temp marks it as the bootstrap
// CC, exempting it from the "last non-temp gone" count per spec.md
// §3's CC invariant.
func (s *Supervisor) Track(child *Child, temp bool) {
	s.mu.Lock()
	s.entries[child.Pid] = &Entry{Child: child, Temp: temp}
	if !temp {
		s.nonTemp++
	}
	s.mu.Unlock()

	go s.waitAndReap(child)
}

func (s *Supervisor) waitAndReap(child *Child) {
	err := child.cmd.Wait()

	s.mu.Lock()
	entry, ok := s.entries[child.Pid]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.entries, child.Pid)
	lastNonTempGone := false
	if !entry.Temp {
		s.nonTemp--
		if s.nonTemp == 0 {
			lastNonTempGone = true
		}
	}
	onReaped := s.onReaped
	onLastGone := s.onLastNonTempGone
	s.mu.Unlock()

	if onReaped != nil {
		onReaped(child.Pid, entry, err)
	}
	if lastNonTempGone && onLastGone != nil {
		onLastGone()
	}
}

// Count returns the number of children currently tracked and the
// number of those that are non-temporary.
func (s *Supervisor) Count() (total, nonTemp int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), s.nonTemp
}

// Untrack removes child from tracking without waiting for it. Nothing
// in the module calls it: the one-shot `-V` child is never tracked and
// WaitBounded reaps it directly. It does not
// adjust nonTemp accounting retroactively — callers that Untrack are
// expected to reap the child themselves.
func (s *Supervisor) Untrack(pid int) {
	s.mu.Lock()
	delete(s.entries, pid)
	s.mu.Unlock()
}

// WaitBounded waits for child to exit, bounded by timeout (0 means no
// timeout, matching spec.md §5's `timeout=0` semantics). On timeout the
// child's process group is SIGKILLed and then block-waited so it is
// reliably reaped before returning.
//
// This is the Go equivalent of spec.md §4.2's waitpid_bounded: instead
// of polling a self-pipe with a millisecond deadline, it selects on a
// channel fed by a dedicated Wait() goroutine, which is the same
// reaping primitive Track uses.
func WaitBounded(ctx context.Context, child *Child, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- child.cmd.Wait() }()

	if timeout <= 0 {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return wtcerr.Wrap(wtcerr.IO, "waitpid_bounded", ctx.Err())
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		_ = child.Signal(unix.SIGKILL)
		<-done // block-wait, interrupt-safe: os/exec retries EINTR internally
		return wtcerr.New(wtcerr.Timeout, "waitpid_bounded")
	case <-ctx.Done():
		_ = child.Signal(unix.SIGKILL)
		<-done
		return wtcerr.Wrap(wtcerr.IO, "waitpid_bounded", ctx.Err())
	}
}
