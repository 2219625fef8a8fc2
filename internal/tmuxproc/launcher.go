package tmuxproc

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// Child is the result of Launch: the spawned tmux process plus
// whichever parent-side pipe ends the caller requested.
type Child struct {
	Pid int

	// InFd/OutFd/ErrFd are parent-side write/read file descriptors,
	// non-blocking, or -1 if the corresponding stream was not
	// requested. Callers read/write these with unix.Read/unix.Write
	// (or internal/procio.ReadAvailable) rather than through the
	// wrapping *os.File's buffered methods.
	InFd, OutFd, ErrFd int

	cmd *exec.Cmd

	inFile, outFile, errFile    *os.File // parent-side ends, kept for Close
	inChildEnd, outChildEnd, errChildEnd *os.File
}

// Wait blocks until the child exits and returns its exit status. The
// bounded-wait helper and the supervisor's per-child reaping goroutine
// call the same underlying cmd.Wait directly.
func (c *Child) Wait() error { return c.cmd.Wait() }

// Close releases the parent-side pipe ends this Child holds open.
func (c *Child) Close() {
	if c.inFile != nil {
		c.inFile.Close()
	}
	if c.outFile != nil {
		c.outFile.Close()
	}
	if c.errFile != nil {
		c.errFile.Close()
	}
}

// Launch forks and execs tmux with the given fully-assembled argv
// (already including the Prefix), wiring up the requested combination
// of stdin/stdout/stderr pipes. Parent-side read (and write, for
// stdin) ends are set non-blocking after Start, matching spec.md
// §4.2's fork_tmux contract. A close failure on the child-side pipe
// end after a successful fork does not invalidate the returned Child.
func Launch(argv []string, wantIn, wantOut, wantErr bool) (*Child, error) {
	if len(argv) == 0 {
		return nil, wtcerr.New(wtcerr.Invalid, "fork_tmux")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	// Each launched tmux gets its own process group so the supervisor
	// and bounded-wait helper can signal it (and only it) without
	// disturbing unrelated children.
	cmd.SysProcAttr = procAttr()

	child := &Child{InFd: -1, OutFd: -1, ErrFd: -1, cmd: cmd}

	if wantIn {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		cmd.Stdin = r
		child.inFile = w
		child.inChildEnd = r
	}
	if wantOut {
		r, w, err := os.Pipe()
		if err != nil {
			child.closeChildEnds()
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		cmd.Stdout = w
		child.outFile = r
		child.outChildEnd = w
	}
	if wantErr {
		r, w, err := os.Pipe()
		if err != nil {
			child.closeChildEnds()
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		cmd.Stderr = w
		child.errFile = r
		child.errChildEnd = w
	}

	if err := cmd.Start(); err != nil {
		child.Close()
		child.closeChildEnds()
		return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
	}

	// Child-side ends are now owned by the exec'd process; close our
	// copies. Close errors here are ignored and do not invalidate pid.
	child.closeChildEnds()

	if wantIn {
		if err := unix.SetNonblock(int(child.inFile.Fd()), true); err != nil {
			child.Close()
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		child.InFd = int(child.inFile.Fd())
	}
	if wantOut {
		if err := unix.SetNonblock(int(child.outFile.Fd()), true); err != nil {
			child.Close()
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		child.OutFd = int(child.outFile.Fd())
	}
	if wantErr {
		if err := unix.SetNonblock(int(child.errFile.Fd()), true); err != nil {
			child.Close()
			return nil, wtcerr.Wrap(wtcerr.IO, "fork_tmux", err)
		}
		child.ErrFd = int(child.errFile.Fd())
	}

	child.Pid = cmd.Process.Pid
	return child, nil
}

func (c *Child) closeChildEnds() {
	if c.inChildEnd != nil {
		c.inChildEnd.Close()
		c.inChildEnd = nil
	}
	if c.outChildEnd != nil {
		c.outChildEnd.Close()
		c.outChildEnd = nil
	}
	if c.errChildEnd != nil {
		c.errChildEnd.Close()
		c.errChildEnd = nil
	}
}

// Signal sends sig to the child's process group, falling back to the
// lone process if the group lookup fails (e.g. already reaped).
func (c *Child) Signal(sig unix.Signal) error {
	pgid, err := unix.Getpgid(c.Pid)
	if err != nil {
		if perr := c.cmd.Process.Signal(osSignal(sig)); perr != nil {
			return fmt.Errorf("tmuxproc: signal pid %d: %w", c.Pid, perr)
		}
		return nil
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		return fmt.Errorf("tmuxproc: signal pgid %d: %w", pgid, err)
	}
	return nil
}
