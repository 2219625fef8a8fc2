package wtctmux

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/ccproto"
	"github.com/loppo-llc/wtctmux/internal/tmuxproc"
	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

const sessionsRefreshFlag = ccproto.FlagSessions

// launchTemp is cc_launch(nil): starts the bootstrap session.
func (c *Core) launchTemp() error {
	return c.launchCC("")
}

// launchSession is cc_launch(session) as reload.Dispatcher's LaunchCC
// hook: a freshly observed session must have its CC attached before
// the NewSession closure reaches the host callback (spec.md §4.9/§8
// scenario 2).
func (c *Core) launchSession(sessionID int) error {
	return c.launchCC(fmt.Sprintf("$%d", sessionID))
}

// launchCC implements spec.md §4.4's cc_launch(session?): attaches to
// target (new-session -s <temp> when target is ""), constructs the CC
// with refcount 2, tracks it with the supervisor, issues the
// compensated refresh-client size lock, and applies the closing rule
// (kill any existing temp CC before inserting a real one).
func (c *Core) launchCC(target string) error {
	temp := target == ""

	var argv []string
	if temp {
		argv = c.prefix.Argv("-C", "new-session", "-s", TempSessionName)
	} else {
		argv = c.prefix.Argv("-C", "attach-session", "-t", target)
	}

	child, err := tmuxproc.Launch(argv, true, true, false)
	if err != nil {
		return wtcerr.Wrap(wtcerr.IO, "cc_launch", err)
	}

	cc := ccproto.New(child, target, temp, c.logger)

	c.mu.Lock()
	var existingTemp *ccproto.CC
	if !temp {
		existingTemp = c.tempCC
	}
	c.ccs[child.Pid] = cc
	if temp {
		c.tempCC = cc
	}
	c.mu.Unlock()

	c.supervisor.Track(child, temp)

	if _, _, err := ccproto.Exec(cc, []string{"refresh-client", "-C", fmt.Sprintf("%d,%d", c.width, c.height)}, c.timeout); err != nil {
		c.logger.Debug("initial refresh-client failed", "cc", cc.DebugID, "error", err)
	}

	// Closing rule (spec.md §4.4): before inserting a new
	// session-attached CC into a non-empty list, cull any existing
	// temp CC with kill-session.
	if existingTemp != nil {
		if _, _, err := ccproto.Exec(existingTemp, []string{"kill-session", "-t", TempSessionName}, c.timeout); err != nil {
			c.logger.Debug("temp session cull failed", "error", err)
		}
		c.mu.Lock()
		if c.tempCC == existingTemp {
			c.tempCC = nil
		}
		c.mu.Unlock()
	}

	c.requestWake()
	return nil
}

// onChildReaped unlinks a reaped CC from the list and unrefs it
// (dropping the event-source half of its refcount), per spec.md §3's
// "unlinked on SIGCHLD" CC lifetime rule.
func (c *Core) onChildReaped(pid int, entry *tmuxproc.Entry, waitErr error) {
	c.mu.Lock()
	cc, ok := c.ccs[pid]
	if ok {
		delete(c.ccs, pid)
		if c.tempCC == cc {
			c.tempCC = nil
		}
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	if waitErr != nil {
		c.logger.Debug("cc exited", "cc", cc.DebugID, "error", waitErr)
	}
	cc.Unref()
	c.coord.QueueRefresh(sessionsRefreshFlag)
	c.requestWake()
}

// onLastNonTempGone queues a Sessions refresh when the last
// non-temporary CC disappears, matching spec.md §4.2's supervisor
// contract.
func (c *Core) onLastNonTempGone() {
	c.coord.QueueRefresh(sessionsRefreshFlag)
	c.requestWake()
}

// eventLoop is the façade's single-threaded cooperative event loop
// (spec.md §5): it polls every live CC's stdout fd, pumps readable
// ones, accumulates refresh flags, and runs a coordinator pass when
// any are pending. A short poll timeout doubles as the wake/stop
// check interval in place of the source's self-pipe.
func (c *Core) eventLoop() {
	defer close(c.loopDone)

	const tickMS = 200

	for {
		select {
		case <-c.stopLoop:
			return
		default:
		}

		c.mu.Lock()
		ccs := make([]*ccproto.CC, 0, len(c.ccs))
		for _, cc := range c.ccs {
			ccs = append(ccs, cc)
		}
		c.mu.Unlock()

		if len(ccs) == 0 {
			select {
			case <-c.stopLoop:
				return
			case <-c.wake:
			case <-time.After(tickMS * time.Millisecond):
			}
			continue
		}

		fds := make([]unix.PollFd, len(ccs))
		for i, cc := range ccs {
			fds[i] = unix.PollFd{Fd: int32(cc.StdoutFd()), Events: unix.POLLIN}
		}

		n, err := unix.Poll(fds, tickMS)
		if err != nil && err != unix.EINTR {
			c.logger.Error("event loop poll failed", "error", err)
		}

		if n > 0 {
			var flags ccproto.Flags
			for i, pfd := range fds {
				if pfd.Revents&unix.POLLIN == 0 {
					continue
				}
				f, perr := ccs[i].Pump()
				if perr != nil {
					c.logger.Debug("cc pump failed", "cc", ccs[i].DebugID, "error", perr)
					continue
				}
				flags |= f
			}
			c.coord.QueueRefresh(flags)
		}

		if c.coord.Pending() != 0 {
			if err := c.coord.RunPass(); err != nil {
				c.logger.Error("refresh pass failed", "error", err)
			}
		}

		select {
		case <-c.wake:
		default:
		}
	}
}
