package ccproto

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// EncodeCommand serializes a command array as a single line of
// double-quoted tokens, per spec.md §4.6/§8 scenario 4: `"` becomes
// `\"` and a literal newline becomes the two-character escape `\n`.
// The result does not include the trailing line terminator; callers
// append it before writing to the CC's stdin.
func EncodeCommand(args []string) (string, error) {
	if args == nil {
		return "", wtcerr.New(wtcerr.Invalid, "cc_exec")
	}
	tokens := make([]string, len(args))
	for i, a := range args {
		esc := strings.ReplaceAll(a, `"`, `\"`)
		esc = strings.ReplaceAll(esc, "\n", `\n`)
		tokens[i] = `"` + esc + `"`
	}
	return strings.Join(tokens, " "), nil
}

// execState accumulates the single reply cc_exec is waiting for.
type execState struct {
	mu      sync.Mutex
	handled bool
	payload []byte
	isError bool
}

func (s *execState) onReply(payload []byte, isError bool, _ any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handled {
		return
	}
	s.payload = append(s.payload, payload...)
	s.isError = isError
	s.handled = true
}

// Exec implements cc_exec (spec.md §4.6): serializes cmds as a quoted
// command line, writes it to cc's stdin, installs a temporary
// pending-reply callback, and polls cc's stdout (via cc.Pump, which
// performs the non-blocking read-and-parse step) until a reply
// arrives, the CC hangs up, or timeout elapses. The previous pending
// callback is always restored before returning.
//
// Returns the reply payload. If the envelope terminated in %error,
// isError is true and the payload is the error text (per spec.md's
// "depending on the envelope's error flag" routing, modeled here as a
// single payload plus a flag rather than two separate buffers, since
// a given cc_exec call receives exactly one envelope, never both).
func Exec(cc *CC, args []string, timeout time.Duration) (payload []byte, isError bool, err error) {
	line, err := EncodeCommand(args)
	if err != nil {
		return nil, false, err
	}

	if err := writeAll(cc.StdinFd(), append([]byte(line), '\n')); err != nil {
		return nil, false, wtcerr.Wrap(wtcerr.IO, "cc_exec", err)
	}

	state := &execState{}
	prevCB, prevUser := cc.SetPending(state.onReply, nil)
	defer cc.RestorePending(prevCB, prevUser)

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		state.mu.Lock()
		handled := state.handled
		state.mu.Unlock()
		if handled {
			break
		}

		waitMS := -1
		if timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return nil, false, wtcerr.New(wtcerr.Timeout, "cc_exec")
			}
			waitMS = int(remaining / time.Millisecond)
			if waitMS < 1 {
				waitMS = 1
			}
		}

		ready, hup, perr := pollOnce(cc.StdoutFd(), waitMS)
		if perr != nil {
			return nil, false, wtcerr.Wrap(wtcerr.IO, "cc_exec", perr)
		}
		if hup {
			return nil, false, wtcerr.New(wtcerr.IO, "cc_exec")
		}
		if ready {
			if _, err := cc.Pump(); err != nil {
				return nil, false, err
			}
		}
	}

	state.mu.Lock()
	defer state.mu.Unlock()
	return state.payload, state.isError, nil
}

// writeAll writes the full buffer to fd, retrying on EINTR per
// spec.md §4.6's "EINTR-safe loop, fail on other write errors".
func writeAll(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

// pollOnce waits up to timeoutMS milliseconds (-1 = forever) for fd to
// become readable or hang up.
func pollOnce(fd int, timeoutMS int) (ready, hangup bool, err error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return false, false, err
		}
		if n == 0 {
			return false, false, nil
		}
		revents := fds[0].Revents
		return revents&unix.POLLIN != 0, revents&(unix.POLLHUP|unix.POLLERR) != 0, nil
	}
}
