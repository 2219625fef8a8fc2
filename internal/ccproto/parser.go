package ccproto

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/loppo-llc/wtctmux/internal/ringbuf"
	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// guard is the three-integer key that must match across a %begin and
// its terminating %end|%error, per spec.md §4.5/GLOSSARY.
type guard struct {
	t, n, flags int64
}

// Parser consumes a CC's ring buffer byte-by-byte-identified lines,
// recognizing reply envelopes and server-event notifications.
//
// Grounded on 1f7905f5_tchow-twistedxcom-agent-deck's controlpipe.go
// reader() state machine (begin/capture/end-or-error dispatch, the
// "%output must not fall through to capture collection" invariant) and
// 20228a04_gastownhall-tmux-adapter's control.go readLoop (guard-number
// matching via the second %begin/%end field, cmdsSeen-style startup
// reply handling — generalized here into CC.compensate).
type Parser struct {
	inEnvelope   bool
	wantGuard    guard
	payloadStart int // ring offset where payload begins
	scanOffset   int // ring offset of next unexamined byte
}

// NewParser returns a Parser ready to consume a freshly launched CC's
// ring from the start.
func NewParser() *Parser { return &Parser{} }

// notificationEffects maps a notification's first whitespace-delimited
// token to the refresh flag(s) it sets, per spec.md §4.5's table. Zero
// flags means "consume the line, no refresh".
var notificationEffects = map[string]Flags{
	"%client-session-changed":  FlagClients,
	"%layout-change":           FlagPanes,
	"%pane-mode-changed":       FlagPanes,
	"%window-pane-changed":     FlagPanes,
	"%sessions-changed":        FlagSessions,
	"%session-window-changed":  FlagWindows,
	"%window-add":              FlagWindows,
	"%window-close":            FlagWindows,
	"%unlinked-window-add":     FlagWindows,
	"%unlinked-window-close":   FlagWindows,
	"%output":                  0,
	"%session-changed":         0,
	"%session-renamed":         0,
	"%unlinked-window-renamed": 0,
	"%window-renamed":          0,
	"%exit":                    0,
	"%end":                     0, // stray %end with no matching %begin
}

// Drain repeatedly identifies and consumes lines from cc.Ring until
// the ring is empty or identification needs more bytes than are
// available. Returns the accumulated refresh flags from any
// notifications recognized this call.
func (p *Parser) Drain(cc *CC) (Flags, error) {
	var acc Flags
	for {
		flags, progressed, err := p.step(cc)
		if err != nil {
			return acc, err
		}
		acc |= flags
		if !progressed {
			return acc, nil
		}
	}
}

// step performs one identify-and-consume cycle. progressed is false
// when the ring holds no complete line to act on ("need more").
func (p *Parser) step(cc *CC) (flags Flags, progressed bool, err error) {
	r := cc.Ring

	if p.inEnvelope {
		return p.stepEnvelope(cc, r)
	}
	return p.stepTopLevel(cc, r)
}

func (p *Parser) stepTopLevel(cc *CC, r *ringbuf.Ring) (Flags, bool, error) {
	idx := r.IndexByte(0, '\n')
	if idx < 0 {
		return 0, false, nil
	}
	// Pump's CString+RingSink read leaves a NUL separator in the ring
	// after every read. Interior NULs are already rewritten to 0x01, so
	// a 0 byte is only ever that separator and is not part of the line.
	line := bytes.ReplaceAll(r.PeekAt(0, idx), []byte{0}, nil)
	lineLen := idx + 1

	switch {
	case bytes.HasPrefix(line, []byte("%begin ")):
		g, ok := parseGuard(line, len("%begin "))
		if !ok {
			cc.logger.Warn("malformed %begin line, skipping", "line", string(line))
			r.Pop(lineLen)
			return 0, true, nil
		}
		p.inEnvelope = true
		p.wantGuard = g
		p.payloadStart = lineLen
		p.scanOffset = lineLen
		return 0, true, nil

	case bytes.HasPrefix(line, []byte("%")):
		token := firstToken(line)
		flags, known := notificationEffects[token]
		if !known {
			cc.logger.Debug("unrecognized control-mode notification, skipping", "line", string(line))
		}
		r.Pop(lineLen)
		return flags, true, nil

	default:
		// Non-% leading byte at top level is a protocol violation:
		// spec.md §4.5 "an unrecognized leading non-% byte fails with
		// Invalid". Left unpopped for diagnostics; the caller is
		// expected to treat this CC as unusable.
		return 0, false, wtcerr.New(wtcerr.Invalid, "control_mode_parse")
	}
}

func (p *Parser) stepEnvelope(cc *CC, r *ringbuf.Ring) (Flags, bool, error) {
	idx := r.IndexByte(p.scanOffset, '\n')
	if idx < 0 {
		return 0, false, nil
	}
	// NUL read separators are dropped, as in stepTopLevel.
	line := bytes.ReplaceAll(r.PeekAt(p.scanOffset, idx-p.scanOffset), []byte{0}, nil)
	lineLen := idx - p.scanOffset + 1

	isEnd := bytes.HasPrefix(line, []byte("%end "))
	isError := bytes.HasPrefix(line, []byte("%error "))

	if isEnd || isError {
		prefixLen := len("%end ")
		if isError {
			prefixLen = len("%error ")
		}
		g, ok := parseGuard(line, prefixLen)
		if ok && g == p.wantGuard {
			payloadLen := p.scanOffset - p.payloadStart
			payload := r.PeekAt(p.payloadStart, payloadLen)
			// Copy without the NUL read separators: PeekAt may alias
			// ring storage that Pop below invalidates.
			payloadCopy := bytes.ReplaceAll(payload, []byte{0}, nil)

			total := idx + 1 // whole span from ring head through this line
			r.Pop(total)

			p.inEnvelope = false
			p.scanOffset = 0
			p.payloadStart = 0

			cc.dispatchReply(payloadCopy, isError)
			return 0, true, nil
		}
		// Guard mismatch: per spec.md §8, not reported to the caller;
		// keep scanning for the real terminator. Falls through to the
		// "ordinary payload line" advance below.
	}

	p.scanOffset += lineLen
	return 0, true, nil
}

// firstToken returns the leading whitespace-delimited token of line.
func firstToken(line []byte) string {
	i := bytes.IndexByte(line, ' ')
	if i < 0 {
		return string(line)
	}
	return string(line[:i])
}

// parseGuard extracts the three integer guard fields following prefix
// in line, e.g. "1700000000 42 1" from "%begin 1700000000 42 1".
func parseGuard(line []byte, prefixLen int) (guard, bool) {
	if prefixLen > len(line) {
		return guard{}, false
	}
	fields := strings.Fields(string(line[prefixLen:]))
	if len(fields) < 3 {
		return guard{}, false
	}
	t, err1 := strconv.ParseInt(fields[0], 10, 64)
	n, err2 := strconv.ParseInt(fields[1], 10, 64)
	f, err3 := strconv.ParseInt(fields[2], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return guard{}, false
	}
	return guard{t: t, n: n, flags: f}, true
}
