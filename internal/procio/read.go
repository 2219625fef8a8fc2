// Package procio implements the non-blocking descriptor-draining helper
// that a control-mode CC's Pump uses to fill its ring. The façade's
// one-shot `tmux -V` read does not use it.
package procio

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/ringbuf"
)

// Framing selects how bytes read from the descriptor are transformed
// before landing in the sink.
type Framing int

const (
	// Discard reads and drops the bytes; used when a parallel FIFO or
	// ring is the real data source and this descriptor must merely be
	// kept drained (e.g. the self-pipe, or an attach PTY whose output
	// is not the record of truth).
	Discard Framing = iota
	// Raw copies bytes verbatim.
	Raw
	// CString sanitizes interior NUL bytes to 0x01 and terminates the
	// accumulated payload with a single trailing NUL.
	CString
)

// Sink selects the destination buffer kind.
type Sink int

const (
	// HeapSink replaces *out, extending any existing prefix already
	// present in the slice passed by the caller.
	HeapSink Sink = iota
	// RingSink appends to a ringbuf.Ring.
	RingSink
)

const readChunk = 64 * 1024

// ReadAvailable drains fd until EAGAIN/EWOULDBLOCK (success) or a fatal
// error, applying the given framing and writing into the given sink.
//
// For HeapSink, out must be non-nil; *out is extended in place and
// returned via the same pointer. For RingSink, ring must be non-nil.
//
// In CString+HeapSink mode a single terminating NUL is appended exactly
// once, at the end of this call, regardless of how many chunks were
// read. In CString+RingSink mode every call appends its own trailing
// NUL separator, since each call's bytes are a discrete unit (e.g. one
// %output notification's raw text) that must remain distinguishable in
// the ring once combined with adjacent calls' output.
//
// Returns the number of bytes read (post-sanitization, pre-NUL) and an
// error following spec.md §7's classification: nil on EAGAIN-terminated
// success, or a non-nil error wrapping the errno on any other failure.
func ReadAvailable(fd int, framing Framing, sink Sink, out *[]byte, ring *ringbuf.Ring) (int, error) {
	if sink == HeapSink && out == nil {
		return 0, errors.New("procio: HeapSink requires non-nil out")
	}
	if sink == RingSink && ring == nil {
		return 0, errors.New("procio: RingSink requires non-nil ring")
	}

	var total int
	buf := make([]byte, readChunk)

	for {
		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			return total, fmt.Errorf("procio: read: %w", err)
		}
		if n == 0 {
			// EOF: hangup, treated as a clean stop of this drain call.
			break
		}

		chunk := buf[:n]
		if framing == Discard {
			total += n
			continue
		}
		if framing == CString {
			chunk = sanitizeNUL(chunk)
		}

		switch sink {
		case HeapSink:
			*out = append(*out, chunk...)
		case RingSink:
			ring.Push(chunk)
		}
		total += n
	}

	if framing == CString {
		switch sink {
		case HeapSink:
			*out = appendNULOnce(*out)
		case RingSink:
			ring.Push([]byte{0})
		}
	}

	return total, nil
}

// sanitizeNUL rewrites interior 0x00 bytes to 0x01 so a later single
// trailing NUL unambiguously terminates the payload.
func sanitizeNUL(p []byte) []byte {
	hasNUL := false
	for _, b := range p {
		if b == 0 {
			hasNUL = true
			break
		}
	}
	if !hasNUL {
		return p
	}
	out := make([]byte, len(p))
	for i, b := range p {
		if b == 0 {
			out[i] = 1
		} else {
			out[i] = b
		}
	}
	return out
}

// appendNULOnce appends a trailing NUL unless the slice already ends
// with one, which happens only when the caller's existing prefix ends
// in a NUL and this ReadAvailable call read no new bytes.
func appendNULOnce(p []byte) []byte {
	if len(p) > 0 && p[len(p)-1] == 0 {
		return p
	}
	return append(p, 0)
}
