package ccproto

import (
	"log/slog"
	"testing"

	"github.com/loppo-llc/wtctmux/internal/ringbuf"
)

// newTestCC builds a CC with no real child process, for parser tests
// that only exercise Ring + dispatchReply, never StdinFd/StdoutFd.
func newTestCC() *CC {
	return &CC{
		Ring:       ringbuf.New(256),
		parser:     NewParser(),
		compensate: false,
		logger:     slog.Default(),
	}
}

func TestParserEnvelopeDispatchesPayload(t *testing.T) {
	cc := newTestCC()
	cc.Ring.Push([]byte("%begin 1700000000 1 1\n"))
	cc.Ring.Push([]byte("line one\n"))
	cc.Ring.Push([]byte("line two\n"))
	cc.Ring.Push([]byte("%end 1700000000 1 1\n"))

	var got []byte
	var gotErr bool
	cc.pending = func(payload []byte, isError bool, _ any) {
		got = payload
		gotErr = isError
	}

	flags, err := cc.parser.Drain(cc)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if flags != 0 {
		t.Fatalf("flags = %v, want 0", flags)
	}
	if gotErr {
		t.Fatal("expected isError = false")
	}
	want := "line one\nline two\n"
	if string(got) != want {
		t.Fatalf("payload = %q, want %q", got, want)
	}
	if cc.Ring.Len() != 0 {
		t.Fatalf("ring not fully consumed, len=%d", cc.Ring.Len())
	}
}

func TestParserErrorEnvelope(t *testing.T) {
	cc := newTestCC()
	cc.Ring.Push([]byte("%begin 5 2 1\nbad command\n%error 5 2 1\n"))

	var gotErr bool
	cc.pending = func(payload []byte, isError bool, _ any) {
		gotErr = isError
	}
	if _, err := cc.parser.Drain(cc); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if !gotErr {
		t.Fatal("expected isError = true")
	}
}

func TestParserMismatchedGuardSkipsUntilRealMatch(t *testing.T) {
	cc := newTestCC()
	// A "middle" %begin with different guards inside the envelope is
	// unknown output, per spec.md §8.
	cc.Ring.Push([]byte("%begin 1 1 1\n"))
	cc.Ring.Push([]byte("%begin 2 2 1\n")) // nested, mismatched -> payload
	cc.Ring.Push([]byte("%end 2 2 1\n"))   // mismatched terminator -> payload
	cc.Ring.Push([]byte("real line\n"))
	cc.Ring.Push([]byte("%end 1 1 1\n")) // the real terminator

	var got []byte
	cc.pending = func(payload []byte, isError bool, _ any) { got = payload }

	if _, err := cc.parser.Drain(cc); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	want := "%begin 2 2 1\n%end 2 2 1\nreal line\n"
	if string(got) != want {
		t.Fatalf("payload = %q, want %q", got, want)
	}
}

func TestParserNotificationFlags(t *testing.T) {
	cases := []struct {
		line string
		want Flags
	}{
		{"%sessions-changed\n", FlagSessions},
		{"%layout-change @1\n", FlagPanes},
		{"%client-session-changed client\n", FlagClients},
		{"%window-add @2\n", FlagWindows},
		{"%output %1 abc\n", 0},
		{"%exit\n", 0},
	}
	for _, tc := range cases {
		cc := newTestCC()
		cc.Ring.Push([]byte(tc.line))
		flags, err := cc.parser.Drain(cc)
		if err != nil {
			t.Fatalf("Drain(%q): %v", tc.line, err)
		}
		if flags != tc.want {
			t.Fatalf("Drain(%q) flags = %v, want %v", tc.line, flags, tc.want)
		}
		if cc.Ring.Len() != 0 {
			t.Fatalf("Drain(%q) left %d bytes unconsumed", tc.line, cc.Ring.Len())
		}
	}
}

func TestParserUnrecognizedNotificationConsumedForForwardProgress(t *testing.T) {
	cc := newTestCC()
	cc.Ring.Push([]byte("%some-future-notification arg\n"))
	flags, err := cc.parser.Drain(cc)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if flags != 0 {
		t.Fatalf("flags = %v, want 0", flags)
	}
	if cc.Ring.Len() != 0 {
		t.Fatal("unrecognized notification should still be consumed")
	}
}

func TestParserNeedsMoreReturnsNoProgress(t *testing.T) {
	cc := newTestCC()
	cc.Ring.Push([]byte("%begin 1 1 1\nincomplete"))
	flags, err := cc.parser.Drain(cc)
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if flags != 0 {
		t.Fatal("expected no flags from incomplete envelope")
	}
	if cc.Ring.Len() == 0 {
		t.Fatal("expected unconsumed partial data to remain in ring")
	}
}

func TestParserInvalidLeadingByte(t *testing.T) {
	cc := newTestCC()
	cc.Ring.Push([]byte("not a control line\n"))
	_, err := cc.parser.Drain(cc)
	if err == nil {
		t.Fatal("expected Invalid error for non-% leading byte")
	}
}
