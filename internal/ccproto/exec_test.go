package ccproto

import (
	"strings"
	"testing"
	"time"

	"github.com/loppo-llc/wtctmux/internal/tmuxproc"
)

// fakeControlModeScript stands in for `tmux -C ...`: it immediately
// emits the attach-handshake reply (consumed via CC.compensate), then
// for every line written to its stdin echoes it back inside a
// numbered %begin/%end envelope. This lets the exec/parser stack be
// tested without a real tmux installation, in the teacher's own
// fake-process testing style (a tiny shell stand-in invoked instead of
// the real binary).
const fakeControlModeScript = `
echo "%begin 0 0 0"
echo "%end 0 0 0"
i=1
while IFS= read -r line; do
  echo "%begin $i $i 1"
  echo "$line"
  echo "%end $i $i 1"
  i=$((i+1))
done
`

func launchFakeCC(t *testing.T) *CC {
	t.Helper()
	child, err := tmuxproc.Launch([]string{"/bin/sh", "-c", fakeControlModeScript}, true, true, false)
	if err != nil {
		t.Fatalf("Launch fake control mode: %v", err)
	}
	return New(child, "", true, nil)
}

func TestExecRoundTripDiscardsCompensateReply(t *testing.T) {
	cc := launchFakeCC(t)
	defer cc.Child().Close()

	payload, isError, err := Exec(cc, []string{"display-message", "-p", "hi"}, 3*time.Second)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if isError {
		t.Fatal("expected success envelope")
	}
	got := string(payload)
	if !strings.Contains(got, `"display-message" "-p" "hi"`) {
		t.Fatalf("payload = %q, want echoed quoted command", got)
	}
}

func TestExecEncodesQuotesAndNewlines(t *testing.T) {
	line, err := EncodeCommand([]string{"display-message", "-p", "a \"b\" c\nd"})
	if err != nil {
		t.Fatalf("EncodeCommand: %v", err)
	}
	want := `"display-message" "-p" "a \"b\" c\nd"`
	if line != want {
		t.Fatalf("EncodeCommand = %q, want %q", line, want)
	}
}

func TestExecEncodeNilIsInvalid(t *testing.T) {
	if _, err := EncodeCommand(nil); err == nil {
		t.Fatal("expected Invalid error for nil args")
	}
}

func TestExecSecondCallGetsItsOwnEnvelope(t *testing.T) {
	cc := launchFakeCC(t)
	defer cc.Child().Close()

	if _, _, err := Exec(cc, []string{"first"}, 3*time.Second); err != nil {
		t.Fatalf("Exec 1: %v", err)
	}
	payload, _, err := Exec(cc, []string{"second"}, 3*time.Second)
	if err != nil {
		t.Fatalf("Exec 2: %v", err)
	}
	if !strings.Contains(string(payload), `"second"`) {
		t.Fatalf("payload = %q, want echoed second command only", payload)
	}
}
