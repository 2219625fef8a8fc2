package tmuxproc

import (
	"reflect"
	"testing"
)

func TestPrefixArgvDefaults(t *testing.T) {
	p := NewPrefix()
	_ = p.SetBinary("/usr/local/bin/tmux")
	got := p.Argv("list-sessions", "-F", "#{session_id}")
	want := []string{"/usr/local/bin/tmux", "list-sessions", "-F", "#{session_id}"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Argv = %v, want %v", got, want)
	}
}

func TestPrefixSocketNamePathMutuallyExclusive(t *testing.T) {
	p := NewPrefix()
	_ = p.SetSocketName("mysock")
	_ = p.SetSocketPath("/tmp/other.sock")
	got := p.Argv("-V")
	want := []string{defaultBinary, "-S", "/tmp/other.sock", "-V"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Argv = %v, want %v", got, want)
	}

	_ = p.SetSocketName("backagain")
	got = p.Argv("-V")
	want = []string{defaultBinary, "-L", "backagain", "-V"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Argv = %v, want %v", got, want)
	}
}

func TestPrefixSettersFailWhenConnected(t *testing.T) {
	p := NewPrefix()
	p.SetConnected(true)
	if err := p.SetBinary("/x"); err == nil {
		t.Fatal("expected Busy error while connected")
	}
	if err := p.SetSocketName("x"); err == nil {
		t.Fatal("expected Busy error while connected")
	}
	if err := p.SetConfig("/x"); err == nil {
		t.Fatal("expected Busy error while connected")
	}
}

func TestPrefixConfigFlag(t *testing.T) {
	p := NewPrefix()
	_ = p.SetConfig("/etc/wtctmux.conf")
	got := p.Argv("new-session", "-s", "work")
	want := []string{defaultBinary, "-f", "/etc/wtctmux.conf", "new-session", "-s", "work"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Argv = %v, want %v", got, want)
	}
}
