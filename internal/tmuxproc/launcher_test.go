package tmuxproc

import (
	"bytes"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/procio"
)

func TestLaunchCapturesStdout(t *testing.T) {
	child, err := Launch([]string{"/bin/sh", "-c", "echo hello"}, false, true, false)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer child.Close()

	var out []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(out) == 0 && time.Now().Before(deadline) {
		if _, err := procio.ReadAvailable(child.OutFd, procio.Raw, procio.HeapSink, &out, nil); err != nil {
			t.Fatalf("ReadAvailable: %v", err)
		}
		if len(out) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if err := child.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !bytes.Equal(out, []byte("hello\n")) {
		t.Fatalf("out = %q, want %q", out, "hello\n")
	}
}

func TestLaunchWritesStdin(t *testing.T) {
	child, err := Launch([]string{"/bin/sh", "-c", "cat"}, true, true, false)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	defer child.Close()

	if _, err := unix.Write(child.InFd, []byte("ping\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	child.inFile.Close()
	child.InFd = -1

	var out []byte
	deadline := time.Now().Add(2 * time.Second)
	for len(out) == 0 && time.Now().Before(deadline) {
		procio.ReadAvailable(child.OutFd, procio.Raw, procio.HeapSink, &out, nil)
		if len(out) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	child.Wait()
	if !bytes.Equal(out, []byte("ping\n")) {
		t.Fatalf("out = %q, want %q", out, "ping\n")
	}
}

func TestLaunchInvalidArgs(t *testing.T) {
	if _, err := Launch(nil, false, false, false); err == nil {
		t.Fatal("expected error for nil argv")
	}
}
