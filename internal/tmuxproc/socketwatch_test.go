package tmuxproc

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchSocketDirFiresOnCreate(t *testing.T) {
	dir := t.TempDir()

	events := make(chan struct{}, 8)
	sw, err := WatchSocketDir(dir, func() {
		select {
		case events <- struct{}{}:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("WatchSocketDir: %v", err)
	}
	defer sw.Close()

	sockPath := filepath.Join(dir, "default")
	if err := os.WriteFile(sockPath, []byte{}, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for socket directory create event")
	}
}

func TestWatchSocketDirMissingDirIsNotFatal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "does-not-exist-yet")
	sw, err := WatchSocketDir(dir, func() {}, nil)
	if err != nil {
		t.Fatalf("WatchSocketDir on missing dir should not error: %v", err)
	}
	sw.Close()
}
