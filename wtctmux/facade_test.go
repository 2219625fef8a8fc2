package wtctmux

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDimensionDefaultsAndClamp(t *testing.T) {
	w, h := Config{}.dimensions()
	if w != DefaultWidth || h != DefaultHeight {
		t.Fatalf("defaults = %dx%d, want %dx%d", w, h, DefaultWidth, DefaultHeight)
	}
	w, h = Config{Width: 1, Height: 1}.dimensions()
	if w != MinDimension || h != MinDimension {
		t.Fatalf("clamped = %dx%d, want >= %d", w, h, MinDimension)
	}
}

func TestConfigTimeoutDefault(t *testing.T) {
	if (Config{}).timeout() != DefaultTimeout {
		t.Fatalf("timeout() = %v, want %v", Config{}.timeout(), DefaultTimeout)
	}
	if (Config{Timeout: 5 * time.Second}).timeout() != 5*time.Second {
		t.Fatal("explicit timeout not honored")
	}
}

// fakeTmuxScript stands in for the real tmux binary across both code
// paths Connect exercises: `-V` (the version gate) and `-C ...` (a
// control-mode session, echoing each written line back inside a
// numbered envelope), in the same fake-process style as
// internal/ccproto/exec_test.go's fakeControlModeScript.
const fakeTmuxScript = `#!/bin/sh
if [ "$1" = "-V" ]; then
  echo "tmux 3.2"
  exit 0
fi
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

func writeFakeTmux(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tmux")
	if err := os.WriteFile(path, []byte(fakeTmuxScript), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestConnectDisconnectAgainstFakeTmux(t *testing.T) {
	core := New(Config{})
	if err := core.SetBinary(writeFakeTmux(t)); err != nil {
		t.Fatalf("SetBinary: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := core.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	core.mu.Lock()
	ccCount := len(core.ccs)
	core.mu.Unlock()
	if ccCount != 1 {
		t.Fatalf("cc count = %d, want 1 (temp CC)", ccCount)
	}

	if err := core.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	// Disconnect is idempotent.
	if err := core.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}

func TestConnectRejectsOldVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tmux")
	script := "#!/bin/sh\necho 'tmux 2.3'\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	core := New(Config{})
	if err := core.SetBinary(path); err != nil {
		t.Fatalf("SetBinary: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := core.Connect(ctx)
	if err == nil {
		core.Disconnect()
		t.Fatal("expected VersionTooOld error")
	}
	var wtcErr *Error
	if !asError(err, &wtcErr) || wtcErr.Code != VersionTooOld {
		t.Fatalf("err = %v, want Code=VersionTooOld", err)
	}
}

// asError is a tiny errors.As wrapper kept local to avoid importing
// "errors" into the non-test facade files just for this assertion.
func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
