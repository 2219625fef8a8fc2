// Package tmuxproc builds tmux argv, launches and reaps tmux child
// processes, and compares tmux version strings.
package tmuxproc

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// defaultBinary is the platform tmux path used when no binary is set.
var defaultBinary = func() string {
	if runtime.GOOS == "darwin" {
		return "/opt/homebrew/bin/tmux"
	}
	return "/usr/bin/tmux"
}()

// Prefix holds the fixed argv prefix shared by every invocation of a
// connect cycle: the binary path, the mutually-exclusive socket
// selector, and an optional config file.
type Prefix struct {
	mu sync.Mutex

	binary     string
	socketName string
	socketPath string
	config     string

	connected bool
}

// NewPrefix returns a Prefix with the platform-default binary path.
func NewPrefix() *Prefix {
	bin := defaultBinary
	if runtime.GOOS == "darwin" {
		bin = "/opt/homebrew/bin/tmux"
	}
	return &Prefix{binary: bin}
}

// SetConnected marks the prefix as locked against further setter calls,
// mirroring spec.md §4.1's "Busy while connected" rule. Called by the
// façade on successful connect/disconnect.
func (p *Prefix) SetConnected(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = v
}

func (p *Prefix) checkNotConnected(op string) error {
	if p.connected {
		return wtcerr.New(wtcerr.Busy, op)
	}
	return nil
}

// SetBinary sets the tmux executable path. Empty string restores the
// platform default at connect time.
func (p *Prefix) SetBinary(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkNotConnected("set_binary"); err != nil {
		return err
	}
	p.binary = path
	return nil
}

// SetSocketName sets -L name, clearing any socket path per spec.md
// §4.1's mutual-exclusion rule.
func (p *Prefix) SetSocketName(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkNotConnected("set_socket_name"); err != nil {
		return err
	}
	p.socketName = name
	p.socketPath = ""
	return nil
}

// SetSocketPath sets -S path, clearing any socket name.
func (p *Prefix) SetSocketPath(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkNotConnected("set_socket_path"); err != nil {
		return err
	}
	p.socketPath = path
	p.socketName = ""
	return nil
}

// SetConfig sets the -f config file path.
func (p *Prefix) SetConfig(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkNotConnected("set_config"); err != nil {
		return err
	}
	p.config = path
	return nil
}

// Binary returns the configured (or default) tmux binary path.
func (p *Prefix) Binary() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.binary == "" {
		return defaultBinary
	}
	return p.binary
}

// Argv composes the final argv for one invocation: the fixed prefix
// followed by the caller-supplied args.
func (p *Prefix) Argv(args ...string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	bin := p.binary
	if bin == "" {
		bin = defaultBinary
	}
	out := make([]string, 0, len(args)+5)
	out = append(out, bin)
	switch {
	case p.socketName != "":
		out = append(out, "-L", p.socketName)
	case p.socketPath != "":
		out = append(out, "-S", p.socketPath)
	}
	if p.config != "" {
		out = append(out, "-f", p.config)
	}
	out = append(out, args...)
	return out
}

// SocketDir returns the directory holding this prefix's tmux socket,
// for SocketWatcher to fsnotify.Add. tmux's own default layout is
// "$TMUX_TMPDIR-or-/tmp/tmux-<uid>/<socket_name-or-default>"; an
// explicit -S path's directory is used verbatim when set.
func (p *Prefix) SocketDir() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.socketPath != "" {
		return filepath.Dir(p.socketPath)
	}
	base := os.Getenv("TMUX_TMPDIR")
	if base == "" {
		base = "/tmp"
	}
	return filepath.Join(base, fmt.Sprintf("tmux-%d", os.Getuid()))
}
