package wtctmux

import (
	"log/slog"
	"time"

	"github.com/loppo-llc/wtctmux/internal/reload"
	"github.com/loppo-llc/wtctmux/internal/wtcconfig"
)

// TempSessionName is the reserved sentinel session name used for the
// bootstrap CC, per spec.md §6's "WTC_TMUX_TEMP_SESSION_NAME": a
// session observed with this exact name never fires NewSession.
const TempSessionName = "wtctmux-temp"

// DefaultTimeout is the ms ceiling for any bounded wait, per spec.md
// §6's config table.
const DefaultTimeout = 10000 * time.Millisecond

// DefaultWidth/DefaultHeight/MinDimension are the control CC
// viewport's default and floor size, per spec.md §6.
const (
	DefaultWidth  = 80
	DefaultHeight = 24
	MinDimension  = 10
)

// Config is the constructor-options struct New takes, mirroring the
// teacher's `server.Config{...}` idiom. Every field is optional;
// zero values fall back to the defaults spec.md §6 lists. Values set
// here are applied through the exact same setter path a TOML file's
// values take once LoadConfigFile has merged them into a Config, so
// Busy/Invalid validation is never bypassed.
type Config struct {
	Logger *slog.Logger

	BinFile    string
	SocketName string
	SocketPath string
	ConfigFile string

	// Timeout bounds cc_exec and one-shot exec waits. Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// Width/Height set the control CC viewport locked by
	// `refresh-client -C`. Zero means DefaultWidth/DefaultHeight; both
	// are clamped up to MinDimension.
	Width, Height int

	// Callbacks is the host's event registration (spec.md §6's
	// callback list), installed before Connect so no event can race
	// registration.
	Callbacks reload.Callbacks
}

func (c Config) dimensions() (w, h int) {
	w, h = c.Width, c.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if w < MinDimension {
		w = MinDimension
	}
	if h < MinDimension {
		h = MinDimension
	}
	return w, h
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// LoadConfigFile reads a TOML file via internal/wtcconfig and merges
// it into base (fields left zero in the file do not override base),
// per SPEC_FULL.md §B: "TOML-loaded values are applied through the
// exact same setter path... there is no parallel config-application
// code path" — the merge happens here, on the same Config struct New
// itself takes, so the setter calls inside New are identical either
// way.
func LoadConfigFile(path string, base Config) (Config, error) {
	f, err := wtcconfig.Load(path)
	if err != nil {
		return base, err
	}
	if f.BinFile != "" {
		base.BinFile = f.BinFile
	}
	if f.SocketName != "" {
		base.SocketName = f.SocketName
		base.SocketPath = ""
	}
	if f.SocketPath != "" {
		base.SocketPath = f.SocketPath
		base.SocketName = ""
	}
	if f.ConfigFile != "" {
		base.ConfigFile = f.ConfigFile
	}
	if t := f.Timeout(); t > 0 {
		base.Timeout = t
	}
	if f.Width > 0 {
		base.Width = f.Width
	}
	if f.Height > 0 {
		base.Height = f.Height
	}
	return base, nil
}
