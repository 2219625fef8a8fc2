// Package wtcconfig loads a wtctmux.Config from a TOML file, per
// SPEC_FULL.md §B: "so cmd/wtctmuxctl can read
// ~/.config/wtctmux/config.toml the way a real compositor integration
// would ship a static config instead of calling setters." Decoded
// values are applied through the façade's own setter path — there is
// no parallel config-application code, only a parallel config-reading
// one — grounded on xcawolfe-amzn-gastown's
// `toml.DecodeFile(path, &struct{...})` usage in
// internal/config/hooks_test.go.
package wtcconfig

import (
	"time"

	"github.com/BurntSushi/toml"
)

// File is the on-disk shape of a wtctmux config.toml, mirroring
// wtctmux.Config's fields one-for-one (minus Logger and Callbacks,
// which have no file representation).
type File struct {
	BinFile    string `toml:"bin_file"`
	SocketName string `toml:"socket_name"`
	SocketPath string `toml:"socket_path"`
	ConfigFile string `toml:"config"`

	TimeoutMS int `toml:"timeout_ms"`

	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// Load decodes path into a File.
func Load(path string) (File, error) {
	var f File
	_, err := toml.DecodeFile(path, &f)
	return f, err
}

// Timeout returns the decoded timeout as a time.Duration, or zero if
// unset (the caller's Config.timeout() then falls back to the
// default).
func (f File) Timeout() time.Duration {
	if f.TimeoutMS <= 0 {
		return 0
	}
	return time.Duration(f.TimeoutMS) * time.Millisecond
}
