package tmuxproc

import (
	"strconv"
	"strings"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

// MinVersion is the minimum supported dotted tmux version per spec.md
// §6: the server must be newer than this, or report the literal
// version string "master".
const MinVersion = "2.4"

// MasterVersion is the literal version string tmux reports when built
// from its unreleased development branch; always accepted.
const MasterVersion = "master"

// ParseVersionOutput splits tmux -V output ("tmux 2.3") into program
// and version, per spec.md §6's assumed "<program> <version>" shape.
func ParseVersionOutput(out string) (program, version string, err error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) < 2 {
		return "", "", wtcerr.New(wtcerr.Invalid, "parse_version")
	}
	return fields[0], fields[1], nil
}

// CompareVersion compares two dotted-integer version strings
// component-wise, returning -1, 0, or 1.
//
// The original source compared versions with atof(), which misorders
// e.g. "2.10" against "2.4" (parsed as the floats 2.1 and 2.4). This
// implementation fixes that latent bug per spec.md §9 by comparing
// each dot-separated component as an integer instead.
func CompareVersion(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = atoiLenient(as[i])
		}
		if i < len(bs) {
			bv = atoiLenient(bs[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// atoiLenient parses a version component's leading digits, stopping at
// the first non-digit (tmux sometimes suffixes versions, e.g. "3.3a").
// Unparseable components are treated as 0.
func atoiLenient(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// CheckVersion returns nil if version satisfies spec.md §6's gate
// (newer than MinVersion, or the literal MasterVersion), else a
// *wtcerr.Error with Code VersionTooOld.
func CheckVersion(version string) error {
	if version == MasterVersion {
		return nil
	}
	if CompareVersion(version, MinVersion) > 0 {
		return nil
	}
	return wtcerr.New(wtcerr.VersionTooOld, "connect")
}
