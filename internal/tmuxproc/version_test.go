package tmuxproc

import (
	"errors"
	"testing"

	"github.com/loppo-llc/wtctmux/internal/wtcerr"
)

func TestParseVersionOutput(t *testing.T) {
	prog, ver, err := ParseVersionOutput("tmux 3.3a\n")
	if err != nil {
		t.Fatalf("ParseVersionOutput: %v", err)
	}
	if prog != "tmux" || ver != "3.3a" {
		t.Fatalf("got %q %q", prog, ver)
	}
}

func TestParseVersionOutputMalformed(t *testing.T) {
	if _, _, err := ParseVersionOutput("garbage"); err == nil {
		t.Fatal("expected error for malformed version output")
	}
}

func TestCompareVersionFixesDottedOrdering(t *testing.T) {
	// atof(2.10) == 2.1 < atof(2.4) == 2.4 is the bug spec.md §9 flags.
	// A correct dotted-integer comparison must say 2.10 > 2.4.
	if CompareVersion("2.10", "2.4") != 1 {
		t.Fatal("2.10 should compare greater than 2.4")
	}
	if CompareVersion("2.4", "2.10") != -1 {
		t.Fatal("2.4 should compare less than 2.10")
	}
	if CompareVersion("3.3a", "3.3") != 0 {
		t.Fatal("suffix letters should not affect numeric comparison")
	}
}

func TestCheckVersionGate(t *testing.T) {
	if err := CheckVersion("master"); err != nil {
		t.Fatalf("master should always pass: %v", err)
	}
	if err := CheckVersion("3.3a"); err != nil {
		t.Fatalf("3.3a should pass: %v", err)
	}
	err := CheckVersion("2.3")
	if err == nil {
		t.Fatal("expected VersionTooOld for 2.3")
	}
	var werr *wtcerr.Error
	if !errors.As(err, &werr) || werr.Code != wtcerr.VersionTooOld {
		t.Fatalf("expected VersionTooOld code, got %v", err)
	}
	if err := CheckVersion("2.4"); err == nil {
		t.Fatal("2.4 is not newer than 2.4, expected VersionTooOld")
	}
}
