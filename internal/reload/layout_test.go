package reload

import (
	"reflect"
	"testing"
)

type leaf struct{ id, x, y, w, h int }

func collectLeaves(t *testing.T, s string) []leaf {
	t.Helper()
	var got []leaf
	if err := ParseLayout(s, func(id, x, y, w, h int) {
		got = append(got, leaf{id, x, y, w, h})
	}); err != nil {
		t.Fatalf("ParseLayout(%q): %v", s, err)
	}
	return got
}

func TestParseLayoutSinglePane(t *testing.T) {
	got := collectLeaves(t, "911e,80x24,0,0,0")
	want := []leaf{{0, 0, 0, 80, 24}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseLayoutHorizontalSplit(t *testing.T) {
	// Two panes stacked vertically within a {} container.
	got := collectLeaves(t, "abcd,80x24,0,0{80x12,0,0,0,80x11,0,13,1}")
	want := []leaf{
		{0, 0, 0, 80, 12},
		{1, 0, 13, 80, 11},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseLayoutNestedContainers(t *testing.T) {
	got := collectLeaves(t, "c1a2,211x56,0,0{105x56,0,0,0,105x56,106,0[105x28,106,0,1,105x27,106,29,2]}")
	want := []leaf{
		{0, 0, 0, 105, 56},
		{1, 106, 0, 105, 28},
		{2, 106, 29, 105, 27},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseLayoutMalformedMissingChecksum(t *testing.T) {
	if err := ParseLayout("911e", func(int, int, int, int, int) {}); err == nil {
		t.Fatal("expected error for missing checksum separator")
	}
}

func TestParseLayoutTrailingSegmentAfterLeafIgnored(t *testing.T) {
	if err := ParseLayout("911e,80x24,0,0,0,extra", func(int, int, int, int, int) {}); err != nil {
		// A trailing comma segment after a leaf's pane_id is not part
		// of this grammar; ParseLayout only ever looks at one node at
		// the top level, so this should still succeed by construction
		// (the parser simply stops after the leaf). This test only
		// documents that expectation.
		t.Fatalf("unexpected error: %v", err)
	}
}
