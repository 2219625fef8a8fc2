package ringbuf

import (
	"bytes"
	"testing"
)

func TestPushPop(t *testing.T) {
	r := New(8)
	r.Push([]byte("hello"))
	if r.Len() != 5 {
		t.Fatalf("len = %d, want 5", r.Len())
	}
	if got := r.Bytes(); !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("bytes = %q", got)
	}
	r.Pop(2)
	if got := r.Bytes(); !bytes.Equal(got, []byte("llo")) {
		t.Fatalf("bytes after pop = %q", got)
	}
}

func TestWrapAround(t *testing.T) {
	// New rounds the capacity up to 64. Fill to offset 62, pop up to
	// offset 60, then push 4 bytes: "gh" lands at 62,63 and "ij" wraps
	// to 0,1.
	r := New(8)
	r.Push(append(bytes.Repeat([]byte("."), 60), "ef"...))
	r.Pop(60)
	r.Push([]byte("ghij"))
	want := "efghij"
	if got := string(r.Bytes()); got != want {
		t.Fatalf("bytes = %q, want %q", got, want)
	}
}

func TestGrow(t *testing.T) {
	r := New(8)
	data := bytes.Repeat([]byte("x"), 100)
	r.Push(data)
	if r.Len() != 100 {
		t.Fatalf("len = %d, want 100", r.Len())
	}
	if r.Cap() < 100 {
		t.Fatalf("cap = %d, want >= 100", r.Cap())
	}
	if !bytes.Equal(r.Bytes(), data) {
		t.Fatal("data corrupted across grow")
	}
}

func TestPeekTwoSegments(t *testing.T) {
	// New rounds the capacity up to 64. After the pop head=60, tail=62,
	// size=2; pushing "XYZ" writes X,Y at 62,63 and wraps Z to 0 ->
	// size=5, split as "fgXY" + "Z".
	r := New(8)
	r.Push(append(bytes.Repeat([]byte("."), 60), "fg"...))
	r.Pop(60)
	r.Push([]byte("XYZ"))
	a, b := r.Peek()
	if len(b) == 0 {
		t.Fatalf("peek returned one segment %q, want two", a)
	}
	full := append(append([]byte{}, a...), b...)
	if string(full) != "fgXYZ" {
		t.Fatalf("peek segments = %q, want %q", full, "fgXYZ")
	}
}

func TestIndexByteAndPeekAt(t *testing.T) {
	r := New(8)
	r.Push([]byte("foo\nbar\n"))
	idx := r.IndexByte(0, '\n')
	if idx != 3 {
		t.Fatalf("IndexByte = %d, want 3", idx)
	}
	line := r.PeekAt(0, idx)
	if string(line) != "foo" {
		t.Fatalf("PeekAt = %q, want %q", line, "foo")
	}
	r.Pop(idx + 1)
	idx2 := r.IndexByte(0, '\n')
	if idx2 != 3 {
		t.Fatalf("IndexByte after pop = %d, want 3", idx2)
	}
}

func TestEmptyPeek(t *testing.T) {
	r := New(8)
	a, b := r.Peek()
	if a != nil || b != nil {
		t.Fatal("expected nil, nil on empty ring")
	}
}
