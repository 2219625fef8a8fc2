package procio

import (
	"bytes"
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/loppo-llc/wtctmux/internal/ringbuf"
)

func pipeNonblock(t *testing.T) (r, w *os.File) {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe2: %v", err)
	}
	return os.NewFile(uintptr(fds[0]), "r"), os.NewFile(uintptr(fds[1]), "w")
}

func TestReadAvailableRawHeap(t *testing.T) {
	r, w := pipeNonblock(t)
	defer r.Close()
	w.Write([]byte("hello"))
	w.Close()

	var out []byte
	n, err := ReadAvailable(int(r.Fd()), Raw, HeapSink, &out, nil)
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}
	if n != 5 || string(out) != "hello" {
		t.Fatalf("n=%d out=%q", n, out)
	}
}

func TestReadAvailableCStringHeapSanitizesAndTerminates(t *testing.T) {
	r, w := pipeNonblock(t)
	defer r.Close()
	w.Write([]byte("a\x00b"))
	w.Close()

	var out []byte
	_, err := ReadAvailable(int(r.Fd()), CString, HeapSink, &out, nil)
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}
	want := []byte{'a', 1, 'b', 0}
	if !bytes.Equal(out, want) {
		t.Fatalf("out = %v, want %v", out, want)
	}
}

func TestReadAvailableDiscard(t *testing.T) {
	r, w := pipeNonblock(t)
	defer r.Close()
	w.Write([]byte("ignored"))
	w.Close()

	n, err := ReadAvailable(int(r.Fd()), Discard, HeapSink, &[]byte{}, nil)
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}
	if n != 7 {
		t.Fatalf("n = %d, want 7", n)
	}
}

func TestReadAvailableRingSinkAppendsNULPerCall(t *testing.T) {
	r1, w1 := pipeNonblock(t)
	w1.Write([]byte("foo"))
	w1.Close()

	ring := ringbuf.New(16)
	_, err := ReadAvailable(int(r1.Fd()), CString, RingSink, nil, ring)
	r1.Close()
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}

	r2, w2 := pipeNonblock(t)
	w2.Write([]byte("bar"))
	w2.Close()
	_, err = ReadAvailable(int(r2.Fd()), CString, RingSink, nil, ring)
	r2.Close()
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}

	want := []byte{'f', 'o', 'o', 0, 'b', 'a', 'r', 0}
	if !bytes.Equal(ring.Bytes(), want) {
		t.Fatalf("ring = %v, want %v", ring.Bytes(), want)
	}
}

func TestReadAvailableEmptyPipeNoError(t *testing.T) {
	r, w := pipeNonblock(t)
	defer r.Close()
	defer w.Close()

	var out []byte
	n, err := ReadAvailable(int(r.Fd()), Raw, HeapSink, &out, nil)
	if err != nil {
		t.Fatalf("ReadAvailable: %v", err)
	}
	if n != 0 {
		t.Fatalf("n = %d, want 0", n)
	}
}
