package tmuxproc

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// procAttr puts each launched tmux in its own process group so signals
// (bounded-wait SIGKILL, supervisor cleanup) target it precisely.
func procAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

func osSignal(sig unix.Signal) os.Signal {
	return syscall.Signal(sig)
}
