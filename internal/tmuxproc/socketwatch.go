package tmuxproc

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// SocketWatcher watches a tmux socket directory so an externally
// issued `tmux kill-server` — which produces no SIGCHLD for our CCs
// beyond their own ordinary exit, but can race the supervisor's reap —
// is observed promptly. It feeds the same refresh-queueing path the
// SIGCHLD-equivalent reaper does, per SPEC_FULL.md §C.
type SocketWatcher struct {
	watcher *fsnotify.Watcher
	onEvent func()
	logger  *slog.Logger
	done    chan struct{}
}

// WatchSocketDir starts watching dir (typically Prefix.SocketDir())
// for socket create/remove/rename events, invoking onEvent on any of
// them. A missing directory (no tmux server has ever bound a socket
// there yet) is not an error — the watch is simply deferred to the
// next successful Connect.
func WatchSocketDir(dir string, onEvent func(), logger *slog.Logger) (*SocketWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		logger.Debug("socket directory not watchable yet", "dir", dir, "error", err)
	}

	sw := &SocketWatcher{watcher: w, onEvent: onEvent, logger: logger, done: make(chan struct{})}
	go sw.run()
	return sw, nil
}

func (sw *SocketWatcher) run() {
	for {
		select {
		case ev, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				sw.logger.Debug("tmux socket directory event", "name", ev.Name, "op", ev.Op.String())
				if sw.onEvent != nil {
					sw.onEvent()
				}
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Warn("socket watcher error", "error", err)
		case <-sw.done:
			return
		}
	}
}

// Close stops the watcher.
func (sw *SocketWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}
