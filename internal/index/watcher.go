package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay is how long the watcher waits after the last event on the data
// file before reporting a change. Editors and atomic saves emit bursts.
const settleDelay = 150 * time.Millisecond

// Change kinds passed to EventCallback.
const (
	ChangeWritten = "written"
	ChangeRemoved = "removed"
)

// EventCallback is called once a burst of changes to the data file settles.
// kind is ChangeWritten or ChangeRemoved.
type EventCallback func(kind string)

// Watch starts an fsnotify watcher on the directory holding path and reports
// changes to that one file until ctx is cancelled. The directory is watched
// rather than the file so that atomic replacements (rename over the target)
// are seen.
func Watch(ctx context.Context, path string, logger *slog.Logger, cb EventCallback) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", path))

	var (
		settleTimer *time.Timer
		settleCh    <-chan time.Time
		pending     string
	)
	schedule := func(kind string) {
		pending = kind
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			logger.Debug("watcher: data file changed", slog.String("op", pending))
			if cb != nil {
				cb(pending)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(ChangeWritten)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				schedule(ChangeRemoved)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
