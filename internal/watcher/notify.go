package watcher

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/conneroisu/marklive/internal/errors"
)

// NotifyDetector uses the operating system's file notification API.
//
// The parent directory is watched rather than the file itself: editors that
// save by writing a temporary file and renaming it over the original replace
// the inode, and a watch on the old inode would go silent.
type NotifyDetector struct {
	path  string
	fsw   *fsnotify.Watcher
	clock clockwork.Clock

	closeOnce sync.Once
	closeErr  error
}

// NewNotifyDetector starts an OS watch on path's directory.
func NewNotifyDetector(path string, clock clockwork.Clock) (*NotifyDetector, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewWatchError(errors.ErrCodeWatchUnavailable, "creating file watcher", err).WithPath(path)
	}

	clean := filepath.Clean(path)
	if err := fsw.Add(filepath.Dir(clean)); err != nil {
		_ = fsw.Close()
		return nil, errors.NewWatchError(errors.ErrCodeWatchUnavailable, "watching directory", err).WithPath(path)
	}

	return &NotifyDetector{path: clean, fsw: fsw, clock: clock}, nil
}

func (d *NotifyDetector) Name() string { return "notify" }

func (d *NotifyDetector) Run(ctx context.Context, out chan<- Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-d.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != d.path || event.Op == fsnotify.Chmod {
				continue
			}
			send(out, Change{Type: eventType(event.Op), Path: d.path, At: d.clock.Now()})
		case err, ok := <-d.fsw.Errors:
			if !ok {
				return nil
			}
			// Overflow means events were lost, not that the watch is dead.
			if stderrors.Is(err, fsnotify.ErrEventOverflow) {
				send(out, Change{Type: EventTypeModified, Path: d.path, At: d.clock.Now()})
				continue
			}
			return errors.NewWatchError(errors.ErrCodeWatchUnavailable, "file watcher failed", err).WithPath(d.path)
		}
	}
}

func (d *NotifyDetector) Close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.fsw.Close()
	})
	return d.closeErr
}

func eventType(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventTypeCreated
	case op.Has(fsnotify.Write):
		return EventTypeModified
	case op.Has(fsnotify.Remove):
		return EventTypeDeleted
	case op.Has(fsnotify.Rename):
		return EventTypeRenamed
	default:
		return EventTypeModified
	}
}
