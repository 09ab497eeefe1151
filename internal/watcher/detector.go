package watcher

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/logging"
)

// Change is one observed modification of the target file.
type Change struct {
	Type EventType
	Path string
	At   time.Time
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// Detector observes a single file and reports changes to it.
//
// Run blocks until ctx is cancelled or Close is called, in which case it
// returns nil. A non-nil error means the detector stopped working and the
// caller should fall back to another one.
type Detector interface {
	Name() string
	Run(ctx context.Context, out chan<- Change) error
	Close() error
}

// SelectOptions configure detector construction.
type SelectOptions struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Logger       logging.Logger
}

// wslInterop exists only under the Windows Subsystem for Linux, where
// inotify does not see writes made from the Windows side.
const wslInterop = "/proc/sys/fs/binfmt_misc/WSLInterop"

var probeWSL = func() bool {
	_, err := os.Stat(wslInterop)
	return err == nil
}

// ResolveMode names the detector Select starts with for mode: auto becomes
// poll under WSL and notify elsewhere. A later fallback to polling is not
// predicted here.
func ResolveMode(mode string) (string, error) {
	switch mode {
	case config.WatchModePoll, config.WatchModeNotify:
		return mode, nil
	case config.WatchModeAuto, "":
		if probeWSL() {
			return config.WatchModePoll, nil
		}
		return config.WatchModeNotify, nil
	default:
		return "", fmt.Errorf("unknown watch mode %q", mode)
	}
}

// Select builds the detector for mode. In auto mode native notification is
// used unless the platform is known to drop events or the OS watch cannot
// be created; both notify and auto fall back to polling when the native
// watcher fails to start.
func Select(mode, path string, opts SelectOptions) (Detector, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	ctx := context.Background()

	poll := func() Detector {
		return NewPollDetector(path, opts.PollInterval, opts.Clock)
	}

	resolved, err := ResolveMode(mode)
	if err != nil {
		return nil, err
	}
	if resolved == config.WatchModePoll {
		if mode != config.WatchModePoll {
			logger.Debug(ctx, "WSL detected, polling for changes", "path", path)
		}
		return poll(), nil
	}

	detector, err := NewNotifyDetector(path, opts.Clock)
	if err != nil {
		logger.Warn(ctx, err, "native file notification unavailable, polling instead", "path", path)
		return poll(), nil
	}

	return detector, nil
}

// send forwards c without blocking. A full channel already holds a pending
// change for the same file, so dropping c loses nothing.
func send(out chan<- Change, c Change) {
	select {
	case out <- c:
	default:
	}
}
