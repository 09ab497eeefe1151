package watcher

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/zeebo/blake3"

	"github.com/conneroisu/marklive/internal/errors"
)

// PollDetector stats the file on a fixed interval. A change in modification
// time or size triggers a content hash, and only a different hash (or the
// file appearing or disappearing) is reported, so touching a file without
// editing it does not cause a reload.
type PollDetector struct {
	path     string
	interval time.Duration
	clock    clockwork.Clock

	done      chan struct{}
	closeOnce sync.Once
}

type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
	sum     [32]byte
}

// NewPollDetector creates a detector polling path every interval.
func NewPollDetector(path string, interval time.Duration, clock clockwork.Clock) *PollDetector {
	return &PollDetector{
		path:     path,
		interval: interval,
		clock:    clock,
		done:     make(chan struct{}),
	}
}

func (d *PollDetector) Name() string { return "poll" }

func (d *PollDetector) Run(ctx context.Context, out chan<- Change) error {
	state, err := d.snapshot(fileState{})
	if err != nil {
		return errors.NewWatchError(errors.ErrCodeWatchUnavailable, "polling unavailable", err).WithPath(d.path)
	}

	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.done:
			return nil
		case <-ticker.Chan():
			next, err := d.snapshot(state)
			if err != nil {
				// Stat errors other than a missing file are retried next tick
				continue
			}
			if c, changed := compare(state, next); changed {
				c.Path = d.path
				c.At = d.clock.Now()
				send(out, c)
			}
			state = next
		}
	}
}

func (d *PollDetector) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return nil
}

// snapshot returns the file's current state, reusing prev's hash when the
// metadata has not moved.
func (d *PollDetector) snapshot(prev fileState) (fileState, error) {
	info, err := os.Stat(d.path)
	if os.IsNotExist(err) {
		return fileState{}, nil
	}
	if err != nil {
		return prev, err
	}

	next := fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
	if prev.exists && prev.modTime.Equal(next.modTime) && prev.size == next.size {
		next.sum = prev.sum
		return next, nil
	}

	sum, err := hashFile(d.path)
	if err != nil {
		// Mid-save; keep the old metadata so the next tick hashes again.
		return prev, nil
	}
	next.sum = sum
	return next, nil
}

func compare(prev, next fileState) (Change, bool) {
	switch {
	case !prev.exists && next.exists:
		return Change{Type: EventTypeCreated}, true
	case prev.exists && !next.exists:
		return Change{Type: EventTypeDeleted}, true
	case next.exists && prev.sum != next.sum:
		return Change{Type: EventTypeModified}, true
	default:
		return Change{}, false
	}
}

func hashFile(path string) ([32]byte, error) {
	var sum [32]byte

	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
