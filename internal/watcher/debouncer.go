package watcher

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Debouncer groups rapid file changes together. Every Add restarts the
// delay; when it expires the pending burst is emitted once on C.
type Debouncer struct {
	delay   time.Duration
	clock   clockwork.Clock
	output  chan []Change
	timer   clockwork.Timer
	pending []Change
	stopped bool
	mutex   sync.Mutex
}

// NewDebouncer creates a debouncer. A zero delay emits every change as its
// own burst.
func NewDebouncer(delay time.Duration, clock clockwork.Clock) *Debouncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Debouncer{
		delay:  delay,
		clock:  clock,
		output: make(chan []Change, 1),
	}
}

// C delivers debounced bursts. At most one burst is buffered; further
// bursts are merged into it until it is received.
func (d *Debouncer) C() <-chan []Change {
	return d.output
}

// Add records a change and restarts the delay.
func (d *Debouncer) Add(c Change) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}

	d.pending = append(d.pending, c)

	if d.delay <= 0 {
		d.flushLocked()
		return
	}

	if d.timer == nil {
		d.timer = d.clock.AfterFunc(d.delay, d.flush)
		return
	}
	d.timer.Reset(d.delay)
}

// Stop cancels any pending burst.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.flushLocked()
}

func (d *Debouncer) flushLocked() {
	if d.stopped || len(d.pending) == 0 {
		return
	}

	burst := d.pending
	d.pending = nil

	select {
	case d.output <- burst:
	default:
		// A burst is already waiting; fold this one into it.
		select {
		case queued := <-d.output:
			d.output <- append(queued, burst...)
		default:
			d.output <- burst
		}
	}
}
