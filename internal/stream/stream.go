// Package stream turns a viewer's change-signal subscription into the
// endless event sequence pushed over /events (Server-Sent Events) and /ws
// (WebSocket).
package stream

import (
	"context"
	"iter"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/logging"
	"github.com/conneroisu/marklive/internal/notify"
)

// EventKind tags an Event.
type EventKind int

const (
	// EventReload tells the viewer to re-fetch the document.
	EventReload EventKind = iota
	// EventHeartbeat keeps an idle connection open. It never reloads.
	EventHeartbeat
)

// String returns the string representation of the EventKind
func (k EventKind) String() string {
	switch k {
	case EventReload:
		return "reload"
	case EventHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}

// Event is one item of a viewer's stream. Version is set for reloads.
type Event struct {
	Kind    EventKind
	Version uint64
}

// Options configure a Multiplexer.
type Options struct {
	// Heartbeat is the idle time after which a heartbeat is emitted.
	Heartbeat time.Duration
	Clock     clockwork.Clock
	Logger    logging.Logger
	// AllowedOrigins are extra host[:port] values accepted for WebSocket
	// upgrades besides the request's own host.
	AllowedOrigins []string
}

// Multiplexer adapts notifier subscriptions to per-connection streams.
type Multiplexer struct {
	notifier       *notify.Notifier
	heartbeat      time.Duration
	clock          clockwork.Clock
	logger         logging.Logger
	allowedOrigins []string
}

// New creates a Multiplexer over n.
func New(n *notify.Notifier, opts Options) *Multiplexer {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = config.DefaultHeartbeat
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	return &Multiplexer{
		notifier:       n,
		heartbeat:      opts.Heartbeat,
		clock:          opts.Clock,
		logger:         opts.Logger.WithComponent("stream"),
		allowedOrigins: opts.AllowedOrigins,
	}
}

// Events subscribes and returns the viewer's event sequence together with a
// release function. The sequence ends when ctx is done, the consumer stops
// iterating, or the notifier closes; the subscription is released when it
// ends. Call release if the sequence may never be ranged over; it is safe
// to call more than once.
//
// Signals queued while the consumer was busy collapse into one reload
// carrying the newest version. The heartbeat timer restarts after every
// emitted event.
func (m *Multiplexer) Events(ctx context.Context) (iter.Seq[Event], func(), error) {
	sub, err := m.notifier.Subscribe()
	if err != nil {
		return nil, nil, err
	}

	seq := func(yield func(Event) bool) {
		defer sub.Close()

		timer := m.clock.NewTimer(m.heartbeat)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case sig, open := <-sub.C():
				if !open {
					return
				}
				latest, open := sub.Drain(sig)
				if latest.Kind == notify.SignalClosed {
					return
				}
				if !yield(Event{Kind: EventReload, Version: latest.Version}) || !open {
					return
				}

			case <-timer.Chan():
				if !yield(Event{Kind: EventHeartbeat}) {
					return
				}
			}

			timer.Reset(m.heartbeat)
		}
	}

	return seq, sub.Close, nil
}
