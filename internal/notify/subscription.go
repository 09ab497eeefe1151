package notify

import "sync"

type offerResult int

const (
	offerDelivered offerResult = iota
	offerCoalesced
	offerClosed
)

// Subscription is one viewer's registration. Receive from C until it is
// closed; call Close when the viewer goes away.
type Subscription struct {
	id       uint64
	ch       chan Signal
	notifier *Notifier

	// mu orders sends against close so offer never sends on a closed channel.
	mu     sync.Mutex
	closed bool
}

// ID returns the subscription's identifier, unique per notifier.
func (s *Subscription) ID() uint64 {
	return s.id
}

// C returns the mailbox. It is closed when the subscription or the notifier
// is closed.
func (s *Subscription) C() <-chan Signal {
	return s.ch
}

// Drain empties the mailbox without blocking and returns the newest signal
// among first and whatever was queued behind it. A SignalClosed wins over
// any change signal. ok is false if the mailbox was closed while draining.
func (s *Subscription) Drain(first Signal) (latest Signal, ok bool) {
	latest = first
	for {
		select {
		case sig, open := <-s.ch:
			if !open {
				return latest, false
			}
			if latest.Kind == SignalClosed {
				continue
			}
			if sig.Kind == SignalClosed || sig.Version >= latest.Version {
				latest = sig
			}
		default:
			return latest, true
		}
	}
}

// Close unregisters the subscription and closes its mailbox. Signals still
// queued are discarded, so a receive after Close reports the mailbox closed.
// It is safe to call more than once and concurrently with Publish.
func (s *Subscription) Close() {
	s.shut(true)
	s.notifier.remove(s.id)
}

// shut closes the mailbox. With discard unset, queued signals stay readable
// until the consumer reaches the close.
func (s *Subscription) shut(discard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if discard {
		for len(s.ch) > 0 {
			<-s.ch
		}
	}
	close(s.ch)
}

func (s *Subscription) offer(sig Signal) offerResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return offerClosed
	}

	select {
	case s.ch <- sig:
		return offerDelivered
	default:
	}

	// Mailbox full: drop the oldest signal. The consumer may have taken one
	// in the meantime, in which case nothing is dropped.
	select {
	case <-s.ch:
	default:
	}

	select {
	case s.ch <- sig:
	default:
	}
	return offerCoalesced
}
