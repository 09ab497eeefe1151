// Package notify fans a content-free change signal out to every connected
// viewer.
//
// Each Subscription owns a small bounded mailbox. Publish never blocks: when
// a mailbox is full the oldest queued signal is dropped to make room for the
// newest one, so a slow viewer always ends up holding the latest version.
// A signal is only a "go re-fetch" hint; the artifact itself is read from the
// render cache, which always returns the most recent commit.
package notify

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Subscribe once the notifier has been closed.
var ErrClosed = errors.New("notifier closed")

// SignalKind tags a Signal.
type SignalKind int

const (
	// SignalChanged means a new artifact has been committed.
	SignalChanged SignalKind = iota
	// SignalClosed means the notifier is shutting down.
	SignalClosed
)

// String returns the string representation of the SignalKind
func (k SignalKind) String() string {
	switch k {
	case SignalChanged:
		return "changed"
	case SignalClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Signal is delivered to subscribers. Version is the artifact version that
// was committed when the signal was published.
type Signal struct {
	Kind    SignalKind
	Version uint64
}

// Delivery summarizes one Publish call.
type Delivery struct {
	Delivered int // signals enqueued without displacing anything
	Coalesced int // mailboxes that were full and had their oldest signal dropped
	Reaped    int // subscriptions found closed and unregistered
}

// Notifier is a single-topic broadcast with per-subscriber mailboxes.
type Notifier struct {
	mailbox int

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	closed bool

	nextID atomic.Uint64
}

// New creates a notifier whose subscriptions buffer up to mailbox signals.
func New(mailbox int) *Notifier {
	if mailbox < 1 {
		mailbox = 1
	}
	return &Notifier{
		mailbox: mailbox,
		subs:    make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new consumer.
func (n *Notifier) Subscribe() (*Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		id:       n.nextID.Add(1),
		ch:       make(chan Signal, n.mailbox),
		notifier: n,
	}
	n.subs[sub.id] = sub

	return sub, nil
}

// Publish delivers sig to every registered subscription. It runs in time
// proportional to the number of subscribers and never waits on any of them.
func (n *Notifier) Publish(sig Signal) Delivery {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return Delivery{}
	}
	subs := make([]*Subscription, 0, len(n.subs))
	for _, sub := range n.subs {
		subs = append(subs, sub)
	}
	n.mu.RUnlock()

	var delivery Delivery
	var dead []*Subscription

	for _, sub := range subs {
		switch sub.offer(sig) {
		case offerDelivered:
			delivery.Delivered++
		case offerCoalesced:
			delivery.Coalesced++
		case offerClosed:
			dead = append(dead, sub)
		}
	}

	if len(dead) > 0 {
		n.mu.Lock()
		for _, sub := range dead {
			if _, ok := n.subs[sub.id]; ok {
				delete(n.subs, sub.id)
				delivery.Reaped++
			}
		}
		n.mu.Unlock()
	}

	return delivery
}

// Len returns the number of registered subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close sends a best-effort SignalClosed to every subscription and then
// closes their mailboxes. Publish becomes a no-op and Subscribe fails.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	subs := n.subs
	n.subs = make(map[uint64]*Subscription)
	n.mu.Unlock()

	for _, sub := range subs {
		sub.offer(Signal{Kind: SignalClosed})
		sub.shut(false)
	}
}

func (n *Notifier) remove(id uint64) {
	n.mu.Lock()
	delete(n.subs, id)
	n.mu.Unlock()
}
