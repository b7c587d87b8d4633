package stream

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/appetiteclub/apt"
)

// Notifier fans change notifications out to connected clients. Each
// subscriber gets a tick channel with a single-slot buffer: ticks carry
// no payload, so back-to-back changes coalesce and a client that has not
// drained yet simply re-projects once. A subscriber is never blocked on,
// and unsubscribing releases its channel.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[string]chan struct{}
	logger      apt.Logger
}

func NewNotifier(logger apt.Logger) *Notifier {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Notifier{
		subscribers: make(map[string]chan struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new client and returns its id and tick channel.
func (n *Notifier) Subscribe() (string, <-chan struct{}) {
	id := newSubscriberID()
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	n.subscribers[id] = ch
	n.mu.Unlock()

	n.logger.Debug("stream subscriber added", "subscriber_id", id)
	return id, ch
}

// Unsubscribe removes a client. Must be called on disconnect so no
// channel is leaked.
func (n *Notifier) Unsubscribe(id string) {
	n.mu.Lock()
	ch, ok := n.subscribers[id]
	if ok {
		delete(n.subscribers, id)
	}
	n.mu.Unlock()

	if ok {
		close(ch)
		n.logger.Debug("stream subscriber removed", "subscriber_id", id)
	}
}

// Broadcast notifies every subscriber. Ticks for subscribers that
// already have one pending are dropped rather than queued.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, ch := range n.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// SubscriberCount reports the number of connected clients.
func (n *Notifier) SubscriberCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

func newSubscriberID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
