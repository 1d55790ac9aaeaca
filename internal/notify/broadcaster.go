// Package notify fans job-state snapshots out to live observers.
package notify

import (
	"sync"

	"github.com/kiranshivaraju/regexrelay/pkg/models"
)

// subscriptionBuffer is the per-observer channel capacity. An observer that
// falls this far behind loses events rather than slowing down publishers.
const subscriptionBuffer = 16

// Subscription is one observer's handle. Events arrive on Events until
// Unsubscribe closes it.
type Subscription struct {
	ch chan models.Job
}

// Events returns the channel job snapshots are delivered on. The channel is
// closed when the subscription is removed.
func (s *Subscription) Events() <-chan models.Job {
	return s.ch
}

// Broadcaster delivers job snapshots to currently subscribed observers.
// Delivery is best-effort and fire-and-forget: there is no acknowledgment,
// no retry, and no replay for observers that join later. The zero value is
// not usable; call NewBroadcaster.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new observer and returns its handle.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan models.Job, subscriptionBuffer)}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes the observer and closes its channel. Subsequent
// publishes do not target it. Unsubscribing twice is a no-op.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish sends the job snapshot to every observer subscribed at call time.
// Sends never block: an observer with a full buffer misses this event without
// affecting the others. Holding the read lock for the duration of the sends
// keeps Unsubscribe from closing a channel mid-publish.
func (b *Broadcaster) Publish(job models.Job) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		select {
		case sub.ch <- job:
		default:
		}
	}
}

// SubscriberCount returns the number of currently registered observers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
