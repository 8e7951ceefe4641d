package server

import (
	"sync"

	"github.com/google/uuid"

	"gochat/models"
)

// subscriberBuffer bounds the per-subscriber queue; a subscriber that
// cannot drain in time loses messages rather than stalling the publisher.
const subscriberBuffer = 64

type subscriber struct {
	roomID int64
	ch     chan models.Message
}

// Broker fans saved messages out to SSE subscribers. Publish never blocks.
type Broker struct {
	mu          sync.Mutex
	subscribers map[string]subscriber
	closed      bool
}

func NewBroker() *Broker {
	return &Broker{subscribers: make(map[string]subscriber)}
}

// Subscribe registers interest in one room. The returned channel is closed
// by Unsubscribe or CloseAll.
func (b *Broker) Subscribe(roomID int64) (string, <-chan models.Message) {
	ch := make(chan models.Message, subscriberBuffer)
	id := uuid.NewString()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subscribers[id] = subscriber{roomID: roomID, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call
// for an id that is already gone.
func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// Publish delivers msg to every subscriber of its room, dropping it for
// subscribers whose buffer is full.
func (b *Broker) Publish(msg models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subscribers {
		if sub.roomID != msg.RoomID {
			continue
		}
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// CloseAll closes every subscriber channel and rejects new subscriptions.
func (b *Broker) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// SubscriberCount reports the number of live subscribers, used by tests.
func (b *Broker) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
