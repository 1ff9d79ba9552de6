// Package memorybus diffuse les événements du site (notifications, chat,
// maintenance...) aux abonnés du même process, typiquement les flux SSE.
package memorybus

import (
	"sync"

	"github.com/yemenflix/yflix/internal/ports"
)

const subscriberBuffer = 64

type Bus struct {
	mu      sync.Mutex
	subs    map[chan ports.Event]struct{}
	alive   bool
	dropped uint64
}

func New() *Bus {
	return &Bus{subs: make(map[chan ports.Event]struct{}), alive: true}
}

func (b *Bus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	evt := ports.Event{Topic: topic, Payload: payload}
	for ch := range b.subs {
		select {
		case ch <- evt:
		default:
			// client trop lent: on jette
			b.dropped++
		}
	}
}

func (b *Bus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event, subscriberBuffer)
	b.mu.Lock()
	if !b.alive {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close ferme tous les abonnements; les Publish suivants sont ignorés.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.alive {
		return
	}
	b.alive = false
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
