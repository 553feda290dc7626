package service

import "sync"

// Event represents a preset or source mutation.
type Event struct {
	Resource string // "presets"
	Action   string // "created", "updated", "deleted", "imported"
	ID       string
}

type subscription struct {
	resources map[string]bool
}

// EventBus is a simple fan-out pub/sub for resource change events.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]subscription
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]subscription)}
}

// Publish sends an event to matching subscribers (non-blocking).
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, sub := range b.subs {
		if len(sub.resources) > 0 && !sub.resources[e.Resource] {
			continue
		}
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel receiving events for the given
// resources, or for every resource when none is given.
func (b *EventBus) Subscribe(resources ...string) chan Event {
	sub := subscription{}
	if len(resources) > 0 {
		sub.resources = make(map[string]bool, len(resources))
		for _, r := range resources {
			sub.resources[r] = true
		}
	}
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = sub
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
