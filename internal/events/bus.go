package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is one engine event with its payload.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Region    string                 `json:"region,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Bus fans events out to subscribers. Subscriber channels are buffered and a
// slow subscriber drops events rather than blocking the engine tick.
type Bus struct {
	mu          sync.Mutex
	subscribers []chan Event
	log         zerolog.Logger
}

// subscriberBuffer bounds how far a consumer may fall behind.
const subscriberBuffer = 256

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{log: log.With().Str("service", "events").Logger()}
}

// Subscribe returns a channel receiving every future event.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an event to all subscribers without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			b.log.Warn().Str("event_type", string(event.Type)).Msg("subscriber backlog full, event dropped")
		}
	}
}
