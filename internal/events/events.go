package events

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	TopicMemories = "memories"

	TypeMemoryCreated = "memory.created"
	TypeMemoryDeleted = "memory.deleted"
)

type Event struct {
	Topic    string         `json:"topic"`
	Seq      int64          `json:"seq"`
	Type     string         `json:"type"`
	Ts       string         `json:"ts"`
	MemoryID string         `json:"memory_id,omitempty"`
	Payload  map[string]any `json:"payload"`
}

// Broker fans events out to per-topic subscribers. Slow subscribers miss
// events rather than block publishers.
type Broker struct {
	mu          sync.RWMutex
	seq         atomic.Int64
	subscribers map[string]map[chan Event]struct{}
}

func NormalizeType(eventType string) string {
	return strings.TrimSpace(strings.ToLower(eventType))
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan Event]struct{}{},
	}
}

// Subscribe returns a channel that is closed once ctx is done.
func (b *Broker) Subscribe(ctx context.Context, topic string) <-chan Event {
	ch := make(chan Event, 16)

	b.mu.Lock()
	if b.subscribers[topic] == nil {
		b.subscribers[topic] = map[chan Event]struct{}{}
	}
	b.subscribers[topic][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[topic] != nil {
			delete(b.subscribers[topic], ch)
			if len(b.subscribers[topic]) == 0 {
				delete(b.subscribers, topic)
			}
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Publish stamps the event with a broker-wide sequence number and, when
// unset, the current time and an empty payload.
func (b *Broker) Publish(event Event) {
	event.Seq = b.seq.Add(1)
	event.Type = NormalizeType(event.Type)
	if event.Ts == "" {
		event.Ts = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}

	// Channels are closed under the write lock, so a send here never
	// races an unsubscribe.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers[event.Topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
