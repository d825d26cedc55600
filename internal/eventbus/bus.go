package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type names a marketplace domain event.
type Type string

const (
	TypeTaskCreated      Type = "task:created"
	TypeTaskClaimed      Type = "task:claimed"
	TypeTaskStarted      Type = "task:started"
	TypeTaskCompleted    Type = "task:completed"
	TypeTaskCancelled    Type = "task:cancelled"
	TypeTaskWithdrawn    Type = "task:withdrawn"
	TypePaymentSucceeded Type = "payment:succeeded"
	TypePaymentFailed    Type = "payment:failed"
)

// Event is a small structured record of one marketplace state change.
type Event struct {
	ID        string
	Type      Type
	TaskID    string
	Payload   map[string]string
	CreatedAt time.Time
}

// Bus is an in-process pub/sub fan-out. Delivery is best effort: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) PublishNew(eventType Type, taskID string, payload map[string]string) {
	b.Publish(&Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		TaskID:    taskID,
		Payload:   payload,
		CreatedAt: time.Now(),
	})
}
