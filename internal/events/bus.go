package events

import (
	"sync"
	"time"
)

type Type string

const (
	BalanceChanged   Type = "balance.changed"
	InventoryUpdated Type = "inventory.updated"
	PlanUpdated      Type = "plan.updated"
	SessionTick      Type = "session.tick"
	SessionStarted   Type = "session.started"
	SessionPaused    Type = "session.paused"
	SessionResumed   Type = "session.resumed"
	SessionCancelled Type = "session.cancelled"
	SessionCompleted Type = "session.completed"
	SessionCredited  Type = "session.credited"
)

// Event is a notification for one user. Data carries the type-specific
// payload and is serialized as-is to subscribers.
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type BalanceData struct {
	Balance int    `json:"balance"`
	Delta   int    `json:"delta"`
	Reason  string `json:"reason"`
}

type TickData struct {
	SessionID    string `json:"session_id"`
	RemainingSec int    `json:"remaining_seconds"`
	Clock        string `json:"clock"`
}

// Publisher is the narrow interface producers depend on.
type Publisher interface {
	Publish(e Event)
}

// Bus fans events out to per-user subscribers. Slow subscribers drop events
// rather than block publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a channel for the user's events. The returned cancel
// func unregisters and closes the channel.
func (b *Bus) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subs[userID]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(b.subs, userID)
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[e.UserID] {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *Bus) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(Event) {}
