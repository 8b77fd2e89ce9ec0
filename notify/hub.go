package notify

import (
	"sync"

	"github.com/google/uuid"
)

// Event is one message pushed over a live stream.
type Event struct {
	Name string      `json:"name"`
	Data interface{} `json:"data"`
}

type subscriber struct {
	id string
	ch chan Event
}

// Hub maintains live subscribers, keyed per user plus a broadcast group
// for admin streams. Channel sends never block: a slow consumer drops
// events rather than stalling the fanout.
type Hub struct {
	mu        sync.RWMutex
	users     map[uint]map[string]*subscriber
	broadcast map[string]*subscriber
}

func NewHub() *Hub {
	return &Hub{
		users:     make(map[uint]map[string]*subscriber),
		broadcast: make(map[string]*subscriber),
	}
}

// Subscribe registers a live stream for the given user. The returned
// cancel function must be called when the stream ends.
func (h *Hub) Subscribe(userID uint) (<-chan Event, func()) {
	sub := &subscriber{id: uuid.NewString(), ch: make(chan Event, 16)}

	h.mu.Lock()
	group, ok := h.users[userID]
	if !ok {
		group = make(map[string]*subscriber)
		h.users[userID] = group
	}
	group[sub.id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if group, ok := h.users[userID]; ok {
			delete(group, sub.id)
			if len(group) == 0 {
				delete(h.users, userID)
			}
		}
		h.mu.Unlock()
	}
	return sub.ch, cancel
}

// SubscribeBroadcast registers for the firehose of moderation events.
func (h *Hub) SubscribeBroadcast() (<-chan Event, func()) {
	sub := &subscriber{id: uuid.NewString(), ch: make(chan Event, 16)}

	h.mu.Lock()
	h.broadcast[sub.id] = sub
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.broadcast, sub.id)
		h.mu.Unlock()
	}
	return sub.ch, cancel
}

// Push delivers an event to every live stream of one user.
func (h *Hub) Push(userID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.users[userID] {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// Broadcast delivers an event to every broadcast subscriber.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.broadcast {
		select {
		case sub.ch <- event:
		default:
		}
	}
}

// SubscriberCount reports how many live streams one user holds.
func (h *Hub) SubscriberCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}
