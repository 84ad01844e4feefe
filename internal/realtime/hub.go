// Package realtime fans frames out to the clients subscribed to an event.
package realtime

import (
	"errors"
	"log"
	"sync"
)

// DefaultBuffer is the per-subscriber frame backlog before it is dropped.
const DefaultBuffer = 64

var ErrHubClosed = errors.New("realtime hub is closed")

// Frame is the envelope written to websocket clients.
type Frame struct {
	Type    string `json:"type"`
	EventID uint   `json:"event_id"`
	Data    any    `json:"data,omitempty"`
}

// Subscriber is one client's membership in an event room.
type Subscriber struct {
	EventID   uint
	AccountID uint
	Name      string

	frames chan Frame
	closed bool
}

// Frames yields published frames in publish order. The channel is closed
// when the subscriber is removed from the hub.
func (s *Subscriber) Frames() <-chan Frame {
	return s.frames
}

type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint]map[*Subscriber]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		rooms:  make(map[uint]map[*Subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe joins eventID's room. Callers must Unsubscribe when the
// connection ends.
func (h *Hub) Subscribe(eventID, accountID uint, name string) (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscriber{
		EventID:   eventID,
		AccountID: accountID,
		Name:      name,
		frames:    make(chan Frame, h.buffer),
	}

	if h.rooms[eventID] == nil {
		h.rooms[eventID] = make(map[*Subscriber]struct{})
	}
	h.rooms[eventID][sub] = struct{}{}

	return sub, nil
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub)
}

// removeLocked must be called with h.mu held for writing. Closing under the
// write lock guarantees no Publish is mid-send on the channel.
func (h *Hub) removeLocked(sub *Subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.frames)

	if room, ok := h.rooms[sub.EventID]; ok {
		delete(room, sub)
		if len(room) == 0 {
			delete(h.rooms, sub.EventID)
		}
	}
}

// Publish delivers a frame to every subscriber of eventID without blocking.
func (h *Hub) Publish(eventID uint, frameType string, data any) {
	h.publish(eventID, frameType, data, nil)
}

// PublishExcept is Publish skipping the originating subscriber.
func (h *Hub) PublishExcept(eventID uint, frameType string, data any, except *Subscriber) {
	h.publish(eventID, frameType, data, except)
}

func (h *Hub) publish(eventID uint, frameType string, data any, except *Subscriber) {
	frame := Frame{Type: frameType, EventID: eventID, Data: data}

	var slow []*Subscriber

	h.mu.RLock()
	for sub := range h.rooms[eventID] {
		if sub == except {
			continue
		}
		select {
		case sub.frames <- frame:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}

	h.mu.Lock()
	for _, sub := range slow {
		log.Printf("Dropping slow subscriber %d from event %d", sub.AccountID, eventID)
		h.removeLocked(sub)
	}
	h.mu.Unlock()
}

// RoomSize reports the number of subscribers currently in eventID's room.
func (h *Hub) RoomSize(eventID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[eventID])
}

// Close disconnects every subscriber and rejects new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true

	for _, room := range h.rooms {
		for sub := range room {
			h.removeLocked(sub)
		}
	}
	h.rooms = make(map[uint]map[*Subscriber]struct{})
}
