// Package realtime fans message insert events out to live conversation
// feeds. A feed is an explicit Subscription handle scoped to one
// conversation: acquired when a conversation view mounts, released exactly
// once when it unmounts or the selection changes.
package realtime

import (
	"sync"

	"staynest-server/chatsync"
)

const EventMessageInsert = "message.insert"

// Event is one realtime feed item delivered to subscribers and over the
// websocket.
type Event struct {
	Type    string           `json:"type"`
	Message chatsync.Message `json:"message"`
}

// Subscription is a live feed for one conversation. Events arrive on C.
// Close releases the subscription; closing twice is a no-op.
type Subscription struct {
	C chan Event

	hub            *Hub
	conversationID uint
	once           sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
		close(s.C)
	})
}

// Hub routes published messages to the subscriptions of their conversation.
type Hub struct {
	mu   sync.Mutex
	subs map[uint]map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint]map[*Subscription]struct{})}
}

func (h *Hub) Subscribe(conversationID uint) *Subscription {
	s := &Subscription{
		C:              make(chan Event, 32),
		hub:            h,
		conversationID: conversationID,
	}
	h.mu.Lock()
	set, ok := h.subs[conversationID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[conversationID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) unsubscribe(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.conversationID]
	if !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.conversationID)
	}
}

// Publish delivers an insert event to every live feed of the message's
// conversation. A subscriber that cannot keep up misses the event and is
// expected to Resync; Publish never blocks a sender.
func (h *Hub) Publish(msg chatsync.Message) {
	ev := Event{Type: EventMessageInsert, Message: msg}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[msg.ConversationID] {
		select {
		case s.C <- ev:
		default:
		}
	}
}

// SubscriberCount reports how many live feeds a conversation has.
func (h *Hub) SubscriberCount(conversationID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[conversationID])
}
