// Package chatsync keeps the displayed message list of one conversation
// canonical: deduplicated, stably ordered, and reconciled across three
// sources that race each other — the initial history fetch, locally-sent
// messages awaiting confirmation, and the realtime insert feed.
package chatsync

import "github.com/google/uuid"

type DeliveryState string

const (
	StateSending DeliveryState = "sending"
	StateSent    DeliveryState = "sent"
	StateFailed  DeliveryState = "failed"
)

// Message is one entry in a conversation view. ID is the durable
// server-assigned identifier and stays zero until the send is confirmed.
// ClientKey is the client-generated idempotency key stamped on an optimistic
// entry at send time; the server stores and echoes it, so a confirmation is
// matched by key rather than by content.
type Message struct {
	ID             uint          `json:"id"`
	ClientKey      string        `json:"clientKey,omitempty"`
	ConversationID uint          `json:"conversationID"`
	SenderID       uint          `json:"senderID"`
	Content        string        `json:"content"`
	IsVerified     bool          `json:"isVerified"`
	// State is local-only. Empty for entries that came from the server's
	// canonical feed.
	State DeliveryState `json:"state,omitempty"`
}

// ConversationView holds the merged list for a single conversation. It is
// not goroutine safe; callers that feed it from more than one goroutine
// (e.g. a websocket session) serialize access themselves.
type ConversationView struct {
	conversationID uint
	selfID         uint

	messages []Message
	byID     map[uint]int
	byKey    map[string]int // pending/failed optimistic entries only
}

func NewConversationView(conversationID, selfID uint) *ConversationView {
	return &ConversationView{
		conversationID: conversationID,
		selfID:         selfID,
		byID:           make(map[uint]int),
		byKey:          make(map[string]int),
	}
}

// LoadInitial merges a bulk history fetch. It runs every message through the
// same idempotent merge as the realtime feed, so it is safe to call before,
// after, or interleaved with insert events, and safe to call again on
// reconnect.
func (v *ConversationView) LoadInitial(history []Message) {
	for _, m := range history {
		v.ApplyRemote(m)
	}
}

// Send appends an optimistic entry immediately, before any network round
// trip, and returns it. The returned message carries the client key the
// caller must transmit with the persistence request.
func (v *ConversationView) Send(content string) Message {
	m := Message{
		ClientKey:      uuid.NewString(),
		ConversationID: v.conversationID,
		SenderID:       v.selfID,
		Content:        content,
		State:          StateSending,
	}
	v.byKey[m.ClientKey] = len(v.messages)
	v.messages = append(v.messages, m)
	return m
}

// MarkSent records a successful send response. The optimistic entry adopts
// the durable identity in place; if the realtime echo already reconciled it,
// the response is merged through the normal dedup path instead.
func (v *ConversationView) MarkSent(clientKey string, durable Message) {
	idx, ok := v.byKey[clientKey]
	if !ok {
		v.ApplyRemote(durable)
		return
	}
	v.confirmAt(idx, durable)
}

// MarkFailed flips the optimistic entry to failed. The entry stays visible
// at its original position; it is never dropped.
func (v *ConversationView) MarkFailed(clientKey string) {
	if idx, ok := v.byKey[clientKey]; ok && v.messages[idx].State == StateSending {
		v.messages[idx].State = StateFailed
	}
}

// Retry re-arms a failed entry for another send attempt under the same
// client key, so a retry racing a late success of the first attempt still
// collapses into one message.
func (v *ConversationView) Retry(clientKey string) (Message, bool) {
	idx, ok := v.byKey[clientKey]
	if !ok || v.messages[idx].State != StateFailed {
		return Message{}, false
	}
	v.messages[idx].State = StateSending
	return v.messages[idx], true
}

// ApplyRemote merges one insert event from the realtime feed (or history
// fetch). Precedence: drop if the durable id is already present; else
// replace the matching pending entry in place (by client key, falling back
// to sender+content for feeds that strip the key); else append. Reports
// whether the list changed.
func (v *ConversationView) ApplyRemote(msg Message) bool {
	if msg.ID != 0 {
		if _, dup := v.byID[msg.ID]; dup {
			return false
		}
	}

	if msg.ClientKey != "" {
		if idx, ok := v.byKey[msg.ClientKey]; ok {
			v.confirmAt(idx, msg)
			return true
		}
	}

	// Content matching is a fallback for feeds that strip the key. An event
	// that carries a key and matched nothing above is a different message
	// (same text sent from another device), not a confirmation.
	if msg.ClientKey == "" && msg.SenderID == v.selfID {
		for idx, m := range v.messages {
			if m.State == StateSending && m.Content == msg.Content {
				v.confirmAt(idx, msg)
				return true
			}
		}
	}

	if msg.ID != 0 {
		v.byID[msg.ID] = len(v.messages)
	}
	v.messages = append(v.messages, msg)
	return true
}

// confirmAt swaps the durable record into position idx, keeping the entry's
// place in the list so the message does not jump when confirmed.
func (v *ConversationView) confirmAt(idx int, durable Message) {
	old := v.messages[idx]
	durable.State = StateSent
	if durable.ClientKey == "" {
		durable.ClientKey = old.ClientKey
	}
	v.messages[idx] = durable
	if durable.ID != 0 {
		v.byID[durable.ID] = idx
	}
	delete(v.byKey, old.ClientKey)
}

// Messages returns the displayed list, oldest to newest.
func (v *ConversationView) Messages() []Message {
	out := make([]Message, len(v.messages))
	copy(out, v.messages)
	return out
}

func (v *ConversationView) Len() int { return len(v.messages) }

func (v *ConversationView) ConversationID() uint { return v.conversationID }
