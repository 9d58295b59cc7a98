package realtime

import (
	"sync"

	"staynest-server/chatsync"
)

// HistoryFunc fetches the full current message history of a conversation.
type HistoryFunc func(conversationID uint) ([]chatsync.Message, error)

// Session binds one connected client to one conversation: a feed
// subscription plus the synchronized view built over it. All view access
// goes through the session's lock because the websocket read loop and the
// hub delivery goroutine race each other.
type Session struct {
	hub   *Hub
	fetch HistoryFunc

	mu     sync.Mutex
	userID uint
	view   *chatsync.ConversationView
	sub    *Subscription
	closed bool
}

// NewSession subscribes to the conversation's feed and loads history.
// The subscription is acquired before the fetch so inserts racing the fetch
// are not lost; the merge dedups whichever copy arrives second. A fetch
// error leaves the view empty but the session mounted — the caller may
// Resync.
func NewSession(hub *Hub, fetch HistoryFunc, conversationID, userID uint) (*Session, error) {
	s := &Session{
		hub:    hub,
		fetch:  fetch,
		userID: userID,
		view:   chatsync.NewConversationView(conversationID, userID),
		sub:    hub.Subscribe(conversationID),
	}
	return s, s.Resync()
}

// Feed exposes the subscription channel for the connection's write loop.
func (s *Session) Feed() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub.C
}

// Resync re-runs the history fetch through the merge path. Safe to call any
// time; used on mount and after a feed interruption.
func (s *Session) Resync() error {
	s.mu.Lock()
	conversationID := s.view.ConversationID()
	s.mu.Unlock()

	history, err := s.fetch(conversationID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.view.LoadInitial(history)
	s.mu.Unlock()
	return nil
}

// Switch moves the session to another conversation: the old subscription is
// released, a fresh view and subscription are mounted, and history loads.
func (s *Session) Switch(conversationID uint) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.sub.Close()
	s.view = chatsync.NewConversationView(conversationID, s.userID)
	s.sub = s.hub.Subscribe(conversationID)
	s.mu.Unlock()
	return s.Resync()
}

func (s *Session) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.Type == EventMessageInsert {
		s.view.ApplyRemote(ev.Message)
	}
}

func (s *Session) Send(content string) chatsync.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Send(content)
}

func (s *Session) MarkSent(clientKey string, durable chatsync.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.MarkSent(clientKey, durable)
}

func (s *Session) MarkFailed(clientKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.MarkFailed(clientKey)
}

func (s *Session) Retry(clientKey string) (chatsync.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Retry(clientKey)
}

func (s *Session) Messages() []chatsync.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.Messages()
}

// Close releases the feed subscription. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.sub.Close()
}
