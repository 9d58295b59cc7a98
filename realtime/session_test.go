package realtime

import (
	"errors"
	"testing"

	"staynest-server/chatsync"
)

func historyFixture(t *testing.T) HistoryFunc {
	return func(conversationID uint) ([]chatsync.Message, error) {
		switch conversationID {
		case 1:
			return []chatsync.Message{msg(10, 1, 2, "welcome")}, nil
		case 2:
			return []chatsync.Message{msg(20, 2, 3, "other thread")}, nil
		default:
			return nil, errors.New("no such conversation")
		}
	}
}

func TestSessionMountLoadsHistoryAndSubscribes(t *testing.T) {
	h := NewHub()
	s, err := NewSession(h, historyFixture(t), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if n := h.SubscriberCount(1); n != 1 {
		t.Errorf("subscriber count = %d, want 1", n)
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != 10 {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestSessionFetchFailureLeavesEmptyMountedView(t *testing.T) {
	h := NewHub()
	s, err := NewSession(h, historyFixture(t), 99, 5)
	if err == nil {
		t.Fatal("expected fetch error")
	}
	defer s.Close()

	if len(s.Messages()) != 0 {
		t.Errorf("view not empty after failed fetch: %+v", s.Messages())
	}
	// Still subscribed; a later Resync can recover.
	if n := h.SubscriberCount(99); n != 1 {
		t.Errorf("subscriber count = %d, want 1", n)
	}
}

func TestSessionSwitchReleasesOldSubscription(t *testing.T) {
	h := NewHub()
	s, err := NewSession(h, historyFixture(t), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Switch(2); err != nil {
		t.Fatal(err)
	}
	if n := h.SubscriberCount(1); n != 0 {
		t.Errorf("old conversation still has %d subscribers", n)
	}
	if n := h.SubscriberCount(2); n != 1 {
		t.Errorf("new conversation has %d subscribers, want 1", n)
	}
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].ID != 20 {
		t.Errorf("messages after switch = %+v", msgs)
	}
}

func TestSessionCloseReleasesExactlyOnce(t *testing.T) {
	h := NewHub()
	s, err := NewSession(h, historyFixture(t), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if n := h.SubscriberCount(1); n != 0 {
		t.Errorf("subscriber count after close = %d, want 0", n)
	}
}

func TestSessionSendPublishConfirmRoundTrip(t *testing.T) {
	h := NewHub()
	s, err := NewSession(h, historyFixture(t), 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	optimistic := s.Send("booking tomorrow?")

	// Server persists the send and publishes the echo with the client key.
	durable := msg(11, 1, 5, "booking tomorrow?")
	durable.ClientKey = optimistic.ClientKey
	h.Publish(durable)
	s.Apply(<-s.Feed())
	s.MarkSent(optimistic.ClientKey, durable)

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[1].ID != 11 || msgs[1].State != chatsync.StateSent {
		t.Errorf("confirmed entry = %+v", msgs[1])
	}
}

func TestSessionResyncAfterMissedEvents(t *testing.T) {
	h := NewHub()
	history := []chatsync.Message{msg(10, 1, 2, "welcome")}
	fetch := func(conversationID uint) ([]chatsync.Message, error) {
		return history, nil
	}
	s, err := NewSession(h, fetch, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// An event the session never saw lands in history (feed hiccup).
	history = append(history, msg(11, 1, 2, "missed this"))
	if err := s.Resync(); err != nil {
		t.Fatal(err)
	}
	msgs := s.Messages()
	if len(msgs) != 2 || msgs[1].ID != 11 {
		t.Errorf("messages after resync = %+v", msgs)
	}
	// Resync again: idempotent.
	if err := s.Resync(); err != nil {
		t.Fatal(err)
	}
	if s.Messages()[0].ID != 10 || len(s.Messages()) != 2 {
		t.Errorf("resync duplicated entries: %+v", s.Messages())
	}
}
