package realtime

import (
	"testing"

	"staynest-server/chatsync"
)

func msg(id, conv, sender uint, content string) chatsync.Message {
	return chatsync.Message{ID: id, ConversationID: conv, SenderID: sender, Content: content}
}

func TestPublishReachesOnlyConversationSubscribers(t *testing.T) {
	h := NewHub()
	a := h.Subscribe(1)
	b := h.Subscribe(2)
	defer a.Close()
	defer b.Close()

	h.Publish(msg(10, 1, 3, "hi"))

	select {
	case ev := <-a.C:
		if ev.Type != EventMessageInsert || ev.Message.ID != 10 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("subscriber of conversation 1 got nothing")
	}
	select {
	case ev := <-b.C:
		t.Errorf("conversation 2 subscriber received %+v", ev)
	default:
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(5)
	if n := h.SubscriberCount(5); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	s.Close()
	s.Close() // must not panic or double-release
	if n := h.SubscriberCount(5); n != 0 {
		t.Fatalf("count after close = %d, want 0", n)
	}
	// Publishing to a conversation with no subscribers is fine.
	h.Publish(msg(1, 5, 2, "nobody home"))
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	h := NewHub()
	s := h.Subscribe(1)
	defer s.Close()

	// Fill the buffer and keep going; Publish must drop, not block.
	for i := 0; i < 100; i++ {
		h.Publish(msg(uint(i+1), 1, 2, "spam"))
	}
}
