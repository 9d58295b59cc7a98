package chatsync

import "testing"

const (
	convID = 7
	selfID = 1
	peerID = 2
)

func remote(id uint, sender uint, content string) Message {
	return Message{ID: id, ConversationID: convID, SenderID: sender, Content: content}
}

func TestLoadInitialThenRemoteInsertNoDuplicates(t *testing.T) {
	v := NewConversationView(convID, selfID)
	v.LoadInitial([]Message{remote(10, peerID, "hi"), remote(11, selfID, "hello")})

	// The feed replays a message already in history.
	if changed := v.ApplyRemote(remote(11, selfID, "hello")); changed {
		t.Error("duplicate durable id was applied")
	}
	if v.Len() != 2 {
		t.Fatalf("len = %d, want 2", v.Len())
	}
}

func TestRemoteInsertBeforeInitialFetch(t *testing.T) {
	v := NewConversationView(convID, selfID)
	// Realtime event wins the race against the history fetch.
	v.ApplyRemote(remote(12, peerID, "early"))
	v.LoadInitial([]Message{remote(10, peerID, "hi"), remote(12, peerID, "early")})

	if v.Len() != 2 {
		t.Fatalf("len = %d, want 2", v.Len())
	}
	ids := map[uint]int{}
	for _, m := range v.Messages() {
		ids[m.ID]++
	}
	for id, n := range ids {
		if n != 1 {
			t.Errorf("durable id %d appears %d times", id, n)
		}
	}
}

func TestOptimisticSendReconciledByClientKey(t *testing.T) {
	v := NewConversationView(convID, selfID)
	v.LoadInitial([]Message{remote(10, peerID, "hi")})

	sent := v.Send("on my way")
	if sent.State != StateSending || sent.ClientKey == "" {
		t.Fatalf("optimistic entry = %+v", sent)
	}
	// Another message lands while the send is in flight.
	v.ApplyRemote(remote(11, peerID, "still there?"))

	echo := remote(12, selfID, "on my way")
	echo.ClientKey = sent.ClientKey
	v.ApplyRemote(echo)

	msgs := v.Messages()
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	// Position preserved: the confirmed message stays at index 1 where the
	// optimistic entry was inserted, it does not move past the peer message.
	if msgs[1].ID != 12 || msgs[1].State != StateSent {
		t.Errorf("reconciled entry = %+v, want id 12 sent at index 1", msgs[1])
	}
	if msgs[2].ID != 11 {
		t.Errorf("peer message moved: %+v", msgs[2])
	}
}

func TestEchoThenHTTPResponseCollapse(t *testing.T) {
	v := NewConversationView(convID, selfID)
	sent := v.Send("hey")

	echo := remote(20, selfID, "hey")
	echo.ClientKey = sent.ClientKey
	v.ApplyRemote(echo)
	// The slower HTTP response arrives after the realtime echo.
	v.MarkSent(sent.ClientKey, echo)

	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}
	if got := v.Messages()[0]; got.ID != 20 || got.State != StateSent {
		t.Errorf("entry = %+v", got)
	}
}

func TestContentFallbackWhenFeedStripsKey(t *testing.T) {
	v := NewConversationView(convID, selfID)
	v.Send("ping")
	v.ApplyRemote(remote(30, selfID, "ping")) // no client key on the event

	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}
	if got := v.Messages()[0]; got.ID != 30 || got.State != StateSent {
		t.Errorf("entry = %+v", got)
	}
}

func TestSelfEventWithForeignKeyDoesNotConsumePending(t *testing.T) {
	v := NewConversationView(convID, selfID)
	pending := v.Send("ok")

	// Same text sent from another device: self-sent, keyed, but the key
	// matches no local pending entry.
	other := remote(50, selfID, "ok")
	other.ClientKey = "other-device-key"
	v.ApplyRemote(other)

	if v.Len() != 2 {
		t.Fatalf("len = %d, want 2 (pending entry was consumed by a different message)", v.Len())
	}
	if got := v.Messages()[0]; got.ClientKey != pending.ClientKey || got.State != StateSending {
		t.Errorf("pending entry lost its identity: %+v", got)
	}

	// The real confirmation still lands on the pending entry, in place.
	echo := remote(51, selfID, "ok")
	echo.ClientKey = pending.ClientKey
	v.ApplyRemote(echo)

	msgs := v.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != 51 || msgs[0].State != StateSent {
		t.Errorf("confirmation did not replace the pending entry in place: %+v", msgs[0])
	}
}

func TestTwoIdenticalSendsStayDistinct(t *testing.T) {
	v := NewConversationView(convID, selfID)
	a := v.Send("ok")
	b := v.Send("ok")

	echoB := remote(41, selfID, "ok")
	echoB.ClientKey = b.ClientKey
	v.ApplyRemote(echoB)
	echoA := remote(40, selfID, "ok")
	echoA.ClientKey = a.ClientKey
	v.ApplyRemote(echoA)

	msgs := v.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].ID != 40 || msgs[1].ID != 41 {
		t.Errorf("keys matched the wrong entries: %+v", msgs)
	}
}

func TestFailedSendStaysVisible(t *testing.T) {
	v := NewConversationView(convID, selfID)
	v.LoadInitial([]Message{remote(10, peerID, "hi")})
	sent := v.Send("lost one")
	v.MarkFailed(sent.ClientKey)

	msgs := v.Messages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[1].State != StateFailed || msgs[1].Content != "lost one" {
		t.Errorf("failed entry = %+v", msgs[1])
	}
}

func TestRetryKeepsClientKey(t *testing.T) {
	v := NewConversationView(convID, selfID)
	sent := v.Send("try again")
	v.MarkFailed(sent.ClientKey)

	again, ok := v.Retry(sent.ClientKey)
	if !ok || again.State != StateSending || again.ClientKey != sent.ClientKey {
		t.Fatalf("retry = %+v ok=%v", again, ok)
	}
	if _, ok := v.Retry(sent.ClientKey); ok {
		t.Error("retry allowed while still sending")
	}

	// The first attempt's echo arrives late; it must still collapse.
	echo := remote(50, selfID, "try again")
	echo.ClientKey = sent.ClientKey
	v.ApplyRemote(echo)
	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}
}

func TestIdempotentRemoteInsert(t *testing.T) {
	v := NewConversationView(convID, selfID)
	e := remote(60, peerID, "twice")
	v.ApplyRemote(e)
	v.ApplyRemote(e)
	if v.Len() != 1 {
		t.Fatalf("len = %d, want 1", v.Len())
	}
}
