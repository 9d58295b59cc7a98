package routes

import "testing"

func TestOpeningMessageCarriesUniqueClientKey(t *testing.T) {
	first := newOpeningMessage(1, 10, "is the place free next week?")
	second := newOpeningMessage(2, 10, "is the place free next week?")

	if first.ClientKey == "" || second.ClientKey == "" {
		t.Fatal("opening message has no client key; keyless rows collide on the unique index")
	}
	if first.ClientKey == second.ClientKey {
		t.Fatalf("two opening messages share client key %q", first.ClientKey)
	}
	if first.State != "sent" {
		t.Fatalf("opening message state = %q, want sent", first.State)
	}
}
