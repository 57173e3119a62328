package core

import (
	"testing"
	"time"
)

func TestRosterViewPerRecipient(t *testing.T) {
	muted := time.UnixMilli(1_700_000_123_000)
	sessions := []*Session{
		{id: "a", origin: "10.0.0.1", name: "root", channel: "general", admin: true},
		{id: "b", origin: "10.0.0.2", name: "bob", channel: "random", mutedUntil: muted},
	}

	public := rosterView(sessions, false)
	privileged := rosterView(sessions, true)
	if len(public) != 2 || len(privileged) != 2 {
		t.Fatalf("unexpected lengths %d/%d", len(public), len(privileged))
	}
	for i := range public {
		if public[i].IP != "" {
			t.Fatalf("public entry leaked origin: %#v", public[i])
		}
		if privileged[i].IP != sessions[i].origin {
			t.Fatalf("privileged entry missing origin: %#v", privileged[i])
		}
	}
	if !public[0].IsAdmin || public[1].IsAdmin {
		t.Fatalf("admin flags wrong: %#v", public)
	}
	if public[0].MutedUntil != 0 || public[1].MutedUntil != muted.UnixMilli() {
		t.Fatalf("mute timestamps wrong: %#v", public)
	}
}

func TestChannelSetKeepsCreationOrder(t *testing.T) {
	c := newChannelSet(DefaultChannel)
	if !c.add("random") {
		t.Fatal("random should be new")
	}
	if c.add(DefaultChannel) {
		t.Fatal("general already exists")
	}
	got := c.list()
	if len(got) != 2 || got[0] != DefaultChannel || got[1] != "random" {
		t.Fatalf("list = %v", got)
	}
	got[0] = "mutated"
	if c.list()[0] != DefaultChannel {
		t.Fatal("list must return a copy")
	}
}

func TestSessionsRegistryOrderAndUnregister(t *testing.T) {
	reg := NewSessions()
	a := reg.Register("10.0.0.1")
	b := reg.Register("10.0.0.2")
	if a.name != DefaultName || a.channel != DefaultChannel {
		t.Fatalf("unexpected defaults: %q %q", a.name, a.channel)
	}
	if all := reg.All(); len(all) != 2 || all[0] != a || all[1] != b {
		t.Fatal("All should preserve registration order")
	}

	removed, ok := reg.Unregister(a.ID())
	if !ok || removed != a {
		t.Fatal("expected a to be removed")
	}
	if _, ok := reg.Unregister(a.ID()); ok {
		t.Fatal("second unregister should report false")
	}
	if _, ok := reg.Lookup(a.ID()); ok {
		t.Fatal("lookup after unregister should fail")
	}
	if _, open := <-a.Send(); open {
		t.Fatal("send queue should be closed")
	}
	if a.deliver([]byte("x")) {
		t.Fatal("deliver to a closed session must fail")
	}
	if reg.Len() != 1 {
		t.Fatalf("Len = %d", reg.Len())
	}
}
