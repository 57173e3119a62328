package core

import (
	"math"
	"testing"
	"time"
)

func TestModerationBansAreIndependent(t *testing.T) {
	m := NewModeration()
	m.BanName("mallory")
	m.BanOrigin("198.51.100.9")

	cases := []struct {
		name, origin string
		want         bool
	}{
		{"mallory", "10.0.0.1", true},
		{"alice", "198.51.100.9", true},
		{"alice", "10.0.0.1", false},
		{"Mallory", "10.0.0.1", false},
	}
	for _, c := range cases {
		if got := m.IsBanned(c.name, c.origin); got != c.want {
			t.Errorf("IsBanned(%q, %q) = %v, want %v", c.name, c.origin, got, c.want)
		}
	}
	if !m.IsOriginBanned("198.51.100.9") || m.IsOriginBanned("10.0.0.1") {
		t.Fatal("IsOriginBanned mismatch")
	}
}

func TestModerationMuteExpiry(t *testing.T) {
	m := NewModeration()
	s := &Session{}
	now := time.Unix(1_700_000_000, 0)

	if m.IsMuted(s, now) {
		t.Fatal("fresh session must not be muted")
	}
	m.Mute(s, 30, now)
	if !m.IsMuted(s, now.Add(29*time.Second)) {
		t.Fatal("expected muted before expiry")
	}
	if m.IsMuted(s, now.Add(30*time.Second)) {
		t.Fatal("expiry instant must count as not muted")
	}
}

func TestModerationMuteClampsNegative(t *testing.T) {
	m := NewModeration()
	s := &Session{}
	now := time.Unix(1_700_000_000, 0)

	m.Mute(s, -10, now)
	if !s.mutedUntil.Equal(now) {
		t.Fatalf("mutedUntil = %v, want %v", s.mutedUntil, now)
	}
	if m.IsMuted(s, now) {
		t.Fatal("zero-length mute must not mute")
	}
}

func TestModerationMuteSaturatesLongDurations(t *testing.T) {
	m := NewModeration()
	now := time.Unix(1_700_000_000, 0)

	for _, seconds := range []int64{10_000_000_000, math.MaxInt64} {
		s := &Session{}
		m.Mute(s, seconds, now)
		if !s.mutedUntil.After(now) {
			t.Fatalf("Mute(%d): mutedUntil %v is not after now", seconds, s.mutedUntil)
		}
		if !m.IsMuted(s, now) || !m.IsMuted(s, now.AddDate(200, 0, 0)) {
			t.Fatalf("Mute(%d): expected muted", seconds)
		}
	}
}
