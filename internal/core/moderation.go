package core

import (
	"math"
	"time"
)

// Moderation holds the process-lifetime ban lists. Bans never expire and
// cannot be lifted. Mute state lives on the session itself; Moderation only
// computes and evaluates expiry timestamps.
//
// Moderation is not safe for concurrent use; Relay serializes access to it.
type Moderation struct {
	names   map[string]struct{}
	origins map[string]struct{}
}

// NewModeration returns empty ban lists.
func NewModeration() *Moderation {
	return &Moderation{
		names:   make(map[string]struct{}),
		origins: make(map[string]struct{}),
	}
}

// BanName bans a display name.
func (m *Moderation) BanName(name string) {
	m.names[name] = struct{}{}
}

// BanOrigin bans a network origin.
func (m *Moderation) BanOrigin(origin string) {
	m.origins[origin] = struct{}{}
}

// IsBanned reports whether either the name or the origin is banned. The two
// lists are checked independently.
func (m *Moderation) IsBanned(name, origin string) bool {
	if _, ok := m.names[name]; ok {
		return true
	}
	_, ok := m.origins[origin]
	return ok
}

// IsOriginBanned reports whether origin is banned regardless of name.
func (m *Moderation) IsOriginBanned(origin string) bool {
	_, ok := m.origins[origin]
	return ok
}

// maxMuteSeconds is the longest mute a time.Duration can express.
const maxMuteSeconds = math.MaxInt64 / int64(time.Second)

// Mute sets the session's mute expiry to now plus seconds. Negative durations
// are clamped to zero, which leaves the session effectively unmuted. Longer
// durations than a time.Duration can hold saturate at maxMuteSeconds.
func (m *Moderation) Mute(s *Session, seconds int64, now time.Time) {
	seconds = min(max(seconds, 0), maxMuteSeconds)
	s.mutedUntil = now.Add(time.Duration(seconds) * time.Second)
}

// IsMuted reports whether the session is muted at now. A session whose
// expiry equals now is no longer muted.
func (m *Moderation) IsMuted(s *Session, now time.Time) bool {
	if s.mutedUntil.IsZero() {
		return false
	}
	return now.Before(s.mutedUntil)
}
