package core

import (
	"encoding/json"
	"log/slog"

	"chatrelay/server/internal/protocol"
)

// The helpers in this file require r.mu to be held.

// broadcastLocked serializes ev once and queues it for every live session
// accepted by keep (all sessions when keep is nil). A session that cannot
// take the event is skipped; delivery to the others continues.
func (r *Relay) broadcastLocked(ev protocol.Event, keep func(*Session) bool) int {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encode event", "type", ev.Type, "err", err)
		return 0
	}

	sessions := r.sessions.All()
	sent := 0
	for _, s := range sessions {
		if keep != nil && !keep(s) {
			continue
		}
		if s.deliver(data) {
			sent++
		} else {
			slog.Debug("event dropped", "type", ev.Type, "session_id", s.id)
		}
	}
	slog.Debug("broadcast", "type", ev.Type, "recipients", sent, "total", len(sessions))
	return sent
}

// sendLocked queues ev for one session.
func (r *Relay) sendLocked(s *Session, ev protocol.Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encode event", "type", ev.Type, "err", err)
		return false
	}
	return s.deliver(data)
}

// broadcastRosterLocked sends every session a user list shaped for it:
// admins see network origins, everyone else does not.
func (r *Relay) broadcastRosterLocked() {
	sessions := r.sessions.All()
	var public, privileged []byte
	for _, s := range sessions {
		var data []byte
		if s.admin {
			if privileged == nil {
				privileged = r.encodeRoster(sessions, true)
			}
			data = privileged
		} else {
			if public == nil {
				public = r.encodeRoster(sessions, false)
			}
			data = public
		}
		if data != nil {
			s.deliver(data)
		}
	}
}

func (r *Relay) encodeRoster(sessions []*Session, recipientIsAdmin bool) []byte {
	data, err := json.Marshal(protocol.Event{
		Type:  protocol.TypeUserList,
		Users: rosterView(sessions, recipientIsAdmin),
	})
	if err != nil {
		slog.Error("encode roster", "err", err)
		return nil
	}
	return data
}

// broadcastChannelsLocked sends every session the known channel names.
func (r *Relay) broadcastChannelsLocked() {
	r.broadcastLocked(protocol.Event{Type: protocol.TypeChannels, Channels: r.channels.list()}, nil)
}

// refreshLocked resends the roster and the channel list to everyone.
func (r *Relay) refreshLocked() {
	r.broadcastRosterLocked()
	r.broadcastChannelsLocked()
}

// rosterView builds the user list as seen by a recipient. The network origin
// of each session is only included when the recipient is an admin.
func rosterView(sessions []*Session, recipientIsAdmin bool) []protocol.User {
	out := make([]protocol.User, 0, len(sessions))
	for _, s := range sessions {
		u := protocol.User{
			ID:      s.id,
			Name:    s.name,
			Channel: s.channel,
			IsAdmin: s.admin,
		}
		if !s.mutedUntil.IsZero() {
			u.MutedUntil = s.mutedUntil.UnixMilli()
		}
		if recipientIsAdmin {
			u.IP = s.origin
		}
		out = append(out, u)
	}
	return out
}

// channelSet is the set of known channel names in creation order. Channels
// are never removed.
type channelSet struct {
	names []string
	index map[string]struct{}
}

func newChannelSet(initial ...string) *channelSet {
	c := &channelSet{index: make(map[string]struct{})}
	for _, n := range initial {
		c.add(n)
	}
	return c
}

// add registers name and reports whether it was new.
func (c *channelSet) add(name string) bool {
	if _, ok := c.index[name]; ok {
		return false
	}
	c.index[name] = struct{}{}
	c.names = append(c.names, name)
	return true
}

func (c *channelSet) list() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}
