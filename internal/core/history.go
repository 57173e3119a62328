package core

import "chatrelay/server/internal/protocol"

// History keeps a bounded, ordered message log per channel.
//
// History is not safe for concurrent use; Relay serializes access to it.
type History struct {
	limit    int
	channels map[string][]protocol.ChatMessage
}

// NewHistory returns a store that keeps at most limit messages per channel.
// A non-positive limit falls back to DefaultHistoryCap.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryCap
	}
	return &History{
		limit:    limit,
		channels: make(map[string][]protocol.ChatMessage),
	}
}

// Append adds msg to the tail of channel and evicts the oldest entries until
// the channel is back within the cap.
func (h *History) Append(channel string, msg protocol.ChatMessage) {
	log := append(h.channels[channel], msg)
	if over := len(log) - h.limit; over > 0 {
		log = append(log[:0:0], log[over:]...)
	}
	h.channels[channel] = log
}

// Get returns a copy of the channel's history, oldest first. Unknown
// channels yield an empty slice.
func (h *History) Get(channel string) []protocol.ChatMessage {
	log := h.channels[channel]
	out := make([]protocol.ChatMessage, len(log))
	copy(out, log)
	return out
}

// DeleteByID removes the first message with the given id from whichever
// channel holds it. Message ids are globally unique, so at most one message
// is removed per call.
func (h *History) DeleteByID(id string) (channel string, found bool) {
	for ch, log := range h.channels {
		for i := range log {
			if log[i].ID != id {
				continue
			}
			h.channels[ch] = append(log[:i:i], log[i+1:]...)
			return ch, true
		}
	}
	return "", false
}
