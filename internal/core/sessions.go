package core

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Session represents one live websocket connection.
//
// ID and Send are safe to use from any goroutine. Every other field is
// owned by Relay and guarded by its mutex.
type Session struct {
	id     string
	origin string
	send   chan []byte

	name       string
	channel    string
	admin      bool
	mutedUntil time.Time
	closed     bool
	limiter    *rate.Limiter
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

// Send returns the outbound queue of serialized events. The channel is
// closed when the session is unregistered.
func (s *Session) Send() <-chan []byte { return s.send }

// deliver queues data without blocking. It reports false when the session
// is closed or its queue is full.
func (s *Session) deliver(data []byte) bool {
	if s.closed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

// Sessions is the registry of live sessions, kept in insertion order.
//
// Sessions is not safe for concurrent use; Relay serializes access to it.
type Sessions struct {
	byID  map[string]*Session
	order []*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byID: make(map[string]*Session)}
}

// Register creates a session for a new connection from origin with a fresh
// identifier, the default display name and the default channel.
func (r *Sessions) Register(origin string) *Session {
	id := uuid.NewString()
	for r.byID[id] != nil {
		id = uuid.NewString()
	}
	s := &Session{
		id:      id,
		origin:  origin,
		send:    make(chan []byte, sendBuffer),
		name:    DefaultName,
		channel: DefaultChannel,
		limiter: rate.NewLimiter(rate.Limit(chatRate), chatBurst),
	}
	r.byID[id] = s
	r.order = append(r.order, s)
	return s
}

// Lookup returns the session with the given id, if it is still registered.
func (r *Sessions) Lookup(id string) (*Session, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// Unregister removes the session and closes its outbound queue. It returns
// the removed session, or false if it was already gone.
func (r *Sessions) Unregister(id string) (*Session, bool) {
	s, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	delete(r.byID, id)
	for i, cur := range r.order {
		if cur == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	s.closed = true
	close(s.send)
	return s, true
}

// All returns the live sessions in registration order.
func (r *Sessions) All() []*Session {
	out := make([]*Session, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	return len(r.order)
}
