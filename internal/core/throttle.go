package core

import "time"

// Throttle tracks failed admin logins per network origin and locks an origin
// out once LockThreshold failures have accumulated.
//
// Throttle is not safe for concurrent use; Relay serializes access to it.
// Expired locks are never swept: Check removes them lazily.
type Throttle struct {
	threshold int
	duration  time.Duration
	entries   map[string]*lockout
}

type lockout struct {
	count       int
	lastAttempt time.Time
	lockedUntil time.Time
}

// NewThrottle returns a throttle with the given threshold and lock duration.
// Non-positive values fall back to LockThreshold and LockDuration.
func NewThrottle(threshold int, duration time.Duration) *Throttle {
	if threshold <= 0 {
		threshold = LockThreshold
	}
	if duration <= 0 {
		duration = LockDuration
	}
	return &Throttle{
		threshold: threshold,
		duration:  duration,
		entries:   make(map[string]*lockout),
	}
}

// Check reports whether origin is currently locked. An entry whose lock has
// expired is deleted, returning the origin to a clean state.
func (t *Throttle) Check(origin string, now time.Time) (locked bool) {
	e, ok := t.entries[origin]
	if !ok {
		return false
	}
	if e.lockedUntil.IsZero() {
		return false
	}
	if !now.Before(e.lockedUntil) {
		delete(t.entries, origin)
		return false
	}
	return true
}

// RecordFailure counts one failed login for origin and locks the origin when
// the count reaches the threshold. It returns the updated attempt count.
func (t *Throttle) RecordFailure(origin string, now time.Time) int {
	e, ok := t.entries[origin]
	if !ok {
		e = &lockout{}
		t.entries[origin] = e
	}
	e.count++
	e.lastAttempt = now
	if e.count >= t.threshold {
		e.lockedUntil = now.Add(t.duration)
	}
	return e.count
}

// RecordSuccess forgets every failure recorded for origin.
func (t *Throttle) RecordSuccess(origin string) {
	delete(t.entries, origin)
}
