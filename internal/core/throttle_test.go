package core

import (
	"testing"
	"time"
)

// attemptsFor returns the failure count recorded for origin.
func attemptsFor(th *Throttle, origin string) int {
	if e, ok := th.entries[origin]; ok {
		return e.count
	}
	return 0
}

func TestThrottleLocksAtThreshold(t *testing.T) {
	th := NewThrottle(0, 0)
	now := time.Unix(1_700_000_000, 0)

	for i := 1; i < LockThreshold; i++ {
		if n := th.RecordFailure("10.0.0.1", now); n != i {
			t.Fatalf("attempt %d: count = %d", i, n)
		}
		if th.Check("10.0.0.1", now) {
			t.Fatalf("locked after only %d failures", i)
		}
	}
	th.RecordFailure("10.0.0.1", now)
	if !th.Check("10.0.0.1", now) {
		t.Fatal("expected lock after threshold failures")
	}
	if th.Check("10.0.0.2", now) {
		t.Fatal("other origins must not be locked")
	}
}

func TestThrottleLockExpiresLazily(t *testing.T) {
	th := NewThrottle(2, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	th.RecordFailure("o", now)
	th.RecordFailure("o", now)
	if !th.Check("o", now.Add(59*time.Second)) {
		t.Fatal("expected lock before expiry")
	}
	if attemptsFor(th, "o") != 2 {
		t.Fatalf("attempts = %d, want 2", attemptsFor(th, "o"))
	}

	// The expiry instant itself counts as unlocked and clears the entry.
	if th.Check("o", now.Add(time.Minute)) {
		t.Fatal("expected lock to have expired")
	}
	if attemptsFor(th, "o") != 0 {
		t.Fatalf("expired entry should be removed, attempts = %d", attemptsFor(th, "o"))
	}

	// Counting starts over.
	th.RecordFailure("o", now.Add(2*time.Minute))
	if th.Check("o", now.Add(2*time.Minute)) {
		t.Fatal("a single failure after expiry must not lock")
	}
}

func TestThrottleSuccessResetsCount(t *testing.T) {
	th := NewThrottle(3, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	th.RecordFailure("o", now)
	th.RecordFailure("o", now)
	th.RecordSuccess("o")
	if attemptsFor(th, "o") != 0 {
		t.Fatalf("success should reset, attempts = %d", attemptsFor(th, "o"))
	}
	th.RecordFailure("o", now)
	th.RecordFailure("o", now)
	if th.Check("o", now) {
		t.Fatal("two failures after reset must not lock with threshold 3")
	}
}

func TestThrottleCheckIgnoresUnlockedEntry(t *testing.T) {
	th := NewThrottle(5, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	th.RecordFailure("o", now)
	if th.Check("o", now.Add(time.Hour)) {
		t.Fatal("an unlocked entry is never locked")
	}
	if attemptsFor(th, "o") != 1 {
		t.Fatalf("Check must not clear unlocked entries, attempts = %d", attemptsFor(th, "o"))
	}
}
