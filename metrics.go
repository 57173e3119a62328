package main

import (
	"context"
	"log/slog"
	"time"

	"chatrelay/server/internal/core"
)

// statsSource is the part of the relay RunMetrics reads.
type statsSource interface {
	Stats() (messages uint64, sessions int)
}

var _ statsSource = (*core.Relay)(nil)

// RunMetrics logs relay stats every interval until ctx is canceled. Idle
// intervals are not logged.
func RunMetrics(ctx context.Context, relay statsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages, sessions := relay.Stats()
			if sessions > 0 || messages > 0 {
				slog.Info("metrics",
					"sessions", sessions,
					"messages", messages,
					"messages_per_sec", float64(messages)/interval.Seconds(),
				)
			}
		}
	}
}
