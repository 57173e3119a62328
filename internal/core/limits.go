package core

import "time"

// Operational limits.
const (
	// DefaultChannel is the channel every session starts in.
	DefaultChannel = "general"

	// DefaultName is the display name of a session that has not joined yet.
	DefaultName = "Anonymous"

	// MaxNameLength is the maximum number of characters kept from a display
	// name or channel name. Longer values are truncated, not rejected.
	MaxNameLength = 50

	// MaxTextLength is the maximum number of characters kept from a chat
	// message body.
	MaxTextLength = 2000

	// DefaultHistoryCap is the number of messages retained per channel.
	DefaultHistoryCap = 200

	// LockThreshold is the number of failed admin logins from one origin
	// after which the origin is locked out.
	LockThreshold = 5

	// LockDuration is how long a locked origin stays locked.
	LockDuration = 5 * time.Minute

	// sendBuffer is the outbound queue depth per session. A session whose
	// queue is full drops events instead of stalling the relay.
	sendBuffer = 256

	// chatRate and chatBurst bound how fast one session may post messages.
	chatRate  = 5
	chatBurst = 10
)
