package core

import (
	"errors"
	"fmt"
)

// Errors returned by Relay operations. Each one is also delivered to the
// originating session as an error event or a failed admin_action_result;
// none of them ever reaches another session.
var (
	// ErrUnauthorized is returned when a non-admin issues an admin action.
	ErrUnauthorized = errors.New("unauthorized: admin only")

	// ErrUnknownAction is returned for an admin action name that is not
	// part of the command set.
	ErrUnknownAction = errors.New("unknown admin action")

	// ErrRateLimited is returned when a locked origin tries to log in as
	// admin, or when a session posts faster than the flood guard allows.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound is returned when a target session or message is absent.
	ErrNotFound = errors.New("not found")

	// ErrPersistence is returned when the runtime configuration could not
	// be written. The in-memory configuration still reflects the change.
	ErrPersistence = errors.New("configuration not persisted")

	// ErrBanned is returned when a banned name or origin tries to connect
	// or join.
	ErrBanned = errors.New("banned")

	// ErrMuted is returned when a muted session posts a message.
	ErrMuted = errors.New("muted")

	// ErrBadPassword is returned when the admin password does not match.
	ErrBadPassword = errors.New("admin password incorrect")

	// ErrSessionClosed is returned for operations on an unregistered session.
	ErrSessionClosed = errors.New("session closed")
)

// ValidationError reports a missing or malformed field in a request.
type ValidationError struct {
	Action string
	Field  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s needs %s", e.Action, e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
