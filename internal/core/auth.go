package core

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Secret is the shared admin password. It is configured either in plain
// text or as a bcrypt hash; the zero value means no secret is configured.
type Secret struct {
	plain string
	hash  []byte
}

// PlainSecret returns a secret compared in constant time against candidates.
func PlainSecret(password string) Secret {
	return Secret{plain: password}
}

// HashedSecret returns a secret verified with bcrypt.
func HashedSecret(hash string) Secret {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return Secret{}
	}
	return Secret{hash: []byte(hash)}
}

// Configured reports whether password-based admin login is enabled.
func (s Secret) Configured() bool {
	return s.plain != "" || len(s.hash) > 0
}

// Matches reports whether candidate is the configured secret.
func (s Secret) Matches(candidate string) bool {
	switch {
	case len(s.hash) > 0:
		return bcrypt.CompareHashAndPassword(s.hash, []byte(candidate)) == nil
	case s.plain != "":
		return subtle.ConstantTimeCompare([]byte(s.plain), []byte(candidate)) == 1
	default:
		return false
	}
}

// String never reveals the secret.
func (s Secret) String() string {
	if !s.Configured() {
		return "(none)"
	}
	return "(secret)"
}
