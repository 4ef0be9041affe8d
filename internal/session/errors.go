package session

import (
	"fmt"

	"github.com/arcforge/arcforge/internal/protocol"
)

// ErrKind classifies a session-layer failure (kinds, not names, so callers
// can switch on it without string-matching).
type ErrKind int

const (
	ErrKindAuthFailed ErrKind = iota
	ErrKindNotFound
	ErrKindInvalidToken
	ErrKindExpired
	ErrKindAlreadyConnected
)

// Error is the session package's error kind.
type Error struct {
	Kind     ErrKind
	PlayerID protocol.PlayerID
	Reason   string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindAuthFailed:
		return fmt.Sprintf("session: auth failed: %s", e.Reason)
	case ErrKindNotFound:
		return fmt.Sprintf("session: not found: %s", e.PlayerID)
	case ErrKindInvalidToken:
		return "session: invalid token"
	case ErrKindExpired:
		return fmt.Sprintf("session: expired: %s", e.PlayerID)
	case ErrKindAlreadyConnected:
		return fmt.Sprintf("session: already connected: %s", e.PlayerID)
	default:
		return "session: error"
	}
}

func errAuthFailed(reason string) error { return &Error{Kind: ErrKindAuthFailed, Reason: reason} }
func errNotFound(p protocol.PlayerID) error {
	return &Error{Kind: ErrKindNotFound, PlayerID: p}
}
func errInvalidToken() error { return &Error{Kind: ErrKindInvalidToken} }
func errExpired(p protocol.PlayerID) error {
	return &Error{Kind: ErrKindExpired, PlayerID: p}
}
func errAlreadyConnected(p protocol.PlayerID) error {
	return &Error{Kind: ErrKindAlreadyConnected, PlayerID: p}
}
