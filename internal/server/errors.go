// Package server wires protocol, session, room, and transport together
// into the per-connection handshake and main-loop behavior, plus the
// accept loop and background sweeps that own the server's lifetime.
package server

import (
	"errors"
	"fmt"

	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
	"github.com/arcforge/arcforge/internal/session"
)

// ProtocolVersion is the only handshake version this build accepts.
const ProtocolVersion uint32 = 1

// Error is the server's sum type over subsystem errors: it lifts whatever the session/room/
// protocol layers returned without discarding the original error.
type Error struct {
	Cause error
}

func (e *Error) Error() string { return fmt.Sprintf("server: %v", e.Cause) }
func (e *Error) Unwrap() error { return e.Cause }

// wrap lifts a subsystem error into *Error, or returns nil unchanged.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Cause: err}
}

// errorCodeAndMessage maps a subsystem error to its HTTP-style wire code
// and message. Unrecognized errors fall back to 400.
func errorCodeAndMessage(err error) (uint16, string) {
	var sessErr *session.Error
	if errors.As(err, &sessErr) {
		switch sessErr.Kind {
		case session.ErrKindAuthFailed:
			return 401, "unauthorized"
		case session.ErrKindAlreadyConnected:
			return 409, "already connected"
		case session.ErrKindInvalidToken, session.ErrKindExpired:
			return 409, sessErr.Error()
		case session.ErrKindNotFound:
			return 404, sessErr.Error()
		}
	}

	var roomErr *room.Error
	if errors.As(err, &roomErr) {
		switch roomErr.Kind {
		case room.ErrKindNotFound:
			return 404, roomErr.Error()
		case room.ErrKindRoomFull, room.ErrKindAlreadyInRoom, room.ErrKindNotInRoom, room.ErrKindInvalidState:
			return 409, roomErr.Error()
		case room.ErrKindUnavailable:
			return 400, roomErr.Error()
		}
	}

	var codecErr *protocol.CodecError
	if errors.As(err, &codecErr) {
		return 400, codecErr.Error()
	}

	return 400, err.Error()
}
