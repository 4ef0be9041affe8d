package room

import (
	"fmt"

	"github.com/arcforge/arcforge/internal/protocol"
)

// ErrKind classifies a room-layer failure (kinds, not names).
type ErrKind int

const (
	ErrKindNotFound ErrKind = iota
	ErrKindRoomFull
	ErrKindAlreadyInRoom
	ErrKindNotInRoom
	ErrKindInvalidState
	ErrKindUnavailable
)

// Error is the room package's error kind.
type Error struct {
	Kind     ErrKind
	RoomID   protocol.RoomID
	PlayerID protocol.PlayerID
	Reason   string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrKindNotFound:
		return fmt.Sprintf("room: not found: %s", e.RoomID)
	case ErrKindRoomFull:
		return fmt.Sprintf("room: full: %s", e.RoomID)
	case ErrKindAlreadyInRoom:
		return fmt.Sprintf("room: %s already in room %s", e.PlayerID, e.RoomID)
	case ErrKindNotInRoom:
		return fmt.Sprintf("room: %s not in room %s", e.PlayerID, e.RoomID)
	case ErrKindInvalidState:
		return fmt.Sprintf("room: invalid state: %s", e.Reason)
	case ErrKindUnavailable:
		return fmt.Sprintf("room: unavailable: %s", e.RoomID)
	default:
		return "room: error"
	}
}

func errNotFound(id protocol.RoomID) error { return &Error{Kind: ErrKindNotFound, RoomID: id} }
func errRoomFull(id protocol.RoomID) error { return &Error{Kind: ErrKindRoomFull, RoomID: id} }
func errAlreadyInRoom(p protocol.PlayerID, r protocol.RoomID) error {
	return &Error{Kind: ErrKindAlreadyInRoom, PlayerID: p, RoomID: r}
}
func errNotInRoom(p protocol.PlayerID, r protocol.RoomID) error {
	return &Error{Kind: ErrKindNotInRoom, PlayerID: p, RoomID: r}
}
func errInvalidState(reason string) error {
	return &Error{Kind: ErrKindInvalidState, Reason: reason}
}
func errUnavailable(id protocol.RoomID) error {
	return &Error{Kind: ErrKindUnavailable, RoomID: id}
}
