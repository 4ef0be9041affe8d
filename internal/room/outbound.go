package room

import "github.com/arcforge/arcforge/internal/protocol"

// Outbound is what the room actor pushes onto a player's Sink: either a
// full game-state snapshot (sent once, on entering InProgress) or one
// game-produced server message. The connection handler (which owns the
// codec and the player's envelope sequence counter) is responsible for
// wrapping these into Envelopes — the snapshot becomes
// System(RoomState{data}), a message becomes Game(encoded).
type Outbound[GameState any, ServerMsg any] struct {
	IsSnapshot bool
	Snapshot   GameState
	Message    ServerMsg
}

func outboundSnapshot[GS any, SM any](s GS) Outbound[GS, SM] {
	return Outbound[GS, SM]{IsSnapshot: true, Snapshot: s}
}

func outboundMessage[GS any, SM any](m SM) Outbound[GS, SM] {
	return Outbound[GS, SM]{IsSnapshot: false, Message: m}
}

// Info is a point-in-time snapshot of a room's membership and lifecycle
// state, returned by GetInfo and used by Manager.ListRooms.
type Info struct {
	RoomID      protocol.RoomID
	State       State
	PlayerCount int
	MaxPlayers  int
}
