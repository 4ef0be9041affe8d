package room

import (
	"context"
	"sync/atomic"

	"github.com/arcforge/arcforge/internal/protocol"
)

// nextRoomID is the process-wide monotonic counter backing every room's
// RoomID; never reused.
var nextRoomID uint64

// Manager is a single-owner room registry: {RoomId -> Handle} plus the
// inverse {PlayerId -> RoomId} index enforcing "one room per player"
// one room at a time. Like session.Manager, it performs no
// internal locking — callers share one external mutex (see
// internal/server.State).
type Manager[GC any, GS any, CM any, SM any] struct {
	logic       GameLogic[GC, GS, CM, SM]
	channelSize int

	rooms      map[protocol.RoomID]Handle[GC, GS, CM, SM]
	playerRoom map[protocol.PlayerID]protocol.RoomID
}

// NewManager builds an empty registry driven by logic. channelSize bounds
// every room actor's command inbox; callers that don't care about tuning
// it can pass DefaultChannelSize.
func NewManager[GC any, GS any, CM any, SM any](logic GameLogic[GC, GS, CM, SM], channelSize int) *Manager[GC, GS, CM, SM] {
	if channelSize <= 0 {
		channelSize = DefaultChannelSize
	}
	return &Manager[GC, GS, CM, SM]{
		logic:       logic,
		channelSize: channelSize,
		rooms:       make(map[protocol.RoomID]Handle[GC, GS, CM, SM]),
		playerRoom: make(map[protocol.PlayerID]protocol.RoomID),
	}
}

// CreateRoom allocates a monotonic RoomID and spawns its actor, deriving
// the room's capacity/tick config from logic.RoomConfig() applied to
// gameConfig (the game decides its own room shape via RoomConfig()).
func (m *Manager[GC, GS, CM, SM]) CreateRoom(ctx context.Context, gameConfig GC) protocol.RoomID {
	id := protocol.RoomID(atomic.AddUint64(&nextRoomID, 1))
	cfg := m.logic.RoomConfig()
	handle := Spawn(ctx, id, cfg, m.logic, gameConfig, m.channelSize)
	m.rooms[id] = handle
	return id
}

// JoinRoom admits player into roomID via sink. Rejects if the player is
// already in any room, even the same one.
func (m *Manager[GC, GS, CM, SM]) JoinRoom(ctx context.Context, player protocol.PlayerID, roomID protocol.RoomID, sink *Sink[Outbound[GS, SM]]) error {
	if current, in := m.playerRoom[player]; in {
		return errAlreadyInRoom(player, current)
	}
	handle, ok := m.rooms[roomID]
	if !ok {
		return errNotFound(roomID)
	}
	if err := handle.Join(ctx, player, sink); err != nil {
		return err
	}
	m.playerRoom[player] = roomID
	return nil
}

// LeaveRoom removes player from whatever room it currently occupies.
func (m *Manager[GC, GS, CM, SM]) LeaveRoom(ctx context.Context, player protocol.PlayerID) error {
	roomID, in := m.playerRoom[player]
	if !in {
		return errNotInRoom(player, 0)
	}
	handle, ok := m.rooms[roomID]
	if !ok {
		delete(m.playerRoom, player)
		return errNotFound(roomID)
	}
	if err := handle.Leave(ctx, player); err != nil {
		return err
	}
	delete(m.playerRoom, player)
	return nil
}

// RouteMessage forwards msg into player's current room.
func (m *Manager[GC, GS, CM, SM]) RouteMessage(ctx context.Context, player protocol.PlayerID, msg CM) error {
	roomID, in := m.playerRoom[player]
	if !in {
		return errNotInRoom(player, 0)
	}
	handle, ok := m.rooms[roomID]
	if !ok {
		return errNotFound(roomID)
	}
	return handle.SendMessage(ctx, player, msg)
}

// JoinOrCreate joins player into any joinable, under-capacity room, or
// creates a fresh one if none qualify. A lost join race (another caller
// fills the last slot between the scan and the join) is retried against
// the remaining candidates rather than failing outright.
func (m *Manager[GC, GS, CM, SM]) JoinOrCreate(ctx context.Context, player protocol.PlayerID, gameConfig GC, sink *Sink[Outbound[GS, SM]]) (protocol.RoomID, error) {
	if current, in := m.playerRoom[player]; in {
		return 0, errAlreadyInRoom(player, current)
	}

	for _, candidate := range m.roomIDs() {
		handle, ok := m.rooms[candidate]
		if !ok {
			continue
		}
		info, err := handle.GetInfo(ctx)
		if err != nil {
			continue // assumed shutting down
		}
		if !info.State.IsJoinable() || info.PlayerCount >= info.MaxPlayers {
			continue
		}
		if err := handle.Join(ctx, player, sink); err != nil {
			continue // lost the race or room changed state; try the next candidate
		}
		m.playerRoom[player] = candidate
		return candidate, nil
	}

	roomID := m.CreateRoom(ctx, gameConfig)
	if err := m.JoinRoom(ctx, player, roomID, sink); err != nil {
		return 0, err
	}
	return roomID, nil
}

// ListRooms returns every currently joinable room's info. Rooms that fail
// to respond are silently skipped (assumed shutting down).
func (m *Manager[GC, GS, CM, SM]) ListRooms(ctx context.Context) []Info {
	var out []Info
	for _, id := range m.roomIDs() {
		handle, ok := m.rooms[id]
		if !ok {
			continue
		}
		info, err := handle.GetInfo(ctx)
		if err != nil {
			continue
		}
		if info.State.IsJoinable() {
			out = append(out, info)
		}
	}
	return out
}

// GetRoomInfo returns roomID's current snapshot.
func (m *Manager[GC, GS, CM, SM]) GetRoomInfo(ctx context.Context, roomID protocol.RoomID) (Info, error) {
	handle, ok := m.rooms[roomID]
	if !ok {
		return Info{}, errNotFound(roomID)
	}
	return handle.GetInfo(ctx)
}

// DestroyRoom shuts down roomID and removes every player that was in it.
func (m *Manager[GC, GS, CM, SM]) DestroyRoom(ctx context.Context, roomID protocol.RoomID) {
	if handle, ok := m.rooms[roomID]; ok {
		handle.Shutdown(ctx)
	}
	delete(m.rooms, roomID)
	for player, r := range m.playerRoom {
		if r == roomID {
			delete(m.playerRoom, player)
		}
	}
}

// PlayerRoom returns the room player currently occupies, if any.
func (m *Manager[GC, GS, CM, SM]) PlayerRoom(player protocol.PlayerID) (protocol.RoomID, bool) {
	r, ok := m.playerRoom[player]
	return r, ok
}

// RoomHandles returns every currently known handle, cloned so callers can
// query them without holding the manager's external lock.
func (m *Manager[GC, GS, CM, SM]) RoomHandles() []Handle[GC, GS, CM, SM] {
	out := make([]Handle[GC, GS, CM, SM], 0, len(m.rooms))
	for _, h := range m.rooms {
		out = append(out, h)
	}
	return out
}

// RoomCount reports how many rooms are currently tracked.
func (m *Manager[GC, GS, CM, SM]) RoomCount() int { return len(m.rooms) }

func (m *Manager[GC, GS, CM, SM]) roomIDs() []protocol.RoomID {
	ids := make([]protocol.RoomID, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}
