package server

import (
	"context"
	"sync"

	"github.com/arcforge/arcforge/config"
	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
	"github.com/arcforge/arcforge/internal/session"
)

// State is the single shared registry pair every connection handler and
// the accept loop reach into. Neither session.Manager nor room.Manager is
// internally thread-safe (both are single-owner by design), so a single
// mutex guards every operation against both — acquired only for short,
// non-suspending critical sections, except where a room-actor reply wait is
// folded into the same call as an accepted, documented contention hotspot.
type State[GC any, GS any, CM any, SM any] struct {
	Config        *config.ServerConfig
	Authenticator session.Authenticator
	Codec         protocol.Codec
	GameConfig    GC

	mu       sync.Mutex
	sessions *session.Manager
	rooms    *room.Manager[GC, GS, CM, SM]
}

// NewState builds the shared registry pair for one game's logic.
func NewState[GC any, GS any, CM any, SM any](
	cfg *config.ServerConfig,
	auth session.Authenticator,
	codec protocol.Codec,
	logic room.GameLogic[GC, GS, CM, SM],
	gameConfig GC,
) *State[GC, GS, CM, SM] {
	return &State[GC, GS, CM, SM]{
		Config:        cfg,
		Authenticator: auth,
		Codec:         codec,
		GameConfig:    gameConfig,
		sessions:      session.NewManager(session.Config{ReconnectGrace: cfg.ReconnectGrace}),
		rooms:         room.NewManager[GC, GS, CM, SM](logic, cfg.RoomChannelSize),
	}
}

func (s *State[GC, GS, CM, SM]) CreateSession(playerID protocol.PlayerID) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Create(playerID)
}

func (s *State[GC, GS, CM, SM]) Disconnect(playerID protocol.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Disconnect(playerID)
}

func (s *State[GC, GS, CM, SM]) SweepSessions() []protocol.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := s.sessions.ExpireStale()
	s.sessions.CleanupExpired()
	return expired
}

func (s *State[GC, GS, CM, SM]) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}

// sessionToken returns playerID's current reconnection token, if any, for
// surfacing on the RoomJoined response so a dropped client can reconnect.
func (s *State[GC, GS, CM, SM]) sessionToken(playerID protocol.PlayerID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions.Get(playerID)
	if !ok {
		return "", false
	}
	return sess.ReconnectToken, true
}

func (s *State[GC, GS, CM, SM]) JoinRoom(ctx context.Context, player protocol.PlayerID, roomID protocol.RoomID, sink *room.Sink[room.Outbound[GS, SM]]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.JoinRoom(ctx, player, roomID, sink)
}

func (s *State[GC, GS, CM, SM]) JoinOrCreate(ctx context.Context, player protocol.PlayerID, sink *room.Sink[room.Outbound[GS, SM]]) (protocol.RoomID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.JoinOrCreate(ctx, player, s.GameConfig, sink)
}

func (s *State[GC, GS, CM, SM]) LeaveRoom(ctx context.Context, player protocol.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.LeaveRoom(ctx, player)
}

func (s *State[GC, GS, CM, SM]) RouteMessage(ctx context.Context, player protocol.PlayerID, msg CM) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.RouteMessage(ctx, player, msg)
}

func (s *State[GC, GS, CM, SM]) ListRooms(ctx context.Context) []room.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms.ListRooms(ctx)
}

// SweepEmptyRooms destroys every room with zero members and no active
// game, freeing its actor goroutine. Run periodically by the server loop.
func (s *State[GC, GS, CM, SM]) SweepEmptyRooms(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, handle := range s.rooms.RoomHandles() {
		info, err := handle.GetInfo(ctx)
		if err != nil {
			continue
		}
		if info.PlayerCount == 0 && (info.State == room.StateWaitingForPlayers || info.State == room.StateFinished) {
			s.rooms.DestroyRoom(ctx, info.RoomID)
			removed++
		}
	}
	return removed
}
