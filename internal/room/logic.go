package room

import (
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
)

// Dispatch pairs an outbound server message with its fan-out class. A
// GameLogic method returns a slice of these; the room actor performs the
// actual delivery.
type Dispatch[ServerMsg any] struct {
	Recipient protocol.Recipient
	Message   ServerMsg
}

// GameLogic is the capability an embedding application injects to drive
// one family of games. It carries four type parameters for the game's own
// config, state, client-message, and server-message types, so one game's
// shapes never leak into another's. GameConfig is named distinctly from this
// package's own Config (room capacity/tick settings) and GameState
// distinctly from this package's own State (the WaitingForPlayers..
// Destroying lifecycle) to keep the two families of "config" and "state"
// unambiguous to a reader. A GameLogic value is instance state only
// insofar as it may hold injected dependencies (e.g. a rule set); all game
// state lives in the GameState value the room actor owns, never in the
// GameLogic implementation itself.
type GameLogic[GameConfig any, GameState any, ClientMsg any, ServerMsg any] interface {
	// Init builds the initial game state once a room has enough players to
	// start (the room's own State transitions WaitingForPlayers -> Starting
	// trigger this).
	Init(config GameConfig, players []protocol.PlayerID) GameState

	// HandleMessage applies sender's message to state and returns the
	// messages it produces, addressed by Recipient.
	HandleMessage(state *GameState, sender protocol.PlayerID, msg ClientMsg) []Dispatch[ServerMsg]

	// ValidateMessage vets a message before HandleMessage runs. A non-nil
	// error causes the room actor to drop the message silently.
	ValidateMessage(state *GameState, sender protocol.PlayerID, msg ClientMsg) error

	// IsFinished reports whether the game has reached a terminal outcome.
	// Checked by the room actor after every HandleMessage and Tick call.
	IsFinished(state *GameState) bool

	// Tick advances real-time games by exactly dt. Event-driven games
	// (RoomConfig().TickRateHz == 0) never have this called.
	Tick(state *GameState, dt time.Duration) []Dispatch[ServerMsg]

	// OnPlayerDisconnect lets the game react to a member leaving an active
	// room (e.g. forfeiting their turn).
	OnPlayerDisconnect(state *GameState, player protocol.PlayerID) []Dispatch[ServerMsg]

	// OnPlayerReconnect lets the game react to a previously-disconnected
	// member resuming. Reserved for a future reconnection-resync path.
	OnPlayerReconnect(state *GameState, player protocol.PlayerID) []Dispatch[ServerMsg]

	// RoomConfig supplies this game's capacity/tick-rate/reconnect policy.
	RoomConfig() Config
}
