// Package vectorrace is a tick-driven GameLogic: a top-down driving game
// where players accelerate, steer, and collide along a procedurally curved
// road, with server-side anti-cheat rejecting impossible movement. Adapted
// from a standalone racer that ran its own physics loop per room; here the
// same simulation runs inside the framework's room actor via
// GameLogic.Tick, so there is no win condition — like the game it is
// adapted from, a race never ends on its own.
package vectorrace

import (
	"errors"
	"time"

	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
)

var errUnknownPlayer = errors.New("vectorrace: message from unseated player")

// Config carries no per-room customization in this revision; every room
// uses the same tuning constants from config.go.
type Config struct{}

// Input is one frame of player control, sent every time the client's own
// input loop ticks.
type Input struct {
	Sequence uint8   `json:"sequence"`
	Keys     uint8   `json:"keys"` // bit flags: Up=1, Down=2, Left=4, Right=8
	Steering float64 `json:"steering"`
	Throttle float64 `json:"throttle"`
	Flags    uint8   `json:"flags"`
}

// Player is one seat's live simulation state. Touched only from inside the
// room actor's goroutine (via Tick/HandleMessage/OnPlayerDisconnect), so it
// carries no mutex of its own.
type Player struct {
	ID    protocol.PlayerID
	Name  string
	Color uint8

	X, Y, Speed, Angle, Rating float64
	Exploded                   bool
	Kicked                     bool
	ExplodedAt                 time.Time

	LastValidX, LastValidY float64
	Violations             int
	InputsThisTick         int

	CurrentInput Input
}

func (p *Player) snapshot() PlayerState {
	return PlayerState{
		ID: p.ID, Name: p.Name, Color: p.Color,
		X: p.X, Y: p.Y, Speed: p.Speed, Angle: p.Angle, Rating: p.Rating,
		Exploded: p.Exploded, Kicked: p.Kicked,
	}
}

// PlayerState is the public, wire-facing view of a Player.
type PlayerState struct {
	ID       protocol.PlayerID `json:"id"`
	Name     string            `json:"name"`
	Color    uint8             `json:"color"`
	X        float64           `json:"x"`
	Y        float64           `json:"y"`
	Speed    float64           `json:"speed"`
	Angle    float64           `json:"angle"`
	Rating   float64           `json:"rating"`
	Exploded bool              `json:"exploded"`
	Kicked   bool              `json:"kicked"`
}

// State is the whole room's simulation: every seated player plus the
// physics tick counter. Order is kept separately from the map so iteration
// (and therefore push-collision resolution) is deterministic run to run.
type State struct {
	Players map[protocol.PlayerID]*Player
	Order   []protocol.PlayerID
	Tick    uint64
}

// Event is the sole server message, an internally tagged union covering a
// periodic state broadcast and the handful of things that can happen to a
// seated player between broadcasts.
type Event struct {
	Type string `json:"type"`

	Tick    uint64       `json:"tick,omitempty"`
	Players []PlayerState `json:"players,omitempty"`

	Player protocol.PlayerID `json:"player,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

func stateUpdateEvent(tick uint64, players []PlayerState) Event {
	return Event{Type: "StateUpdate", Tick: tick, Players: players}
}

func playerLeftEvent(player protocol.PlayerID) Event {
	return Event{Type: "PlayerLeft", Player: player}
}

func playerKickedEvent(player protocol.PlayerID, reason string) Event {
	return Event{Type: "PlayerKicked", Player: player, Reason: reason}
}

// Logic implements room.GameLogic[Config, State, Input, Event].
type Logic struct{}

func (Logic) Init(_ Config, players []protocol.PlayerID) State {
	st := State{
		Players: make(map[protocol.PlayerID]*Player, len(players)),
		Order:   append([]protocol.PlayerID(nil), players...),
	}
	startX := GetRoadCurve(0)
	for i, id := range players {
		st.Players[id] = &Player{
			ID: id, Name: id.String(), Color: uint8(i % 16),
			X: startX, Y: 0, LastValidX: startX, LastValidY: 0,
		}
	}
	return st
}

func (Logic) ValidateMessage(state *State, sender protocol.PlayerID, _ Input) error {
	if _, ok := state.Players[sender]; !ok {
		return errUnknownPlayer
	}
	return nil
}

// HandleMessage only stores the latest input frame; it takes effect on the
// next Tick, keeping input handling separate from the physics step that
// reads it.
func (Logic) HandleMessage(state *State, sender protocol.PlayerID, msg Input) []room.Dispatch[Event] {
	p := state.Players[sender]
	if p == nil || p.Kicked {
		return nil
	}
	if validateInputRate(p) == validationIgnoreInput {
		return nil
	}
	p.CurrentInput = msg
	return nil
}

// IsFinished always reports false: a race never ends on its own — players
// join a room, drive, and eventually leave it.
func (Logic) IsFinished(_ *State) bool { return false }

func (Logic) Tick(state *State, dt time.Duration) []room.Dispatch[Event] {
	players := make([]*Player, 0, len(state.Order))
	for _, id := range state.Order {
		if p, ok := state.Players[id]; ok {
			players = append(players, p)
		}
	}
	for _, p := range players {
		p.InputsThisTick = 0
	}

	secs := dt.Seconds()
	for _, p := range players {
		updatePlayer(p, secs)
	}

	grid := newSpatialGrid(100)
	grid.update(players)
	for _, pair := range grid.potentialCollisions() {
		checkCollision(pair[0], pair[1], secs)
	}

	var kicked []protocol.PlayerID
	for _, p := range players {
		if p.Kicked {
			continue
		}
		result := validateMovement(p, secs)
		if result == validationKick {
			kicked = append(kicked, p.ID)
			continue
		}
		applyValidation(p, result)

		result = validatePosition(p)
		applyValidation(p, result)

		if p.Exploded && time.Since(p.ExplodedAt) >= RespawnDelay {
			respawn(p)
		}
	}

	state.Tick++
	snapshots := make([]PlayerState, 0, len(players))
	for _, p := range players {
		snapshots = append(snapshots, p.snapshot())
	}

	out := []room.Dispatch[Event]{
		{Recipient: protocol.RecipientAll(), Message: stateUpdateEvent(state.Tick, snapshots)},
	}
	for _, id := range kicked {
		if p, ok := state.Players[id]; ok {
			p.Kicked = true
		}
		out = append(out, room.Dispatch[Event]{
			Recipient: protocol.RecipientAll(),
			Message:   playerKickedEvent(id, "speed hack detected"),
		})
	}
	return out
}

func (Logic) OnPlayerDisconnect(state *State, player protocol.PlayerID) []room.Dispatch[Event] {
	delete(state.Players, player)
	return []room.Dispatch[Event]{
		{Recipient: protocol.RecipientAll(), Message: playerLeftEvent(player)},
	}
}

func (Logic) OnPlayerReconnect(_ *State, _ protocol.PlayerID) []room.Dispatch[Event] { return nil }

func (Logic) RoomConfig() room.Config {
	cfg := room.DefaultConfig()
	cfg.MinPlayers = MinPlayers
	cfg.MaxPlayers = MaxPlayersPerRoom
	cfg.TickRateHz = TickRateHz
	return cfg
}

// respawn resets an exploded player at a safe point further down the road
// rather than at the scene of the explosion.
func respawn(p *Player) {
	p.Exploded = false
	p.Speed = 0
	p.Angle = 0
	p.Y += 200
	p.X = GetRoadCurve(p.Y)
	p.LastValidX = p.X
	p.LastValidY = p.Y
	p.Violations = 0
}
