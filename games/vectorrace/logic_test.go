package vectorrace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcforge/arcforge/internal/protocol"
	"github.com/arcforge/arcforge/internal/room"
)

func recvWithin(t *testing.T, sink *room.Sink[room.Outbound[State, Event]], d time.Duration) room.Outbound[State, Event] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	v, ok := sink.Recv(ctx)
	require.True(t, ok, "expected a value before timeout")
	return v
}

func drainUntilType(t *testing.T, sink *room.Sink[room.Outbound[State, Event]], typ string, d time.Duration) room.Outbound[State, Event] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	for {
		v, ok := sink.Recv(ctx)
		require.True(t, ok, "expected %q before timeout", typ)
		if v.Message.Type == typ {
			return v
		}
	}
}

func TestInitSeatsPlayersAtRoadCenter(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1, 2, 3})
	require.Len(t, state.Players, 3)
	require.Equal(t, []protocol.PlayerID{1, 2, 3}, state.Order)
	for _, p := range state.Players {
		assert.Equal(t, GetRoadCurve(0), p.X)
		assert.Equal(t, 0.0, p.Y)
	}
}

func TestValidateMessageRejectsUnseatedSender(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1})
	err := logic.ValidateMessage(&state, 99, Input{})
	assert.ErrorIs(t, err, errUnknownPlayer)
}

func TestHandleMessageStoresLatestInput(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1})
	logic.HandleMessage(&state, 1, Input{Keys: 1, Sequence: 7})
	assert.Equal(t, uint8(7), state.Players[1].CurrentInput.Sequence)
}

func TestHandleMessageIgnoresKickedPlayer(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1})
	state.Players[1].Kicked = true
	logic.HandleMessage(&state, 1, Input{Sequence: 3})
	assert.Equal(t, uint8(0), state.Players[1].CurrentInput.Sequence)
}

func TestTickAdvancesTickCounterAndBroadcastsState(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1, 2})
	state.Players[1].CurrentInput = Input{Keys: 1}

	dispatches := logic.Tick(&state, 16*time.Millisecond)
	require.Equal(t, uint64(1), state.Tick)
	require.Len(t, dispatches, 1)
	assert.Equal(t, "StateUpdate", dispatches[0].Message.Type)
	assert.Equal(t, protocol.RecipientAll(), dispatches[0].Recipient)
	assert.Len(t, dispatches[0].Message.Players, 2)
}

func TestTickRespawnsPlayerAfterDelay(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1})
	p := state.Players[1]
	p.Exploded = true
	p.ExplodedAt = time.Now().Add(-2 * RespawnDelay)

	logic.Tick(&state, 16*time.Millisecond)
	assert.False(t, p.Exploded)
}

func TestOnPlayerDisconnectRemovesPlayerAndBroadcasts(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1, 2})
	dispatches := logic.OnPlayerDisconnect(&state, 1)

	_, stillSeated := state.Players[1]
	assert.False(t, stillSeated)
	require.Len(t, dispatches, 1)
	assert.Equal(t, "PlayerLeft", dispatches[0].Message.Type)
	assert.Equal(t, protocol.PlayerID(1), dispatches[0].Message.Player)
}

func TestIsFinishedAlwaysFalse(t *testing.T) {
	logic := Logic{}
	state := logic.Init(Config{}, []protocol.PlayerID{1})
	assert.False(t, logic.IsFinished(&state))
}

// TestRoomActorBroadcastsTickedStateUpdates drives the real room actor (not
// a bare Logic call) to confirm the 60Hz tick scheduler actually invokes
// Tick and fans StateUpdate out to every joined player.
func TestRoomActorBroadcastsTickedStateUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logic := Logic{}
	handle := room.Spawn[Config, State, Input, Event](ctx, 1, logic.RoomConfig(), logic, Config{}, 0)

	sinkP1 := room.NewSink[room.Outbound[State, Event]]()
	sinkP2 := room.NewSink[room.Outbound[State, Event]]()
	require.NoError(t, handle.Join(ctx, 1, sinkP1))
	require.NoError(t, handle.Join(ctx, 2, sinkP2))

	require.NoError(t, handle.SendMessage(ctx, 1, Input{Keys: 1, Sequence: 1}))

	update := drainUntilType(t, sinkP1, "StateUpdate", time.Second)
	assert.GreaterOrEqual(t, update.Message.Tick, uint64(1))
	assert.Len(t, update.Message.Players, 2)

	drainUntilType(t, sinkP2, "StateUpdate", time.Second)
}

func TestRoomActorBroadcastsPlayerLeftOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logic := Logic{}
	handle := room.Spawn[Config, State, Input, Event](ctx, 1, logic.RoomConfig(), logic, Config{}, 0)

	sinkP1 := room.NewSink[room.Outbound[State, Event]]()
	sinkP2 := room.NewSink[room.Outbound[State, Event]]()
	require.NoError(t, handle.Join(ctx, 1, sinkP1))
	require.NoError(t, handle.Join(ctx, 2, sinkP2))

	require.NoError(t, handle.Leave(ctx, 1))

	left := drainUntilType(t, sinkP2, "PlayerLeft", time.Second)
	assert.Equal(t, protocol.PlayerID(1), left.Message.Player)
}
