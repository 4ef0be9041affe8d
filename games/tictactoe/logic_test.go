package tictactoe

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

func assertNoRecvWithin(t *testing.T, sink *room.Sink[room.Outbound[State, Event]], d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_, ok := sink.Recv(ctx)
	assert.False(t, ok, "expected no value within timeout")
}

func TestValidateRejectsOutOfBounds(t *testing.T) {
	logic := Logic{}
	state := logic.Init(struct{}{}, []protocol.PlayerID{1, 2})
	err := logic.ValidateMessage(&state, 1, Move{Row: 3, Col: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0-2")
}

func TestValidateRejectsOccupiedCell(t *testing.T) {
	logic := Logic{}
	state := logic.Init(struct{}{}, []protocol.PlayerID{1, 2})
	logic.HandleMessage(&state, 1, Move{Row: 0, Col: 0})

	err := logic.ValidateMessage(&state, 2, Move{Row: 0, Col: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "occupied")
}

func TestValidateRejectsWrongTurn(t *testing.T) {
	logic := Logic{}
	state := logic.Init(struct{}{}, []protocol.PlayerID{1, 2})
	err := logic.ValidateMessage(&state, 2, Move{Row: 0, Col: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not your turn")
}

func TestValidateRejectsAfterGameOver(t *testing.T) {
	logic := Logic{}
	state := logic.Init(struct{}{}, []protocol.PlayerID{1, 2})
	winner := protocol.PlayerID(1)
	state.Winner = &winner

	err := logic.ValidateMessage(&state, 2, Move{Row: 1, Col: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "game is over")
}

func TestWinDetectionAllLines(t *testing.T) {
	for row := 0; row < 3; row++ {
		var b [3][3]Cell
		for col := 0; col < 3; col++ {
			b[row][col] = CellX
		}
		assert.True(t, checkWinner(&b, CellX), "row %d", row)
	}
	for col := 0; col < 3; col++ {
		var b [3][3]Cell
		for row := 0; row < 3; row++ {
			b[row][col] = CellO
		}
		assert.True(t, checkWinner(&b, CellO), "col %d", col)
	}

	var diag [3][3]Cell
	for i := 0; i < 3; i++ {
		diag[i][i] = CellX
	}
	assert.True(t, checkWinner(&diag, CellX), "main diagonal")

	var anti [3][3]Cell
	for i := 0; i < 3; i++ {
		anti[i][2-i] = CellO
	}
	assert.True(t, checkWinner(&anti, CellO), "anti-diagonal")
}

// setupGame spawns a room, joins two players, and drains the initial
// snapshot from both sinks.
func setupGame(t *testing.T, ctx context.Context) (room.Handle[struct{}, State, Move, Event], *room.Sink[room.Outbound[State, Event]], *room.Sink[room.Outbound[State, Event]]) {
	t.Helper()
	logic := Logic{}
	handle := room.Spawn[struct{}, State, Move, Event](ctx, 1, logic.RoomConfig(), logic, struct{}{}, 0)

	sinkP1 := room.NewSink[room.Outbound[State, Event]]()
	sinkP2 := room.NewSink[room.Outbound[State, Event]]()
	require.NoError(t, handle.Join(ctx, 1, sinkP1))
	require.NoError(t, handle.Join(ctx, 2, sinkP2))

	recvWithin(t, sinkP1, time.Second) // initial snapshot
	recvWithin(t, sinkP2, time.Second)
	return handle, sinkP1, sinkP2
}

func TestSingleMove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, sinkP1, sinkP2 := setupGame(t, ctx)

	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 0, Col: 0}))
	e := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "MoveMade", e.Message.Type)
	assert.Equal(t, "X", e.Message.Mark)
	assert.Equal(t, 0, e.Message.Row)
	assert.Equal(t, 0, e.Message.Col)
	recvWithin(t, sinkP2, time.Second)
}

// TestXWinsTopRow plays:
//
//	X | X | X
//	O | O | .
//	. | . | .
func TestXWinsTopRow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, sinkP1, sinkP2 := setupGame(t, ctx)

	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 0, Col: 0}))
	recvWithin(t, sinkP1, time.Second)
	recvWithin(t, sinkP2, time.Second)

	require.NoError(t, handle.SendMessage(ctx, 2, Move{Row: 1, Col: 0}))
	recvWithin(t, sinkP1, time.Second)
	recvWithin(t, sinkP2, time.Second)

	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 0, Col: 1}))
	recvWithin(t, sinkP1, time.Second)
	recvWithin(t, sinkP2, time.Second)

	require.NoError(t, handle.SendMessage(ctx, 2, Move{Row: 1, Col: 1}))
	recvWithin(t, sinkP1, time.Second)
	recvWithin(t, sinkP2, time.Second)

	// X plays (0,2) — winning move. Produces MoveMade then GameOver.
	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 0, Col: 2}))
	moveMade := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "MoveMade", moveMade.Message.Type)
	gameOver := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "GameOver", gameOver.Message.Type)
	require.NotNil(t, gameOver.Message.Winner)
	assert.Equal(t, protocol.PlayerID(1), *gameOver.Message.Winner)

	recvWithin(t, sinkP2, time.Second) // MoveMade
	gameOver2 := recvWithin(t, sinkP2, time.Second)
	assert.Equal(t, "GameOver", gameOver2.Message.Type)
}

// TestDiagonalWin plays:
//
//	X | O | .
//	O | X | .
//	. | . | X
func TestDiagonalWin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, sinkP1, sinkP2 := setupGame(t, ctx)

	moves := []struct {
		player protocol.PlayerID
		row    int
		col    int
	}{
		{1, 0, 0},
		{2, 0, 1},
		{1, 1, 1},
		{2, 1, 0},
	}
	for _, m := range moves {
		require.NoError(t, handle.SendMessage(ctx, m.player, Move{Row: m.row, Col: m.col}))
		recvWithin(t, sinkP1, time.Second)
		recvWithin(t, sinkP2, time.Second)
	}

	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 2, Col: 2}))
	recvWithin(t, sinkP1, time.Second) // MoveMade
	gameOver := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "GameOver", gameOver.Message.Type)
	require.NotNil(t, gameOver.Message.Winner)
	assert.Equal(t, protocol.PlayerID(1), *gameOver.Message.Winner)

	recvWithin(t, sinkP2, time.Second)
	recvWithin(t, sinkP2, time.Second)
}

// TestDraw plays a full board with no winner:
//
//	X | O | X
//	X | O | X
//	O | X | O
func TestDraw(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, sinkP1, sinkP2 := setupGame(t, ctx)

	moves := []struct {
		player protocol.PlayerID
		row    int
		col    int
	}{
		{1, 0, 0}, {2, 0, 1}, {1, 0, 2}, {2, 1, 1},
		{1, 1, 0}, {2, 2, 0}, {1, 1, 2}, {2, 2, 2},
	}
	for _, m := range moves {
		require.NoError(t, handle.SendMessage(ctx, m.player, Move{Row: m.row, Col: m.col}))
		recvWithin(t, sinkP1, time.Second)
		recvWithin(t, sinkP2, time.Second)
	}

	// X plays (2,1) — board full, draw.
	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 2, Col: 1}))
	recvWithin(t, sinkP1, time.Second) // MoveMade
	gameOver := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "GameOver", gameOver.Message.Type)
	assert.Nil(t, gameOver.Message.Winner)

	recvWithin(t, sinkP2, time.Second)
	gameOver2 := recvWithin(t, sinkP2, time.Second)
	assert.Equal(t, "GameOver", gameOver2.Message.Type)
	assert.Nil(t, gameOver2.Message.Winner)
}

// TestWrongTurnIgnored: O tries to go first, silently dropped; X then
// succeeds, proving the room actor never applied O's move.
func TestWrongTurnIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, sinkP1, sinkP2 := setupGame(t, ctx)

	require.NoError(t, handle.SendMessage(ctx, 2, Move{Row: 0, Col: 0}))
	assertNoRecvWithin(t, sinkP1, 100*time.Millisecond)
	assertNoRecvWithin(t, sinkP2, 100*time.Millisecond)

	require.NoError(t, handle.SendMessage(ctx, 1, Move{Row: 0, Col: 0}))
	e := recvWithin(t, sinkP1, time.Second)
	assert.Equal(t, "X", e.Message.Mark)
	recvWithin(t, sinkP2, time.Second)
}

func TestDisconnectForfeitsUnfinishedGame(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handle, _, sinkP2 := setupGame(t, ctx)

	require.NoError(t, handle.Leave(ctx, 1))

	gameOver := recvWithin(t, sinkP2, time.Second)
	assert.Equal(t, "GameOver", gameOver.Message.Type)
	require.NotNil(t, gameOver.Message.Winner)
	assert.Equal(t, protocol.PlayerID(2), *gameOver.Message.Winner)
}
