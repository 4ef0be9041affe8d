package vectorrace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePlayerAccelerateIncreasesSpeed(t *testing.T) {
	p := &Player{X: GetRoadCurve(0), CurrentInput: Input{Keys: 1}}
	updatePlayer(p, 1.0)
	assert.Greater(t, p.Speed, 0.0)
}

func TestUpdatePlayerFrictionDecaysSpeedWhenIdle(t *testing.T) {
	p := &Player{X: GetRoadCurve(0), Speed: 500}
	updatePlayer(p, 0.1)
	assert.Less(t, p.Speed, 500.0)
	assert.GreaterOrEqual(t, p.Speed, 0.0)
}

func TestUpdatePlayerExplodesFarOffRoad(t *testing.T) {
	p := &Player{X: GetRoadCurve(0) + RoadWidth*10, Y: 0}
	updatePlayer(p, 1.0)
	assert.True(t, p.Exploded)
}

func TestUpdatePlayerNoOpOnceExploded(t *testing.T) {
	p := &Player{Exploded: true, X: GetRoadCurve(0)}
	updatePlayer(p, 1.0)
	assert.Equal(t, 0.0, p.Speed)
}

func TestCheckCollisionPushesOverlappingPlayersApart(t *testing.T) {
	p1 := &Player{X: 0, Y: 0, Speed: 200}
	p2 := &Player{X: -1, Y: 0, Speed: 0}
	ok := checkCollision(p1, p2, 0.1)
	require.True(t, ok)
	assert.Greater(t, p1.X, 0.0)
}

func TestCheckCollisionIgnoresDistantPlayers(t *testing.T) {
	p1 := &Player{X: 0, Y: 0, Speed: 200}
	p2 := &Player{X: 10000, Y: 0, Speed: 0}
	ok := checkCollision(p1, p2, 0.1)
	assert.False(t, ok)
	assert.Equal(t, 0.0, p1.X)
}

func TestRespawnMovesExplodedPlayerForwardAndClearsState(t *testing.T) {
	p := &Player{Exploded: true, Speed: 900, Angle: 30, Y: 1000, Violations: 3}
	respawn(p)
	assert.False(t, p.Exploded)
	assert.Equal(t, 0.0, p.Speed)
	assert.Equal(t, 0.0, p.Angle)
	assert.Equal(t, 1200.0, p.Y)
	assert.Equal(t, GetRoadCurve(1200), p.X)
	assert.Equal(t, 0, p.Violations)
}

func TestValidateMovementFlagsSpeedHackAndKicksAfterRepeatedViolations(t *testing.T) {
	p := &Player{LastValidX: 0, LastValidY: 0, X: 1_000_000, Y: 0}
	var last validationResult
	for i := 0; i < MaxViolations+1; i++ {
		last = validateMovement(p, 1.0/60.0)
		if last == validationKick {
			break
		}
	}
	assert.Equal(t, validationKick, last)
}

func TestValidateMovementAcceptsPlausibleMove(t *testing.T) {
	p := &Player{LastValidX: 0, LastValidY: 0, X: 1, Y: 1, Speed: 100}
	result := validateMovement(p, 1.0/60.0)
	assert.Equal(t, validationValid, result)
}

func TestValidatePositionExplodesImpossibleDrift(t *testing.T) {
	p := &Player{X: GetRoadCurve(0) + RoadWidth*10, Y: 0}
	result := validatePosition(p)
	assert.Equal(t, validationExplode, result)
}

func TestValidateInputRateIgnoresFloodedInput(t *testing.T) {
	p := &Player{}
	var last validationResult
	for i := 0; i < MaxInputsPerTick+1; i++ {
		last = validateInputRate(p)
	}
	assert.Equal(t, validationIgnoreInput, last)
}

func TestSpatialGridFindsAdjacentCellPairs(t *testing.T) {
	p1 := &Player{ID: 1, X: 0, Y: 0}
	p2 := &Player{ID: 2, X: 150, Y: 0} // cell (1,0), adjacent to p1's cell (0,0)
	grid := newSpatialGrid(100)
	grid.update([]*Player{p1, p2})

	pairs := grid.potentialCollisions()
	require.Len(t, pairs, 1)
}

func TestSpatialGridSkipsFarApartPlayers(t *testing.T) {
	p1 := &Player{ID: 1, X: 0, Y: 0}
	p2 := &Player{ID: 2, X: 10000, Y: 10000}
	grid := newSpatialGrid(100)
	grid.update([]*Player{p1, p2})

	assert.Empty(t, grid.potentialCollisions())
}

func init() {
	// keep physics deterministic in tests that care about ExplodedAt ordering
	nowFunc = func() time.Time { return time.Unix(0, 0) }
}
