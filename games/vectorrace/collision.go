package vectorrace

import "github.com/arcforge/arcforge/internal/protocol"

// cellKey identifies one bucket of a spatial grid.
type cellKey struct{ x, y int64 }

// spatialGrid buckets players by position for O(n) nearby-pair discovery
// instead of the O(n^2) all-pairs scan a handful of players wouldn't need
// but a full room might. Rebuilt fresh every tick; nothing here persists
// across ticks, so it carries no mutex.
type spatialGrid struct {
	cellSize float64
	cells    map[cellKey][]*Player
}

func newSpatialGrid(cellSize float64) *spatialGrid {
	return &spatialGrid{cellSize: cellSize, cells: make(map[cellKey][]*Player)}
}

func (g *spatialGrid) keyFor(x, y float64) cellKey {
	return cellKey{x: int64(x / g.cellSize), y: int64(y / g.cellSize)}
}

func (g *spatialGrid) update(players []*Player) {
	g.cells = make(map[cellKey][]*Player)
	for _, p := range players {
		k := g.keyFor(p.X, p.Y)
		g.cells[k] = append(g.cells[k], p)
	}
}

// potentialCollisions returns every pair of players sharing or adjacent to
// the same cell, each pair reported exactly once.
func (g *spatialGrid) potentialCollisions() [][2]*Player {
	checked := make(map[[2]protocol.PlayerID]bool)
	var pairs [][2]*Player

	addPair := func(p1, p2 *Player) {
		key := pairKey(p1.ID, p2.ID)
		if checked[key] {
			return
		}
		checked[key] = true
		pairs = append(pairs, [2]*Player{p1, p2})
	}

	for _, players := range g.cells {
		for i := 0; i < len(players); i++ {
			for j := i + 1; j < len(players); j++ {
				addPair(players[i], players[j])
			}
		}
	}

	for key, players := range g.cells {
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				adj, ok := g.cells[cellKey{x: key.x + dx, y: key.y + dy}]
				if !ok {
					continue
				}
				for _, p1 := range players {
					for _, p2 := range adj {
						addPair(p1, p2)
					}
				}
			}
		}
	}

	return pairs
}

func pairKey(a, b protocol.PlayerID) [2]protocol.PlayerID {
	if a < b {
		return [2]protocol.PlayerID{a, b}
	}
	return [2]protocol.PlayerID{b, a}
}
