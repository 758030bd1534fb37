package world

import (
	"fmt"

	"gridlands.gg/internal/protocol"
)

// Pos addresses one grid cell. Both axes are zero-based; a Pos outside
// the grid is rejected at the operation layer, never clamped or wrapped.
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Array() [2]int { return [2]int{p.X, p.Y} }

// step applies a one-cell move. The result may be out of bounds; the
// caller bounds-checks it, so moving up from y=0 fails instead of
// wrapping to the far edge.
func (p Pos) step(dir string) (Pos, bool) {
	switch dir {
	case protocol.DirUp:
		return Pos{X: p.X, Y: p.Y - 1}, true
	case protocol.DirDown:
		return Pos{X: p.X, Y: p.Y + 1}, true
	case protocol.DirLeft:
		return Pos{X: p.X - 1, Y: p.Y}, true
	case protocol.DirRight:
		return Pos{X: p.X + 1, Y: p.Y}, true
	}
	return Pos{}, false
}

// Field is the state of one cell. Occupant holds the player id standing
// on the cell, or "" when empty. Deposits coexist with occupancy.
type Field struct {
	Occupant      string
	TokenDeposit  uint64
	HealthDeposit uint64
}

func (f Field) empty() bool {
	return f.Occupant == "" && f.TokenDeposit == 0 && f.HealthDeposit == 0
}

// Grid owns occupancy and per-cell deposits. Accessors panic on
// out-of-range positions: operations validate bounds before touching
// the grid, so a raw index reaching here is a bug, not an input error.
type Grid struct {
	width  int
	height int
	cells  []Field
}

func NewGrid(width, height int) *Grid {
	return &Grid{width: width, height: height, cells: make([]Field, width*height)}
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

func (g *Grid) at(p Pos) *Field {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("grid: position out of range: (%d,%d) on %dx%d", p.X, p.Y, g.width, g.height))
	}
	return &g.cells[p.Y*g.width+p.X]
}

func (g *Grid) Field(p Pos) Field { return *g.at(p) }

func (g *Grid) Occupant(p Pos) string { return g.at(p).Occupant }

func (g *Grid) SetOccupant(p Pos, playerID string) { g.at(p).Occupant = playerID }

func (g *Grid) ClearOccupant(p Pos) { g.at(p).Occupant = "" }

func (g *Grid) AddTokenDeposit(p Pos, amount uint64) { g.at(p).TokenDeposit += amount }

func (g *Grid) ClearTokenDeposit(p Pos) { g.at(p).TokenDeposit = 0 }

func (g *Grid) AddHealthDeposit(p Pos, amount uint64) { g.at(p).HealthDeposit += amount }

func (g *Grid) ClearHealthDeposit(p Pos) { g.at(p).HealthDeposit = 0 }

// forEachNonEmpty visits every cell holding an occupant or a deposit,
// in row-major order so iteration is deterministic.
func (g *Grid) forEachNonEmpty(fn func(p Pos, f Field)) {
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			f := g.cells[y*g.width+x]
			if f.empty() {
				continue
			}
			fn(Pos{X: x, Y: y}, f)
		}
	}
}
