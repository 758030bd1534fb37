package world

import "gridlands.gg/internal/sim/entropy"

// placePlayer assigns entry a pseudo-randomly drawn unoccupied cell and
// records it on the grid. The stream is keyed off the previous tick's
// digest, so the draw is fixed before any command of the current tick
// ran, and extends indefinitely instead of running dry. Occupied cells
// draw the next pair; the loop terminates because the roster cap keeps
// at least one cell free.
func (w *World) placePlayer(entry *PlayerEntry, principal string) Pos {
	s := entropy.New(entropy.Inputs{
		TickHash: w.lastDigest,
		Caller:   principal,
		Origin:   principal,
		Target:   entry.ID,
		System:   w.cfg.ID + ":placement",
	})
	pos := w.drawUnoccupied(s)
	if entry.Placed {
		w.grid.ClearOccupant(entry.Pos)
	}
	w.grid.SetOccupant(pos, entry.ID)
	entry.Pos = pos
	entry.Placed = true
	return pos
}

func (w *World) drawUnoccupied(s *entropy.Stream) Pos {
	for {
		p := drawPos(s, w.cfg.GridWidth, w.cfg.GridHeight)
		if w.grid.Occupant(p) == "" {
			return p
		}
	}
}

// drawPos consumes two stream bytes: x first, then y. One byte per axis
// is enough because config caps each axis at 256 cells.
func drawPos(s *entropy.Stream, width, height int) Pos {
	x := int(s.Byte()) % width
	y := int(s.Byte()) % height
	return Pos{X: x, Y: y}
}
