package world

import (
	"testing"

	"gridlands.gg/internal/protocol"
)

func TestGrid_BoundsAndAccess(t *testing.T) {
	g := NewGrid(4, 3)
	if !g.InBounds(Pos{X: 0, Y: 0}) || !g.InBounds(Pos{X: 3, Y: 2}) {
		t.Fatalf("corners must be in bounds")
	}
	for _, p := range []Pos{{X: -1, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: -1}, {X: 0, Y: 3}} {
		if g.InBounds(p) {
			t.Fatalf("(%d,%d) must be out of bounds", p.X, p.Y)
		}
	}

	g.SetOccupant(Pos{X: 2, Y: 1}, "P1")
	g.AddTokenDeposit(Pos{X: 2, Y: 1}, 100)
	g.AddTokenDeposit(Pos{X: 2, Y: 1}, 50)
	g.AddHealthDeposit(Pos{X: 0, Y: 2}, 30)

	f := g.Field(Pos{X: 2, Y: 1})
	if f.Occupant != "P1" || f.TokenDeposit != 150 {
		t.Fatalf("field: %+v", f)
	}
	g.ClearTokenDeposit(Pos{X: 2, Y: 1})
	if g.Field(Pos{X: 2, Y: 1}).TokenDeposit != 0 {
		t.Fatalf("token deposit not cleared")
	}
	g.ClearOccupant(Pos{X: 2, Y: 1})
	if g.Occupant(Pos{X: 2, Y: 1}) != "" {
		t.Fatalf("occupant not cleared")
	}
	if g.Field(Pos{X: 0, Y: 2}).HealthDeposit != 30 {
		t.Fatalf("health deposit lost")
	}
}

func TestGrid_PanicsOnOutOfRangeAccess(t *testing.T) {
	g := NewGrid(2, 2)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range access")
		}
	}()
	g.Occupant(Pos{X: 2, Y: 0})
}

func TestGrid_ForEachNonEmptyRowMajor(t *testing.T) {
	g := NewGrid(3, 3)
	g.SetOccupant(Pos{X: 2, Y: 0}, "A")
	g.AddTokenDeposit(Pos{X: 0, Y: 1}, 5)
	g.AddHealthDeposit(Pos{X: 1, Y: 2}, 7)

	var order []Pos
	g.forEachNonEmpty(func(p Pos, f Field) {
		order = append(order, p)
	})
	want := []Pos{{X: 2, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 2}}
	if len(order) != len(want) {
		t.Fatalf("visited %d cells, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("visit %d: got (%d,%d), want (%d,%d)", i, order[i].X, order[i].Y, want[i].X, want[i].Y)
		}
	}
}

func TestPos_StepDoesNotWrap(t *testing.T) {
	p := Pos{X: 0, Y: 0}
	up, ok := p.step(protocol.DirUp)
	if !ok || up.Y != -1 {
		t.Fatalf("step up from y=0: %+v ok=%v", up, ok)
	}
	g := NewGrid(4, 4)
	if g.InBounds(up) {
		t.Fatalf("stepping off the edge must land out of bounds, not wrap")
	}
	if _, ok := p.step("DIAGONAL"); ok {
		t.Fatalf("unknown direction must not resolve")
	}
}
