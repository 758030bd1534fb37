package world

import (
	"fmt"
	"testing"

	"gridlands.gg/internal/protocol"
)

func TestJoin_PlacesOnUnoccupiedCells(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	seen := map[Pos]string{}
	for i := 0; i < 30; i++ {
		id := joinPlayer(t, w, store, fmt.Sprintf("acct:p%d", i))
		e := w.players[id]
		if !e.Placed {
			t.Fatalf("player %s not placed", id)
		}
		if prev, dup := seen[e.Pos]; dup {
			t.Fatalf("players %s and %s share (%d,%d)", prev, id, e.Pos.X, e.Pos.Y)
		}
		seen[e.Pos] = id
	}
	assertOccupancyBijection(t, w)
}

func TestJoin_DeterministicAcrossReplicas(t *testing.T) {
	build := func() (*World, []Pos) {
		w, store, _ := newTestWorld(t, nil)
		var got []Pos
		for i := 0; i < 10; i++ {
			id := joinPlayer(t, w, store, fmt.Sprintf("acct:p%d", i))
			got = append(got, w.players[id].Pos)
		}
		return w, got
	}
	a, posA := build()
	b, posB := build()
	for i := range posA {
		if posA[i] != posB[i] {
			t.Fatalf("placement %d diverged: (%d,%d) vs (%d,%d)", i, posA[i].X, posA[i].Y, posB[i].X, posB[i].Y)
		}
	}
	da := a.stateDigest(0)
	db := b.stateDigest(0)
	if da != db {
		t.Fatalf("replica digests diverged:\n%s\n%s", da, db)
	}
}

func TestJoin_FirstPlacementDoesNotDisturbOrigin(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	holder := joinPlayer(t, w, store, "acct:holder")

	// Park the holder on (0,0) so a fresh join's zero-valued Pos aliases
	// an occupied cell.
	e := w.players[holder]
	w.grid.ClearOccupant(e.Pos)
	e.Pos = Pos{X: 0, Y: 0}
	w.grid.SetOccupant(e.Pos, holder)

	id := joinPlayer(t, w, store, "acct:fresh")
	if w.grid.Occupant(Pos{X: 0, Y: 0}) != holder {
		t.Fatalf("(0,0) lost its occupant, now %q", w.grid.Occupant(Pos{X: 0, Y: 0}))
	}
	if w.players[id].Pos == (Pos{X: 0, Y: 0}) {
		t.Fatalf("fresh player placed on an occupied origin")
	}
	assertOccupancyBijection(t, w)
}

func TestJoin_CapacityGate(t *testing.T) {
	w, store, _ := newTestWorld(t, func(cfg *WorldConfig) {
		cfg.Balance.MaxPlayers = 3
	})
	for i := 0; i < 3; i++ {
		joinPlayer(t, w, store, fmt.Sprintf("acct:p%d", i))
	}
	id := store.Mint("acct:late")
	code, _ := w.joinOp(id, "acct:late", 0)
	if code != protocol.ErrCapacityExceeded {
		t.Fatalf("join past cap: %s", code)
	}
	if len(w.roster) != 3 {
		t.Fatalf("roster grew past cap: %d", len(w.roster))
	}
}

func TestJoin_RejectsDoubleJoinAndInactive(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := joinPlayer(t, w, store, "acct:alice")
	if code, _ := w.joinOp(id, "acct:alice", 0); code != protocol.ErrBadRequest {
		t.Fatalf("double join: %s", code)
	}

	w2, store2, _ := newTestWorld(t, func(cfg *WorldConfig) {
		cfg.StartActive = false
	})
	id2 := store2.Mint("acct:bob")
	if code, _ := w2.joinOp(id2, "acct:bob", 0); code != protocol.ErrGameNotActive {
		t.Fatalf("inactive join: %s", code)
	}
}

func TestJoin_UnauthorizedPrincipal(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := store.Mint("acct:alice")
	if code, _ := w.joinOp(id, "acct:mallory", 0); code != protocol.ErrUnauthorized {
		t.Fatalf("foreign join: %s", code)
	}
	if code, _ := w.joinOp("P999", "acct:alice", 0); code != protocol.ErrUnauthorized {
		t.Fatalf("unknown player join: %s", code)
	}
}

func TestPlacement_FillsTinyGridToCap(t *testing.T) {
	// 3x3 grid with cap 8: every join must land, even when nearly every
	// cell is taken and the stream has to retry draws.
	w, store, _ := newTestWorld(t, func(cfg *WorldConfig) {
		cfg.GridWidth = 3
		cfg.GridHeight = 3
		cfg.Balance.MaxPlayers = 8
	})
	for i := 0; i < 8; i++ {
		joinPlayer(t, w, store, fmt.Sprintf("acct:p%d", i))
	}
	assertOccupancyBijection(t, w)
	m := 0
	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		if f.Occupant != "" {
			m++
		}
	})
	if m != 8 {
		t.Fatalf("expected 8 occupied cells, got %d", m)
	}
}
