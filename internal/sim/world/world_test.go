package world

import (
	"encoding/json"
	"fmt"
	"testing"

	"gridlands.gg/internal/oracle"
	"gridlands.gg/internal/protocol"
)

func newTestWorld(t *testing.T, mutate func(*WorldConfig)) (*World, *oracle.PlayerStore, *oracle.MemLedger) {
	t.Helper()
	store := oracle.NewPlayerStore(100)
	ledger := oracle.NewMemLedger()
	cfg := WorldConfig{
		ID:             "test",
		TickRateHz:     5,
		Seed:           42,
		GridWidth:      24,
		GridHeight:     24,
		StartActive:    true,
		AdminPrincipal: "acct:operator",
		Balance: BalanceConfig{
			CollectIntervalTicks: 50,
			DropOnCollect:        false,
			AttritionDivider:     10,
			HealthCostPerMove:    1,
			MaxPlayers:           50,
			ShuffleTokenAmounts:  [2]uint64{500, 250},
			ShuffleHealthAmounts: [2]uint64{100, 50},
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := New(cfg, Collaborators{Registry: store, Health: store, Ledger: ledger, Minter: store})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w, store, ledger
}

// joinPlayer mints a player for principal and joins it directly.
func joinPlayer(t *testing.T, w *World, store *oracle.PlayerStore, principal string) string {
	t.Helper()
	id := store.Mint(principal)
	if code, msg := w.joinOp(id, principal, w.tick.Load()); code != "" {
		t.Fatalf("join %s: %s %s", id, code, msg)
	}
	return id
}

type testSession struct {
	playerID  string
	principal string
	out       chan []byte
}

// attachSession attaches an out channel the way a transport would; an
// empty playerID mints a fresh identity.
func attachSession(t *testing.T, w *World, principal, playerID string) *testSession {
	t.Helper()
	out := make(chan []byte, 16)
	resp := make(chan AttachResponse, 1)
	w.handleAttach(AttachRequest{Principal: principal, PlayerID: playerID, Out: out, Resp: resp}, w.tick.Load())
	r := <-resp
	if r.Err != "" {
		t.Fatalf("attach: %s", r.Err)
	}
	return &testSession{playerID: r.PlayerID, principal: principal, out: out}
}

func (s *testSession) cmd(w *World, reqs ...protocol.CommandReq) CommandEnvelope {
	return CommandEnvelope{
		PlayerID:  s.playerID,
		Principal: s.principal,
		Cmd: protocol.CmdMsg{
			Type:            protocol.TypeCmd,
			ProtocolVersion: protocol.Version,
			Tick:            w.CurrentTick(),
			PlayerID:        s.playerID,
			Commands:        reqs,
		},
	}
}

// lastState drains the session channel and decodes the newest frame.
func (s *testSession) lastState(t *testing.T) protocol.StateMsg {
	t.Helper()
	var last []byte
	for {
		select {
		case b := <-s.out:
			last = b
		default:
			if last == nil {
				t.Fatalf("no STATE frame for %s", s.playerID)
			}
			var st protocol.StateMsg
			if err := json.Unmarshal(last, &st); err != nil {
				t.Fatalf("unmarshal STATE: %v", err)
			}
			return st
		}
	}
}

func resultFor(t *testing.T, st protocol.StateMsg, ref string) (bool, string) {
	t.Helper()
	for _, ev := range st.Events {
		if ev["t"] == "ACTION_RESULT" && ev["ref"] == ref {
			ok, _ := ev["ok"].(bool)
			code, _ := ev["code"].(string)
			return ok, code
		}
	}
	t.Fatalf("no ACTION_RESULT for ref %q in %v", ref, st.Events)
	return false, ""
}

// assertOccupancyBijection checks both directions of the occupancy
// invariant: every occupied cell names a placed player standing there,
// and every placed player holds exactly the cell it names.
func assertOccupancyBijection(t *testing.T, w *World) {
	t.Helper()
	occupied := 0
	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		if f.Occupant == "" {
			return
		}
		occupied++
		e := w.players[f.Occupant]
		if e == nil || !e.Placed || e.Pos != p {
			t.Fatalf("cell (%d,%d) names %s but entry is %+v", p.X, p.Y, f.Occupant, e)
		}
	})
	placed := 0
	for id, e := range w.players {
		if !e.Placed {
			continue
		}
		placed++
		if got := w.grid.Occupant(e.Pos); got != id {
			t.Fatalf("player %s says (%d,%d) but cell holds %q", id, e.Pos.X, e.Pos.Y, got)
		}
	}
	if occupied != placed {
		t.Fatalf("occupied cells %d != placed players %d", occupied, placed)
	}
}

func tokenTotals(w *World) (cells int, sum uint64) {
	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		if f.TokenDeposit > 0 {
			cells++
			sum += f.TokenDeposit
		}
	})
	return cells, sum
}

// TestScenario_MintJoinMoveCollect walks one player through the whole
// happy path over a live-ish sequence of ticks: mint via attach, join,
// step toward a shuffled token deposit, collect it, and watch the
// collected amount reappear elsewhere on the board.
func TestScenario_MintJoinMoveCollect(t *testing.T) {
	w, _, ledger := newTestWorld(t, func(cfg *WorldConfig) {
		cfg.Balance.DropOnCollect = true
	})

	sess := attachSession(t, w, "acct:alice", "")
	if sess.playerID == "" {
		t.Fatalf("attach did not mint a player id")
	}

	w.StepOnce(nil, []CommandEnvelope{sess.cmd(w, protocol.CommandReq{ID: "c1", Type: protocol.CmdJoin})})
	st := sess.lastState(t)
	if ok, code := resultFor(t, st, "c1"); !ok {
		t.Fatalf("join failed: %s", code)
	}
	if !st.Self.Joined || st.Self.Pos == nil {
		t.Fatalf("self view not joined: %+v", st.Self)
	}
	assertOccupancyBijection(t, w)

	// Reseed the board, then find the richest token cell.
	w.StepOnce([]AdminOp{{Op: AdminShuffle, Actor: "acct:operator", SeedA: "seed-a", SeedB: "seed-b"}}, nil)
	_, totalBefore := tokenTotals(w)
	if totalBefore != 750 {
		t.Fatalf("shuffle should seed 750 tokens, got %d", totalBefore)
	}
	var target Pos
	var targetAmount uint64
	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		if f.TokenDeposit > targetAmount {
			target, targetAmount = p, f.TokenDeposit
		}
	})

	// Walk there one axis at a time; the board holds only this player.
	entry := w.players[sess.playerID]
	startHealth, _ := w.collab.Health.HealthOf(sess.playerID)
	steps := 0
	for entry.Pos != target {
		dir := protocol.DirRight
		switch {
		case entry.Pos.X < target.X:
			dir = protocol.DirRight
		case entry.Pos.X > target.X:
			dir = protocol.DirLeft
		case entry.Pos.Y < target.Y:
			dir = protocol.DirDown
		default:
			dir = protocol.DirUp
		}
		w.StepOnce(nil, []CommandEnvelope{sess.cmd(w, protocol.CommandReq{ID: "m", Type: protocol.CmdMove, Direction: dir})})
		steps++
		if steps > w.cfg.GridWidth+w.cfg.GridHeight {
			t.Fatalf("walk did not terminate, stuck at (%d,%d)", entry.Pos.X, entry.Pos.Y)
		}
	}
	health, _ := w.collab.Health.HealthOf(sess.playerID)
	if health != startHealth-uint64(steps) {
		t.Fatalf("health %d after %d moves from %d", health, steps, startHealth)
	}
	assertOccupancyBijection(t, w)

	w.StepOnce(nil, []CommandEnvelope{sess.cmd(w, protocol.CommandReq{ID: "c2", Type: protocol.CmdCollectTokens})})
	st = sess.lastState(t)
	if ok, code := resultFor(t, st, "c2"); !ok {
		t.Fatalf("collect failed: %s", code)
	}
	if got := ledger.BalanceOf("acct:alice"); got != targetAmount {
		t.Fatalf("ledger credited %d, want %d", got, targetAmount)
	}
	if w.grid.Field(target).TokenDeposit != 0 {
		t.Fatalf("collected cell still holds %d", w.grid.Field(target).TokenDeposit)
	}
	// Drop-on-collect keeps the board total constant.
	if _, totalAfter := tokenTotals(w); totalAfter != totalBefore {
		t.Fatalf("token total %d after collect, want %d", totalAfter, totalBefore)
	}
}

func TestAttach_ReattachExistingPlayer(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := joinPlayer(t, w, store, "acct:alice")

	sess := attachSession(t, w, "acct:alice", id)
	if sess.playerID != id {
		t.Fatalf("reattach returned %s, want %s", sess.playerID, id)
	}

	resp := make(chan AttachResponse, 1)
	w.handleAttach(AttachRequest{Principal: "acct:mallory", PlayerID: id, Resp: resp}, 0)
	if r := <-resp; r.Err == "" {
		t.Fatalf("foreign principal must not attach to %s", id)
	}
}

func TestStaleCmd_RejectedPerCommand(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := joinPlayer(t, w, store, "acct:alice")
	sess := attachSession(t, w, "acct:alice", id)

	// Age the world past the staleness window.
	for i := 0; i < 5; i++ {
		w.StepOnce(nil, nil)
	}

	env := sess.cmd(w, protocol.CommandReq{ID: "old", Type: protocol.CmdMove, Direction: protocol.DirUp})
	env.Cmd.Tick = 0
	posBefore := w.players[id].Pos
	w.StepOnce(nil, []CommandEnvelope{env})
	st := sess.lastState(t)
	if ok, code := resultFor(t, st, "old"); ok || code != protocol.ErrStale {
		t.Fatalf("stale cmd: ok=%v code=%s", ok, code)
	}
	if w.players[id].Pos != posBefore {
		t.Fatalf("stale cmd moved the player to (%d,%d)", w.players[id].Pos.X, w.players[id].Pos.Y)
	}

	// A future-stamped cmd is rejected the same way.
	env = sess.cmd(w, protocol.CommandReq{ID: "fut", Type: protocol.CmdMove, Direction: protocol.DirUp})
	env.Cmd.Tick = w.CurrentTick() + 10
	w.StepOnce(nil, []CommandEnvelope{env})
	st = sess.lastState(t)
	if ok, code := resultFor(t, st, "fut"); ok || code != protocol.ErrStale {
		t.Fatalf("future cmd: ok=%v code=%s", ok, code)
	}
}

func TestOversizedBatch_RejectedPerCommand(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := joinPlayer(t, w, store, "acct:alice")
	sess := attachSession(t, w, "acct:alice", id)

	reqs := make([]protocol.CommandReq, maxCommandsPerBatch+1)
	for i := range reqs {
		reqs[i] = protocol.CommandReq{ID: fmt.Sprintf("b%d", i), Type: protocol.CmdMove, Direction: protocol.DirRight}
	}
	posBefore := w.players[id].Pos
	w.StepOnce(nil, []CommandEnvelope{sess.cmd(w, reqs...)})
	st := sess.lastState(t)
	for _, r := range reqs {
		if ok, code := resultFor(t, st, r.ID); ok || code != protocol.ErrProtoBadRequest {
			t.Fatalf("ref %s: ok=%v code=%s", r.ID, ok, code)
		}
	}
	if w.players[id].Pos != posBefore {
		t.Fatalf("oversized batch moved the player")
	}
}

func TestUnknownCommandType_BadRequest(t *testing.T) {
	w, store, _ := newTestWorld(t, nil)
	id := joinPlayer(t, w, store, "acct:alice")
	sess := attachSession(t, w, "acct:alice", id)

	w.StepOnce(nil, []CommandEnvelope{sess.cmd(w, protocol.CommandReq{ID: "x", Type: "FLY"})})
	st := sess.lastState(t)
	if ok, code := resultFor(t, st, "x"); ok || code != protocol.ErrBadRequest {
		t.Fatalf("unknown command: ok=%v code=%s", ok, code)
	}
}
