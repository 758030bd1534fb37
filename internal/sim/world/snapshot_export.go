package world

import (
	"fmt"

	"gridlands.gg/internal/persistence/snapshot"
)

// ExportSnapshot captures the full world state as of sealed tick
// nowTick. Loop goroutine only.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	b := w.cfg.Balance
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{Version: 1, WorldID: w.cfg.ID, Tick: nowTick},

		Seed:       w.cfg.Seed,
		TickRate:   w.cfg.TickRateHz,
		GridWidth:  w.cfg.GridWidth,
		GridHeight: w.cfg.GridHeight,

		CollectIntervalTicks: b.CollectIntervalTicks,
		DropOnCollect:        b.DropOnCollect,
		AttritionDivider:     b.AttritionDivider,
		HealthCostPerMove:    b.HealthCostPerMove,
		MaxPlayers:           b.MaxPlayers,
		ShuffleTokenAmounts:  b.ShuffleTokenAmounts,
		ShuffleHealthAmounts: b.ShuffleHealthAmounts,

		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		AdminPrincipal:     w.cfg.AdminPrincipal,

		Epoch:      w.epoch,
		Active:     w.active,
		LastDigest: w.lastDigest,

		Roster: append([]string(nil), w.roster...),
	}

	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		snap.Cells = append(snap.Cells, snapshot.CellV1{
			X:             p.X,
			Y:             p.Y,
			Occupant:      f.Occupant,
			TokenDeposit:  f.TokenDeposit,
			HealthDeposit: f.HealthDeposit,
		})
	})

	for _, id := range w.roster {
		e := w.players[id]
		if e == nil {
			continue
		}
		snap.Players = append(snap.Players, snapshot.PlayerV1{
			ID:              id,
			X:               e.Pos.X,
			Y:               e.Pos.Y,
			Placed:          e.Placed,
			LastCollectTick: e.LastCollectTick,
			HasCollected:    e.HasCollected,
			JoinedTick:      e.JoinedTick,
		})
	}

	if w.oracleExport != nil {
		snap.Oracle = w.oracleExport()
	}
	return snap
}

// ImportSnapshot restores world-owned state from snap and positions the
// tick counter one past the sealed tick it names. Callers restore the
// oracle stores from snap.Oracle before constructing the world; this
// only touches what the world owns. Must run before Run.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != 1 {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.EpochFinal {
		return fmt.Errorf("epoch-final snapshots are archival, not resume points")
	}
	if snap.GridWidth != w.cfg.GridWidth || snap.GridHeight != w.cfg.GridHeight {
		return fmt.Errorf("grid mismatch: snapshot %dx%d, world %dx%d",
			snap.GridWidth, snap.GridHeight, w.cfg.GridWidth, w.cfg.GridHeight)
	}

	balance := BalanceConfig{
		CollectIntervalTicks: snap.CollectIntervalTicks,
		DropOnCollect:        snap.DropOnCollect,
		AttritionDivider:     snap.AttritionDivider,
		HealthCostPerMove:    snap.HealthCostPerMove,
		MaxPlayers:           snap.MaxPlayers,
		ShuffleTokenAmounts:  snap.ShuffleTokenAmounts,
		ShuffleHealthAmounts: snap.ShuffleHealthAmounts,
	}
	// The snapshot was written from a validated config; re-check so a
	// truncated or hand-edited file cannot smuggle in a roster cap that
	// breaks placement termination.
	if err := balance.validate(w.cfg.GridWidth, w.cfg.GridHeight); err != nil {
		return fmt.Errorf("snapshot balance config: %w", err)
	}
	w.cfg.Balance = balance
	if snap.SnapshotEveryTicks > 0 {
		w.cfg.SnapshotEveryTicks = snap.SnapshotEveryTicks
	}
	if snap.AdminPrincipal != "" {
		w.cfg.AdminPrincipal = snap.AdminPrincipal
	}

	w.epoch = snap.Epoch
	w.active = snap.Active

	w.grid = NewGrid(w.cfg.GridWidth, w.cfg.GridHeight)
	for _, c := range snap.Cells {
		p := Pos{X: c.X, Y: c.Y}
		if !w.grid.InBounds(p) {
			return fmt.Errorf("snapshot cell out of range: (%d,%d)", c.X, c.Y)
		}
		f := w.grid.at(p)
		f.Occupant = c.Occupant
		f.TokenDeposit = c.TokenDeposit
		f.HealthDeposit = c.HealthDeposit
	}

	w.roster = append([]string(nil), snap.Roster...)
	w.players = make(map[string]*PlayerEntry, len(snap.Players))
	for _, p := range snap.Players {
		w.players[p.ID] = &PlayerEntry{
			ID:              p.ID,
			Pos:             Pos{X: p.X, Y: p.Y},
			Placed:          p.Placed,
			LastCollectTick: p.LastCollectTick,
			HasCollected:    p.HasCollected,
			JoinedTick:      p.JoinedTick,
		}
	}
	for _, id := range w.roster {
		e := w.players[id]
		if e == nil {
			return fmt.Errorf("roster entry %s has no player record", id)
		}
		if e.Placed && w.grid.Occupant(e.Pos) != id {
			return fmt.Errorf("occupancy mismatch for %s at (%d,%d)", id, e.Pos.X, e.Pos.Y)
		}
	}

	if snap.LastDigest != "" {
		w.lastDigest = snap.LastDigest
	}
	w.tick.Store(snap.Header.Tick + 1)
	w.storeMetrics(snap.Header.Tick+1, 0)
	w.storeParams()
	return nil
}
