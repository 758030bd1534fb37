package world

import "gridlands.gg/internal/protocol"

// joinOp registers a player on the grid. The active gate applies to
// joins only: players already on the grid keep moving and collecting
// while the world is stopped.
func (w *World) joinOp(playerID, principal string, nowTick uint64) (string, string) {
	if code, msg := w.authorize(playerID, principal); code != "" {
		return code, msg
	}
	if !w.active {
		return protocol.ErrGameNotActive, "world is not accepting joins"
	}
	if w.players[playerID] != nil {
		return protocol.ErrBadRequest, "player already joined"
	}
	if len(w.roster) >= w.cfg.Balance.MaxPlayers {
		return protocol.ErrCapacityExceeded, "roster is full"
	}

	entry := &PlayerEntry{ID: playerID, JoinedTick: nowTick}
	pos := w.placePlayer(entry, principal)
	w.players[playerID] = entry
	w.roster = append(w.roster, playerID)

	health, _ := w.collab.Health.HealthOf(playerID)
	w.announce(protocol.Event{
		"t":      "PLAYER_REGISTERED",
		"caller": principal,
		"player": playerID,
		"pos":    pos.Array(),
		"health": health,
	})
	return "", ""
}

// startOp opens the join gate. Starting an already active world is a
// silent no-op so repeated admin calls stay harmless.
func (w *World) startOp() (string, string, bool) {
	if w.active {
		return "", "", false
	}
	w.active = true
	w.announce(protocol.Event{"t": "GAME_STARTED", "epoch": w.epoch})
	return "", "", true
}

func (w *World) stopOp() (string, string, bool) {
	if !w.active {
		return "", "", false
	}
	w.active = false
	w.announce(protocol.Event{"t": "GAME_ENDED", "epoch": w.epoch})
	return "", "", true
}

// restartOp closes the current epoch: archives its final state, clears
// the roster and all occupancy, and bumps the epoch counter. Deposits
// and the active gate survive; a restarted world keeps whatever riches
// were on the board. Restarting an empty world is still an epoch bump.
func (w *World) restartOp(nowTick uint64) (string, string) {
	if w.snapshotSink != nil {
		snap := w.ExportSnapshot(nowTick)
		snap.EpochFinal = true
		select {
		case w.snapshotSink <- snap:
		default:
			// Refuse rather than close an epoch with no archived state.
			return protocol.ErrInternal, "snapshot sink backpressure"
		}
	}

	for _, id := range w.roster {
		e := w.players[id]
		if e == nil {
			continue
		}
		if e.Placed {
			w.grid.ClearOccupant(e.Pos)
		}
		delete(w.players, id)
	}
	w.roster = w.roster[:0]
	w.epoch++
	w.restartTotal++
	w.storeParams()

	w.announce(protocol.Event{
		"t":      "WORLD_RESET",
		"width":  w.cfg.GridWidth,
		"height": w.cfg.GridHeight,
		"epoch":  w.epoch,
	})
	return "", ""
}

// attritionOp deducts health/divider from every rostered player.
// Integer division: players whose share rounds to zero are skipped.
func (w *World) attritionOp() int {
	div := w.cfg.Balance.AttritionDivider
	if div == 0 {
		return 0
	}
	applied := 0
	for _, id := range w.roster {
		h, err := w.collab.Health.HealthOf(id)
		if err != nil {
			continue
		}
		share := h / div
		if share == 0 {
			continue
		}
		if err := w.collab.Health.DecreaseHealth(id, share); err != nil {
			continue
		}
		applied++
		w.announce(protocol.Event{
			"t":      "ATTRITION_APPLIED",
			"player": id,
			"amount": share,
			"health": h - share,
		})
	}
	return applied
}

// configureOp swaps the balance config. Validation runs against the
// fixed grid dimensions; a cap below the current roster size only
// blocks new joins, it never evicts anyone.
func (w *World) configureOp(b BalanceConfig) (string, string) {
	if err := b.validate(w.cfg.GridWidth, w.cfg.GridHeight); err != nil {
		return protocol.ErrBadRequest, err.Error()
	}
	w.cfg.Balance = b
	w.storeParams()
	return "", ""
}
