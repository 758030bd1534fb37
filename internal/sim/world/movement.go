package world

import (
	"fmt"

	"gridlands.gg/internal/protocol"
)

// moveOp steps a player one cell. Gate order: ownership, joined, health
// strictly above the cost, bounds, occupancy. Only when every gate has
// passed does anything change, so a failed move leaves both the grid
// and the player's health untouched.
func (w *World) moveOp(playerID, principal, dir string) (string, string) {
	if code, msg := w.authorize(playerID, principal); code != "" {
		return code, msg
	}
	entry := w.players[playerID]
	if entry == nil || !entry.Placed {
		return protocol.ErrNotJoined, "player has not joined this epoch"
	}

	cost := w.cfg.Balance.HealthCostPerMove
	health, err := w.collab.Health.HealthOf(playerID)
	if err != nil {
		return protocol.ErrInternal, "health oracle: " + err.Error()
	}
	if health <= cost {
		// Strictly more than the cost is required; a player sitting at
		// the exact cost cannot move.
		return protocol.ErrInsufficientHealth, "health at or below move cost"
	}

	target, ok := entry.Pos.step(dir)
	if !ok {
		return protocol.ErrBadRequest, fmt.Sprintf("unknown direction %q", dir)
	}
	if !w.grid.InBounds(target) {
		return protocol.ErrOutOfBounds, "target cell is outside the grid"
	}
	if w.grid.Occupant(target) != "" {
		return protocol.ErrPositionOccupied, "target cell is occupied"
	}

	if err := w.collab.Health.DecreaseHealth(playerID, cost); err != nil {
		return protocol.ErrInternal, "health oracle: " + err.Error()
	}
	w.grid.ClearOccupant(entry.Pos)
	w.grid.SetOccupant(target, playerID)
	entry.Pos = target

	w.announce(protocol.Event{
		"t":      "PLAYER_MOVED",
		"caller": principal,
		"player": playerID,
		"pos":    target.Array(),
		"health": health - cost,
	})
	return "", ""
}
