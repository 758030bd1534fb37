package world

import "gridlands.gg/internal/protocol"

type DepositKind string

const (
	DepositTokens DepositKind = "TOKENS"
	DepositHealth DepositKind = "HEALTH"
)

// collectOp harvests the deposit under the player. Token and health
// collection share one cooldown. The cooldown stamps as soon as its
// gate passes: an attempt on an empty cell finds nothing but still
// spends the window.
func (w *World) collectOp(playerID, principal string, kind DepositKind, nowTick uint64) (string, string) {
	if code, msg := w.authorize(playerID, principal); code != "" {
		return code, msg
	}
	entry := w.players[playerID]
	if entry == nil || !entry.Placed {
		return protocol.ErrNotJoined, "player has not joined this epoch"
	}

	health, err := w.collab.Health.HealthOf(playerID)
	if err != nil {
		return protocol.ErrInternal, "health oracle: " + err.Error()
	}
	if health == 0 {
		return protocol.ErrInsufficientHealth, "player has no health left"
	}

	interval := w.cfg.Balance.CollectIntervalTicks
	if entry.HasCollected && nowTick-entry.LastCollectTick < interval {
		return protocol.ErrCooldownNotElapsed, "collect cooldown has not elapsed"
	}
	entry.LastCollectTick = nowTick
	entry.HasCollected = true

	field := w.grid.Field(entry.Pos)
	var amount uint64
	switch kind {
	case DepositTokens:
		amount = field.TokenDeposit
	case DepositHealth:
		amount = field.HealthDeposit
	}
	if amount == 0 {
		return protocol.ErrNothingToCollect, "no deposit at the player's cell"
	}

	switch kind {
	case DepositTokens:
		if err := w.collab.Ledger.Credit(principal, amount); err != nil {
			return protocol.ErrInternal, "ledger: " + err.Error()
		}
		w.grid.ClearTokenDeposit(entry.Pos)
		w.announce(protocol.Event{
			"t":      "TOKENS_COLLECTED",
			"caller": principal,
			"player": playerID,
			"amount": amount,
			"pos":    entry.Pos.Array(),
		})
	case DepositHealth:
		if err := w.collab.Health.IncreaseHealth(playerID, amount); err != nil {
			return protocol.ErrInternal, "health oracle: " + err.Error()
		}
		w.grid.ClearHealthDeposit(entry.Pos)
		w.announce(protocol.Event{
			"t":      "HEALTH_COLLECTED",
			"caller": principal,
			"player": playerID,
			"amount": amount,
			"health": health + amount,
			"pos":    entry.Pos.Array(),
		})
	}

	if w.cfg.Balance.DropOnCollect {
		w.dropDeposit(kind, amount, principal, playerID)
	}
	return "", ""
}
