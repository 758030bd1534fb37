package world

import (
	"gridlands.gg/internal/protocol"
	"gridlands.gg/internal/sim/entropy"
)

// dropDeposit seeds amount at one pseudo-randomly drawn cell. A single
// draw pair with no collision retry: the deposit may land on an
// occupied or already-seeded cell and stacks on whatever is there.
func (w *World) dropDeposit(kind DepositKind, amount uint64, principal, target string) Pos {
	s := entropy.New(entropy.Inputs{
		TickHash: w.lastDigest,
		Caller:   principal,
		Origin:   principal,
		Target:   target,
		System:   w.cfg.ID + ":drop:" + string(kind),
	})
	pos := drawPos(s, w.cfg.GridWidth, w.cfg.GridHeight)
	w.addDeposit(kind, pos, amount)
	w.announce(depositDroppedEvent(kind, amount, pos))
	return pos
}

// shuffleDeposits reseeds the four fixed deposit slots, two token and
// two health, from a pair of operator-supplied seeds. Slot positions
// depend only on the seeds and the per-slot tag, never on the tick
// digest, so a scheduled reseed is reproducible from its announced
// seeds alone.
func (w *World) shuffleDeposits(seedA, seedB string) {
	slots := []struct {
		tag    string
		kind   DepositKind
		amount uint64
	}{
		{"T1", DepositTokens, w.cfg.Balance.ShuffleTokenAmounts[0]},
		{"T2", DepositTokens, w.cfg.Balance.ShuffleTokenAmounts[1]},
		{"H1", DepositHealth, w.cfg.Balance.ShuffleHealthAmounts[0]},
		{"H2", DepositHealth, w.cfg.Balance.ShuffleHealthAmounts[1]},
	}
	for _, slot := range slots {
		s := entropy.New(entropy.Inputs{
			Caller: seedA,
			Origin: seedB,
			Target: slot.tag,
			System: w.cfg.ID + ":shuffle",
		})
		pos := drawPos(s, w.cfg.GridWidth, w.cfg.GridHeight)
		w.addDeposit(slot.kind, pos, slot.amount)
		ev := depositDroppedEvent(slot.kind, slot.amount, pos)
		ev["slot"] = slot.tag
		w.announce(ev)
	}
}

func (w *World) addDeposit(kind DepositKind, pos Pos, amount uint64) {
	switch kind {
	case DepositTokens:
		w.grid.AddTokenDeposit(pos, amount)
	case DepositHealth:
		w.grid.AddHealthDeposit(pos, amount)
	}
}

func depositDroppedEvent(kind DepositKind, amount uint64, pos Pos) protocol.Event {
	return protocol.Event{
		"t":      "DEPOSIT_DROPPED",
		"kind":   string(kind),
		"amount": amount,
		"pos":    pos.Array(),
	}
}
