package world

import (
	"encoding/json"

	"gridlands.gg/internal/protocol"
)

// buildCellViews lists the non-empty cells once per tick; every session
// and observer gets the same slice marshaled into its own frame.
func (w *World) buildCellViews() []protocol.CellView {
	out := make([]protocol.CellView, 0, 16)
	w.grid.forEachNonEmpty(func(p Pos, f Field) {
		out = append(out, protocol.CellView{
			Pos:           p.Array(),
			Occupant:      f.Occupant,
			TokenDeposit:  f.TokenDeposit,
			HealthDeposit: f.HealthDeposit,
		})
	})
	return out
}

func (w *World) sendStateFrames(nowTick uint64, cells []protocol.CellView) {
	if len(w.clients) == 0 {
		return
	}
	for playerID, cl := range w.clients {
		msg := protocol.StateMsg{
			Type:            protocol.TypeState,
			ProtocolVersion: protocol.Version,
			Tick:            nowTick,
			Epoch:           w.epoch,
			Active:          w.active,
			Self:            w.buildSelfView(playerID),
			Cells:           cells,
			Events:          cl.Events,
		}
		cl.Events = nil
		b, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		sendLatest(cl.Out, b)
	}
}

func (w *World) buildSelfView(playerID string) protocol.SelfView {
	v := protocol.SelfView{PlayerID: playerID}
	if h, err := w.collab.Health.HealthOf(playerID); err == nil {
		v.Health = h
	}
	if e := w.players[playerID]; e != nil && e.Placed {
		v.Joined = true
		pos := e.Pos.Array()
		v.Pos = &pos
		if e.HasCollected {
			v.CooldownReadyTick = e.LastCollectTick + w.cfg.Balance.CollectIntervalTicks
		}
	}
	return v
}

// sendLatest delivers b without ever blocking the loop: when the
// session's queue is full the oldest frame is dropped to make room, so
// a slow reader always sees the freshest state it can keep up with.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
