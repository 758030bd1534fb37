package world

import (
	"encoding/json"

	"gridlands.gg/internal/observerproto"
	"gridlands.gg/internal/protocol"
)

// ObserverJoinRequest registers a read-only session fed one frame per
// tick. Observer state never feeds back into the simulation, so joins
// and leaves are handled immediately instead of being pended.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
}

type observerClient struct {
	id  string
	out chan []byte
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	w.observers[req.SessionID] = &observerClient{id: req.SessionID, out: req.Out}
}

func (w *World) handleObserverLeave(sessionID string) {
	delete(w.observers, sessionID)
}

// stepObservers marshals one frame per tick and fans it out with the
// same drop-oldest semantics as player sessions.
func (w *World) stepObservers(nowTick uint64, digest string, cells []protocol.CellView) {
	if len(w.observers) == 0 {
		return
	}

	players := make([]observerproto.PlayerState, 0, len(w.roster))
	for _, id := range w.roster {
		e := w.players[id]
		if e == nil {
			continue
		}
		st := observerproto.PlayerState{
			ID:         id,
			Connected:  w.clients[id] != nil,
			Placed:     e.Placed,
			Pos:        e.Pos.Array(),
			JoinedTick: e.JoinedTick,
		}
		if h, err := w.collab.Health.HealthOf(id); err == nil {
			st.Health = h
		}
		if e.HasCollected {
			st.CooldownReadyTick = e.LastCollectTick + w.cfg.Balance.CollectIntervalTicks
		}
		players = append(players, st)
	}

	frame := observerproto.TickMsg{
		Type:            "TICK",
		ProtocolVersion: observerproto.Version,
		Tick:            nowTick,
		Epoch:           w.epoch,
		Active:          w.active,
		Digest:          digest,
		Players:         players,
		Cells:           cells,
		Events:          w.eventsThisTick,
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	for _, o := range w.observers {
		sendLatest(o.out, b)
	}
}
