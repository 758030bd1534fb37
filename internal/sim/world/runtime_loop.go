package world

import (
	"context"
	"time"
)

// Run drives the tick loop until ctx is cancelled or Stop is called.
// Inputs arriving between ticks are pended and applied in arrival order
// at the next tick boundary; nothing mutates the world in between.
func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingAttach []AttachRequest
	var pendingAdmin []adminReq
	var pendingSnap []adminSnapshotReq
	var pendingCmds []CommandEnvelope

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.attach:
			pendingAttach = append(pendingAttach, req)
		case playerID := <-w.detach:
			w.handleDetach(playerID)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case req := <-w.adminSnap:
			pendingSnap = append(pendingSnap, req)
		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case sessionID := <-w.observerLeave:
			w.handleObserverLeave(sessionID)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			w.step(pendingAttach, pendingAdmin, pendingCmds)
			w.handleAdminSnapshotRequests(pendingSnap)
			pendingAttach = pendingAttach[:0]
			pendingAdmin = pendingAdmin[:0]
			pendingSnap = pendingSnap[:0]
			pendingCmds = pendingCmds[:0]
		}
	}
}

// Stop ends the loop from outside. Safe to call once.
func (w *World) Stop() { close(w.stop) }
