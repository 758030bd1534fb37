package world

import (
	"context"
	"testing"
	"time"

	"gridlands.gg/internal/persistence/snapshot"
	"gridlands.gg/internal/protocol"
)

func TestAdmin_GateRejectsForeignActor(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	for _, op := range []AdminOp{
		{Op: AdminStop, Actor: "acct:mallory"},
		{Op: AdminRestart, Actor: "acct:mallory"},
		{Op: AdminShuffle, Actor: "acct:mallory", SeedA: "a", SeedB: "b"},
		{Op: AdminDrop, Actor: "acct:mallory", Kind: "TOKENS", Amount: 10},
		{Op: AdminAttrition, Actor: "acct:mallory"},
	} {
		code, _, mutated := w.applyAdminOp(op, 0)
		if code != protocol.ErrUnauthorized || mutated {
			t.Fatalf("%s by foreign actor: code=%s mutated=%v", op.Op, code, mutated)
		}
	}
	if _, sum := tokenTotals(w); sum != 0 {
		t.Fatalf("rejected ops touched the board")
	}
	if !w.active || w.epoch != 1 {
		t.Fatalf("rejected ops touched lifecycle state")
	}
}

func TestAdmin_DropValidation(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	if code, _, _ := w.applyAdminOp(AdminOp{Op: AdminDrop, Actor: "acct:operator", Kind: "GEMS", Amount: 5}, 0); code != protocol.ErrBadRequest {
		t.Fatalf("unknown kind: %s", code)
	}
	if code, _, _ := w.applyAdminOp(AdminOp{Op: AdminDrop, Actor: "acct:operator", Kind: "TOKENS"}, 0); code != protocol.ErrBadRequest {
		t.Fatalf("zero amount: %s", code)
	}
	code, _, mutated := w.applyAdminOp(AdminOp{Op: AdminDrop, Actor: "acct:operator", Kind: "HEALTH", Amount: 40}, 0)
	if code != "" || !mutated {
		t.Fatalf("valid drop: code=%s mutated=%v", code, mutated)
	}
}

func TestAdmin_UnknownOp(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	if code, _, _ := w.applyAdminOp(AdminOp{Op: "EXPLODE", Actor: "acct:operator"}, 0); code != protocol.ErrBadRequest {
		t.Fatalf("unknown op: %s", code)
	}
}

type capturedAudits struct {
	entries []AuditEntry
}

func (c *capturedAudits) WriteAudit(e AuditEntry) error {
	c.entries = append(c.entries, e)
	return nil
}

func TestAdmin_AuditsRejectedAndAccepted(t *testing.T) {
	w, _, _ := newTestWorld(t, nil)
	audits := &capturedAudits{}
	w.SetAuditLogger(audits)

	w.StepOnce([]AdminOp{
		{Op: AdminDrop, Actor: "acct:operator", Kind: "TOKENS", Amount: 10},
		{Op: AdminDrop, Actor: "acct:mallory", Kind: "TOKENS", Amount: 10},
	}, nil)

	if len(audits.entries) != 2 {
		t.Fatalf("audited %d entries, want 2", len(audits.entries))
	}
	if !audits.entries[0].OK || audits.entries[0].Op != AdminDrop {
		t.Fatalf("accepted op audit: %+v", audits.entries[0])
	}
	if audits.entries[1].OK || audits.entries[1].Code != protocol.ErrUnauthorized {
		t.Fatalf("rejected op audit: %+v", audits.entries[1])
	}
}

// TestAdmin_RequestsThroughRunningLoop drives the channel RPC surface
// end to end against a live loop.
func TestAdmin_RequestsThroughRunningLoop(t *testing.T) {
	w, _, _ := newTestWorld(t, func(cfg *WorldConfig) {
		cfg.TickRateHz = 50
	})
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer rcancel()

	if _, err := w.RequestStop(rctx, "acct:operator"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := w.RequestStart(rctx, "acct:operator"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := w.RequestDrop(rctx, "acct:operator", "TOKENS", 123); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := w.RequestDrop(rctx, "acct:mallory", "TOKENS", 1); err == nil {
		t.Fatalf("foreign drop must fail")
	}
	if _, err := w.RequestShuffle(rctx, "acct:operator", "a", "b"); err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	if _, err := w.RequestRestart(rctx, "acct:operator"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if _, err := w.RequestSnapshot(rctx); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	select {
	case snap := <-sink:
		if snap.EpochFinal {
			// The restart's archival snapshot can arrive first.
			snap = <-sink
		}
		if snap.Header.WorldID != "test" {
			t.Fatalf("snapshot world id %q", snap.Header.WorldID)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no snapshot arrived on the sink")
	}

	m := w.Metrics()
	if m.Epoch != 2 {
		t.Fatalf("metrics epoch %d after restart, want 2", m.Epoch)
	}
	if m.TokenDepositSum == 0 {
		t.Fatalf("metrics lost the dropped tokens: %+v", m)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not exit on cancel")
	}
}
