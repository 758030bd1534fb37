package world

import (
	"context"
	"errors"
	"fmt"

	"gridlands.gg/internal/protocol"
)

// Administrative operation names. AdminOp doubles as the op log record,
// so replays re-apply admin operations exactly as they ran.
const (
	AdminStart     = "START"
	AdminStop      = "STOP"
	AdminRestart   = "RESTART"
	AdminShuffle   = "SHUFFLE"
	AdminDrop      = "DROP"
	AdminAttrition = "ATTRITION"
	AdminConfigure = "CONFIGURE"
)

type AdminOp struct {
	Op    string `json:"op"`
	Actor string `json:"actor"`

	// DROP.
	Kind   string `json:"kind,omitempty"`
	Amount uint64 `json:"amount,omitempty"`

	// SHUFFLE.
	SeedA string `json:"seed_a,omitempty"`
	SeedB string `json:"seed_b,omitempty"`

	// CONFIGURE.
	Balance *BalanceConfig `json:"balance,omitempty"`
}

type adminReq struct {
	Op   AdminOp
	Resp chan adminResp
}

type adminResp struct {
	Tick    uint64
	Code    string
	Message string
}

// request sends one admin op into the loop and waits for the tick that
// ran it.
func (w *World) request(ctx context.Context, op AdminOp) (uint64, error) {
	if w == nil || w.admin == nil {
		return 0, errors.New("admin channel not available")
	}
	resp := make(chan adminResp, 1)
	select {
	case w.admin <- adminReq{Op: op, Resp: resp}:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case r := <-resp:
		if r.Code != "" {
			return r.Tick, fmt.Errorf("%s: %s", r.Code, r.Message)
		}
		return r.Tick, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (w *World) RequestStart(ctx context.Context, actor string) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminStart, Actor: actor})
}

func (w *World) RequestStop(ctx context.Context, actor string) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminStop, Actor: actor})
}

func (w *World) RequestRestart(ctx context.Context, actor string) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminRestart, Actor: actor})
}

func (w *World) RequestShuffle(ctx context.Context, actor, seedA, seedB string) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminShuffle, Actor: actor, SeedA: seedA, SeedB: seedB})
}

func (w *World) RequestDrop(ctx context.Context, actor, kind string, amount uint64) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminDrop, Actor: actor, Kind: kind, Amount: amount})
}

func (w *World) RequestAttrition(ctx context.Context, actor string) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminAttrition, Actor: actor})
}

func (w *World) RequestConfigure(ctx context.Context, actor string, b BalanceConfig) (uint64, error) {
	return w.request(ctx, AdminOp{Op: AdminConfigure, Actor: actor, Balance: &b})
}

// applyAdminOp runs one admin operation inside the loop. mutated
// reports whether world state changed and the op belongs in the log;
// rejected and no-op operations are audited but never logged, so a
// replay only sees operations that did something.
func (w *World) applyAdminOp(op AdminOp, nowTick uint64) (code, msg string, mutated bool) {
	if op.Actor != w.cfg.AdminPrincipal {
		return protocol.ErrUnauthorized, "actor is not the administrative principal", false
	}
	switch op.Op {
	case AdminStart:
		return w.startOp()
	case AdminStop:
		return w.stopOp()
	case AdminRestart:
		code, msg = w.restartOp(nowTick)
		return code, msg, code == ""
	case AdminShuffle:
		w.shuffleDeposits(op.SeedA, op.SeedB)
		return "", "", true
	case AdminDrop:
		kind := DepositKind(op.Kind)
		if kind != DepositTokens && kind != DepositHealth {
			return protocol.ErrBadRequest, fmt.Sprintf("unknown deposit kind %q", op.Kind), false
		}
		if op.Amount == 0 {
			return protocol.ErrBadRequest, "amount must be positive", false
		}
		w.dropDeposit(kind, op.Amount, op.Actor, string(kind))
		return "", "", true
	case AdminAttrition:
		applied := w.attritionOp()
		return "", "", applied > 0
	case AdminConfigure:
		if op.Balance == nil {
			return protocol.ErrBadRequest, "missing balance config", false
		}
		code, msg = w.configureOp(*op.Balance)
		return code, msg, code == ""
	}
	return protocol.ErrBadRequest, fmt.Sprintf("unknown admin op %q", op.Op), false
}

func (w *World) audit(nowTick uint64, op AdminOp, code string) {
	if w.auditLogger == nil {
		return
	}
	params := map[string]any{}
	if op.Kind != "" {
		params["kind"] = op.Kind
	}
	if op.Amount != 0 {
		params["amount"] = op.Amount
	}
	if op.SeedA != "" {
		params["seed_a"] = op.SeedA
	}
	if op.SeedB != "" {
		params["seed_b"] = op.SeedB
	}
	if op.Balance != nil {
		params["balance"] = *op.Balance
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:   nowTick,
		Actor:  op.Actor,
		Op:     op.Op,
		Params: params,
		OK:     code == "",
		Code:   code,
	})
}
