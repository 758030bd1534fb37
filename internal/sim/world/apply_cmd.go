package world

import (
	"fmt"

	"gridlands.gg/internal/protocol"
)

// stalenessWindowTicks bounds how old a CMD may be. A batch stamped
// tick N is applied while now is within [N, N+2]; future stamps are
// rejected outright.
const stalenessWindowTicks = 2

// maxCommandsPerBatch matches the bound published in cmd.schema.json.
const maxCommandsPerBatch = 16

// applyCmd applies one CMD batch. Staleness and batch size are judged
// per batch; each command inside gets its own ACTION_RESULT so a client
// can match outcomes to the refs it sent.
func (w *World) applyCmd(env CommandEnvelope, nowTick uint64) {
	if len(env.Cmd.Commands) > maxCommandsPerBatch {
		for _, c := range env.Cmd.Commands {
			w.pushClientEvent(env.PlayerID, actionResult(c.Type, c.ID, false, protocol.ErrProtoBadRequest,
				fmt.Sprintf("batch of %d exceeds %d commands", len(env.Cmd.Commands), maxCommandsPerBatch)))
		}
		return
	}
	if env.Cmd.Tick+stalenessWindowTicks < nowTick || env.Cmd.Tick > nowTick {
		for _, c := range env.Cmd.Commands {
			w.pushClientEvent(env.PlayerID, actionResult(c.Type, c.ID, false, protocol.ErrStale,
				fmt.Sprintf("cmd tick %d outside window ending at %d", env.Cmd.Tick, nowTick)))
		}
		return
	}
	for _, c := range env.Cmd.Commands {
		code, msg := w.applyCommand(env.PlayerID, env.Principal, c, nowTick)
		w.pushClientEvent(env.PlayerID, actionResult(c.Type, c.ID, code == "", code, msg))
	}
}

// applyCommand dispatches one command. An empty code means success;
// any failure leaves the world exactly as it was.
func (w *World) applyCommand(playerID, principal string, c protocol.CommandReq, nowTick uint64) (string, string) {
	switch c.Type {
	case protocol.CmdJoin:
		return w.joinOp(playerID, principal, nowTick)
	case protocol.CmdMove:
		return w.moveOp(playerID, principal, c.Direction)
	case protocol.CmdCollectTokens:
		return w.collectOp(playerID, principal, DepositTokens, nowTick)
	case protocol.CmdCollectHealth:
		return w.collectOp(playerID, principal, DepositHealth, nowTick)
	}
	return protocol.ErrBadRequest, fmt.Sprintf("unknown command type %q", c.Type)
}

// authorize checks that principal controls playerID. Every
// player-scoped operation passes through here first.
func (w *World) authorize(playerID, principal string) (string, string) {
	owner, err := w.collab.Registry.OwnerOf(playerID)
	if err != nil {
		return protocol.ErrUnauthorized, "unknown player"
	}
	if owner != principal {
		return protocol.ErrUnauthorized, "caller does not control this player"
	}
	return "", ""
}
