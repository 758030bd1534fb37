package world

import "time"

// step advances the world by exactly one tick. Phase order is fixed:
// attaches (which may mint), admin operations, player commands, digest,
// STATE frames, observer frames, op log, periodic snapshot. Replays
// walk the same path via StepOnce.
func (w *World) step(attaches []AttachRequest, adminReqs []adminReq, cmds []CommandEnvelope) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	w.eventsThisTick = w.eventsThisTick[:0]

	var mints []RecordedMint
	for _, req := range attaches {
		if m := w.handleAttach(req, nowTick); m != nil {
			mints = append(mints, *m)
		}
	}

	var adminOps []AdminOp
	for _, req := range adminReqs {
		code, msg, mutated := w.applyAdminOp(req.Op, nowTick)
		if mutated {
			adminOps = append(adminOps, req.Op)
		}
		w.audit(nowTick, req.Op, code)
		if req.Resp != nil {
			req.Resp <- adminResp{Tick: nowTick, Code: code, Message: msg}
		}
	}

	recorded := make([]RecordedCmd, 0, len(cmds))
	for _, env := range cmds {
		recorded = append(recorded, RecordedCmd{PlayerID: env.PlayerID, Principal: env.Principal, Cmd: env.Cmd})
		w.applyCmd(env, nowTick)
	}

	// Seal the tick before anything downstream observes it.
	digest := w.stateDigest(nowTick)
	w.lastDigest = digest

	cells := w.buildCellViews()
	w.sendStateFrames(nowTick, cells)
	w.stepObservers(nowTick, digest, cells)

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:   nowTick,
			Mints:  mints,
			Admin:  adminOps,
			Cmds:   recorded,
			Digest: digest,
		})
	}

	if w.snapshotSink != nil && nowTick != 0 && nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
		select {
		case w.snapshotSink <- w.ExportSnapshot(nowTick):
		default:
			// Writer is behind; the next interval covers it.
		}
	}

	nextTick := w.tick.Add(1)
	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	w.storeMetrics(nextTick, stepMS)
}

// StepOnce advances one tick with the given inputs and returns the tick
// it ran as plus the digest that sealed it. It exists for deterministic
// replay and for tests; session attaches are a live-loop concern and
// take the Run path instead.
func (w *World) StepOnce(adminOps []AdminOp, cmds []CommandEnvelope) (uint64, string) {
	nowTick := w.tick.Load()
	reqs := make([]adminReq, 0, len(adminOps))
	for _, op := range adminOps {
		reqs = append(reqs, adminReq{Op: op})
	}
	w.step(nil, reqs, cmds)
	return nowTick, w.lastDigest
}
