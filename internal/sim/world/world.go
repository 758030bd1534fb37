package world

import (
	"fmt"
	"sync/atomic"

	"gridlands.gg/internal/oracle"
	"gridlands.gg/internal/persistence/snapshot"
	"gridlands.gg/internal/protocol"
)

// Collaborators are the external contracts the world consults but never
// owns: player identity and ownership, vitality, and the token ledger.
type Collaborators struct {
	Registry oracle.Registry
	Health   oracle.HealthStore
	Ledger   oracle.Ledger
	Minter   oracle.Minter
}

// AttachRequest binds a transport session to a player identity. An
// empty PlayerID mints a fresh player for the principal. Attaches
// resolve at the next tick boundary, like every other input.
type AttachRequest struct {
	Principal string
	PlayerID  string
	Out       chan []byte
	Resp      chan AttachResponse
}

type AttachResponse struct {
	PlayerID string
	Tick     uint64
	Health   uint64
	Joined   bool
	Pos      *[2]int
	Params   protocol.WorldParams
	Err      string
}

// CommandEnvelope carries one CMD message together with the session
// identity the transport authenticated. The world re-checks ownership
// per command; the envelope identity only routes results back.
type CommandEnvelope struct {
	PlayerID  string
	Principal string
	Cmd       protocol.CmdMsg
}

type RecordedMint struct {
	PlayerID  string `json:"player_id"`
	Principal string `json:"principal"`
}

type RecordedCmd struct {
	PlayerID  string          `json:"player_id"`
	Principal string          `json:"principal"`
	Cmd       protocol.CmdMsg `json:"cmd"`
}

// TickLogEntry is one line of the op log: every input that could have
// mutated the world during the tick, plus the digest sealing it. A
// replay that feeds the same entries through StepOnce must land on the
// same digest.
type TickLogEntry struct {
	Tick   uint64         `json:"tick"`
	Mints  []RecordedMint `json:"mints,omitempty"`
	Admin  []AdminOp      `json:"admin,omitempty"`
	Cmds   []RecordedCmd  `json:"cmds,omitempty"`
	Digest string         `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

// AuditEntry records one administrative operation attempt and its
// outcome, accepted or not.
type AuditEntry struct {
	Tick   uint64         `json:"tick"`
	Actor  string         `json:"actor"`
	Op     string         `json:"op"`
	Params map[string]any `json:"params,omitempty"`
	OK     bool           `json:"ok"`
	Code   string         `json:"code,omitempty"`
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// clientState is the per-session buffer. Events accumulate here between
// ticks and flush into the session's next STATE frame. It is keyed by
// player id, which can exist before the player has joined the grid.
type clientState struct {
	Out       chan []byte
	Principal string
	Events    []protocol.Event
}

// World is the authoritative state machine. Everything below the
// channel block is owned by the loop goroutine: all mutations happen
// inside step, one operation at a time, so each public operation is
// atomic with respect to every other.
type World struct {
	cfg WorldConfig

	tick    atomic.Uint64
	metrics atomic.Value
	params  atomic.Value

	grid    *Grid
	roster  []string
	players map[string]*PlayerEntry
	epoch   uint64
	active  bool

	// lastDigest seals the most recent finished tick. Entropy draws for
	// the current tick key off it, so no caller can steer the digest
	// their own command is about to produce.
	lastDigest string

	clients   map[string]*clientState
	observers map[string]*observerClient

	collab Collaborators

	inbox         chan CommandEnvelope
	attach        chan AttachRequest
	detach        chan string
	admin         chan adminReq
	adminSnap     chan adminSnapshotReq
	observerJoin  chan ObserverJoinRequest
	observerLeave chan string
	stop          chan struct{}

	tickLogger  TickLogger
	auditLogger AuditLogger

	snapshotSink chan<- snapshot.SnapshotV1
	oracleExport func() snapshot.OracleV1

	// eventsThisTick collects world transition events in emission order
	// for the observer stream; reset at the top of each step.
	eventsThisTick []protocol.Event

	restartTotal uint64
}

func New(cfg WorldConfig, collab Collaborators) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if collab.Registry == nil || collab.Health == nil || collab.Ledger == nil || collab.Minter == nil {
		return nil, fmt.Errorf("world: registry, health, ledger and minter collaborators are all required")
	}

	w := &World{
		cfg:           cfg,
		grid:          NewGrid(cfg.GridWidth, cfg.GridHeight),
		players:       map[string]*PlayerEntry{},
		epoch:         1,
		active:        cfg.StartActive,
		clients:       map[string]*clientState{},
		observers:     map[string]*observerClient{},
		collab:        collab,
		inbox:         make(chan CommandEnvelope, 1024),
		attach:        make(chan AttachRequest, 64),
		detach:        make(chan string, 64),
		admin:         make(chan adminReq, 32),
		adminSnap:     make(chan adminSnapshotReq, 8),
		observerJoin:  make(chan ObserverJoinRequest, 16),
		observerLeave: make(chan string, 16),
		stop:          make(chan struct{}),
	}
	w.lastDigest = w.genesisDigest()
	w.storeMetrics(0, 0)
	w.storeParams()
	return w, nil
}

func (w *World) Inbox() chan<- CommandEnvelope           { return w.inbox }
func (w *World) Attach() chan<- AttachRequest            { return w.attach }
func (w *World) Detach() chan<- string                   { return w.detach }
func (w *World) ObserverJoin() chan<- ObserverJoinRequest { return w.observerJoin }
func (w *World) ObserverLeave() chan<- string            { return w.observerLeave }

func (w *World) ID() string          { return w.cfg.ID }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// AdminPrincipal reports the account allowed to run admin operations.
// Fixed after New/ImportSnapshot, so safe to read from any goroutine.
func (w *World) AdminPrincipal() string { return w.cfg.AdminPrincipal }

// Params is a consistent view of the world parameters, safe to read
// from any goroutine. The loop refreshes it whenever epoch or balance
// changes.
func (w *World) Params() protocol.WorldParams {
	p, _ := w.params.Load().(protocol.WorldParams)
	return p
}

func (w *World) storeParams() {
	b := w.cfg.Balance
	w.params.Store(protocol.WorldParams{
		WorldID:              w.cfg.ID,
		TickRateHz:           w.cfg.TickRateHz,
		GridWidth:            w.cfg.GridWidth,
		GridHeight:           w.cfg.GridHeight,
		CollectIntervalTicks: b.CollectIntervalTicks,
		DropOnCollect:        b.DropOnCollect,
		HealthCostPerMove:    b.HealthCostPerMove,
		MaxPlayers:           b.MaxPlayers,
		Epoch:                w.epoch,
		TuningDigest:         w.cfg.TuningDigest,
	})
}

// SetTickLogger must be called before Run.
func (w *World) SetTickLogger(l TickLogger) { w.tickLogger = l }

// SetAuditLogger must be called before Run.
func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

// SetSnapshotSink must be called before Run. Periodic snapshots are
// dropped when the sink is full; epoch-final ones fail the restart
// instead, so an epoch can never close unarchived.
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

// SetOracleExport must be called before Run. The callback runs inside
// the loop goroutine, between ticks, so the captured oracle sections
// are consistent with the world state around them.
func (w *World) SetOracleExport(fn func() snapshot.OracleV1) { w.oracleExport = fn }

// handleAttach resolves one session attach inside the loop. It returns
// a mint record when a fresh player id was created, so the tick log can
// replay the mint in order.
func (w *World) handleAttach(req AttachRequest, nowTick uint64) *RecordedMint {
	respond := func(resp AttachResponse) {
		if req.Resp != nil {
			req.Resp <- resp
		}
	}

	if req.Principal == "" {
		respond(AttachResponse{Err: "missing principal"})
		return nil
	}

	var minted *RecordedMint
	playerID := req.PlayerID
	if playerID == "" {
		playerID = w.collab.Minter.Mint(req.Principal)
		minted = &RecordedMint{PlayerID: playerID, Principal: req.Principal}
	} else {
		owner, err := w.collab.Registry.OwnerOf(playerID)
		if err != nil || owner != req.Principal {
			respond(AttachResponse{Err: "player is not controlled by this principal"})
			return nil
		}
	}

	if req.Out != nil {
		w.clients[playerID] = &clientState{Out: req.Out, Principal: req.Principal}
	}

	resp := AttachResponse{
		PlayerID: playerID,
		Tick:     nowTick,
		Params:   w.Params(),
	}
	if h, err := w.collab.Health.HealthOf(playerID); err == nil {
		resp.Health = h
	}
	if e := w.players[playerID]; e != nil && e.Placed {
		resp.Joined = true
		pos := e.Pos.Array()
		resp.Pos = &pos
	}
	respond(resp)
	return minted
}

func (w *World) handleDetach(playerID string) {
	delete(w.clients, playerID)
}

// pushClientEvent queues ev for one session's next STATE frame.
func (w *World) pushClientEvent(playerID string, ev protocol.Event) {
	if cl := w.clients[playerID]; cl != nil {
		cl.Events = append(cl.Events, ev)
	}
}

// announce records a world transition event: it reaches every attached
// session's next STATE frame and the observer stream.
func (w *World) announce(ev protocol.Event) {
	w.eventsThisTick = append(w.eventsThisTick, ev)
	for _, cl := range w.clients {
		cl.Events = append(cl.Events, ev)
	}
}

func actionResult(cmdType, ref string, ok bool, code, message string) protocol.Event {
	ev := protocol.Event{
		"t":    "ACTION_RESULT",
		"type": cmdType,
		"ok":   ok,
	}
	if ref != "" {
		ev["ref"] = ref
	}
	if code != "" {
		ev["code"] = code
	}
	if message != "" {
		ev["message"] = message
	}
	return ev
}
