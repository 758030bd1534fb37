package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gridlands.gg/internal/oracle"
	"gridlands.gg/internal/persistence/archive"
	"gridlands.gg/internal/persistence/indexdb"
	persistlog "gridlands.gg/internal/persistence/log"
	"gridlands.gg/internal/persistence/snapshot"
	"gridlands.gg/internal/protocol"
	"gridlands.gg/internal/sim/tuning"
	"gridlands.gg/internal/sim/world"
	"gridlands.gg/internal/transport/observer"
	"gridlands.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "grid_1", "world id")
		seed       = flag.Int64("seed", 1337, "world seed (used only when starting a fresh world)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (ticks/audits + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	// Optional: read-model index backend (does not affect sim determinism).
	idx, err := openRuntimeIndex(worldDir, *worldID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(worldDir)
	}

	// Load tuning (required for a fresh world; optional for resumes, the
	// snapshot carries the effective parameters).
	tune, tuneErr := tuning.Load(*tuningPath)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", *tuningPath)
		tune = tuning.Defaults()
	}

	var (
		w       *world.World
		store   *oracle.PlayerStore
		ledger  = oracle.NewMemLedger()
		effSeed = *seed
	)
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.WorldID != "" && snap.Header.WorldID != *worldID {
			logger.Fatalf("snapshot world id mismatch: flag=%s snap=%s", *worldID, snap.Header.WorldID)
		}

		startingHealth := snap.Oracle.StartingHealth
		if startingHealth == 0 {
			startingHealth = tune.StartingHealth
		}
		store = oracle.NewPlayerStore(startingHealth)
		store.Import(snap.Oracle.Players)
		ledger.Import(snap.Oracle.Ledger)
		effSeed = snap.Seed

		w, err = world.New(world.WorldConfig{
			ID:                 *worldID,
			TickRateHz:         snap.TickRate,
			Seed:               snap.Seed,
			GridWidth:          snap.GridWidth,
			GridHeight:         snap.GridHeight,
			SnapshotEveryTicks: snap.SnapshotEveryTicks,
			AdminPrincipal:     snap.AdminPrincipal,
			TuningDigest:       tune.Digest(),
			Balance: world.BalanceConfig{
				CollectIntervalTicks: snap.CollectIntervalTicks,
				DropOnCollect:        snap.DropOnCollect,
				AttritionDivider:     snap.AttritionDivider,
				HealthCostPerMove:    snap.HealthCostPerMove,
				MaxPlayers:           snap.MaxPlayers,
				ShuffleTokenAmounts:  snap.ShuffleTokenAmounts,
				ShuffleHealthAmounts: snap.ShuffleHealthAmounts,
			},
		}, world.Collaborators{Registry: store, Health: store, Ledger: ledger, Minter: store})
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d epoch=%d players=%d",
			filepath.Base(snapshotToLoad), w.CurrentTick(), snap.Epoch, len(snap.Players))
	} else {
		store = oracle.NewPlayerStore(tune.StartingHealth)
		w, err = world.New(world.WorldConfig{
			ID:                 *worldID,
			TickRateHz:         tune.TickRateHz,
			Seed:               *seed,
			GridWidth:          tune.GridWidth,
			GridHeight:         tune.GridHeight,
			SnapshotEveryTicks: tune.SnapshotEveryTicks,
			StartActive:        tune.StartActive,
			AdminPrincipal:     tune.AdminPrincipal,
			TuningDigest:       tune.Digest(),
			Balance: world.BalanceConfig{
				CollectIntervalTicks: tune.CollectIntervalTicks,
				DropOnCollect:        tune.DropOnCollect,
				AttritionDivider:     tune.AttritionDivider,
				HealthCostPerMove:    tune.HealthCostPerMove,
				MaxPlayers:           tune.MaxPlayers,
				ShuffleTokenAmounts:  tune.Shuffle.TokenAmounts,
				ShuffleHealthAmounts: tune.Shuffle.HealthAmounts,
			},
		}, world.Collaborators{Registry: store, Health: store, Ledger: ledger, Minter: store})
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	if idx != nil {
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
		if err := idx.UpsertMeta("world_id", *worldID); err != nil {
			logger.Printf("index backend: upsert meta: %v", err)
		}
		_ = idx.UpsertMeta("seed", strconv.FormatInt(effSeed, 10))
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(worldDir)
	auditLog := persistlog.NewAuditLogger(worldDir)
	defer tickLog.Close()
	defer auditLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})
	w.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})
	w.SetOracleExport(func() snapshot.OracleV1 {
		return snapshot.OracleV1{
			StartingHealth: store.StartingHealth(),
			Players:        store.Export(),
			Ledger:         ledger.Export(),
		}
	})

	// Snapshot writer. Periodic snapshots become resume points under
	// snapshots/; epoch-final ones go straight to the archive so a resume
	// can never pick one up.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snapCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				if snap.EpochFinal {
					epoch, archivedPath, ok, err := archive.ArchiveEpochSnapshot(worldDir, snap)
					if err != nil {
						logger.Printf("archive epoch snapshot: %v", err)
						continue
					}
					if !ok {
						continue
					}
					logger.Printf("epoch %d closed at tick=%d archive=%s",
						epoch, snap.Header.Tick, filepath.Base(archivedPath))
					if idx != nil {
						if err := idx.RecordEpoch(epoch, snap.Header.Tick, snap.Seed, archivedPath); err != nil {
							logger.Printf("index backend: record epoch: %v", err)
						}
					}
					continue
				}

				path := filepath.Join(worldDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Tick))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					if err := idx.RecordSnapshot(path, snap); err != nil {
						logger.Printf("index backend: record snapshot: %v", err)
					}
				}
			}
		}
	}()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP gridlands_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_tick gauge\n")
		fmt.Fprintf(rw, "gridlands_world_tick{world=%q} %d\n", *worldID, tick)

		fmt.Fprintf(rw, "# HELP gridlands_world_epoch Current epoch number.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_epoch gauge\n")
		fmt.Fprintf(rw, "gridlands_world_epoch{world=%q} %d\n", *worldID, m.Epoch)

		fmt.Fprintf(rw, "# HELP gridlands_world_active Whether the world accepts gameplay commands.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_active gauge\n")
		fmt.Fprintf(rw, "gridlands_world_active{world=%q} %d\n", *worldID, boolMetric(m.Active))

		fmt.Fprintf(rw, "# HELP gridlands_world_players Players currently on the grid.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_players gauge\n")
		fmt.Fprintf(rw, "gridlands_world_players{world=%q} %d\n", *worldID, m.Players)

		fmt.Fprintf(rw, "# HELP gridlands_world_clients Connected gameplay sessions.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_clients gauge\n")
		fmt.Fprintf(rw, "gridlands_world_clients{world=%q} %d\n", *worldID, m.Clients)

		fmt.Fprintf(rw, "# HELP gridlands_world_observers Connected observer sessions.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_observers gauge\n")
		fmt.Fprintf(rw, "gridlands_world_observers{world=%q} %d\n", *worldID, m.Observers)

		fmt.Fprintf(rw, "# HELP gridlands_world_occupied_cells Cells occupied by a player.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_occupied_cells gauge\n")
		fmt.Fprintf(rw, "gridlands_world_occupied_cells{world=%q} %d\n", *worldID, m.OccupiedCells)

		fmt.Fprintf(rw, "# HELP gridlands_world_deposit_cells Cells holding a deposit.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_deposit_cells gauge\n")
		fmt.Fprintf(rw, "gridlands_world_deposit_cells{world=%q,resource=%q} %d\n", *worldID, "tokens", m.TokenDepositCells)
		fmt.Fprintf(rw, "gridlands_world_deposit_cells{world=%q,resource=%q} %d\n", *worldID, "health", m.HealthDepositCells)

		fmt.Fprintf(rw, "# HELP gridlands_world_deposit_sum Total undredged deposit amounts.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_deposit_sum gauge\n")
		fmt.Fprintf(rw, "gridlands_world_deposit_sum{world=%q,resource=%q} %d\n", *worldID, "tokens", m.TokenDepositSum)
		fmt.Fprintf(rw, "gridlands_world_deposit_sum{world=%q,resource=%q} %d\n", *worldID, "health", m.HealthDepositSum)

		fmt.Fprintf(rw, "# HELP gridlands_world_restart_total Epoch restarts since boot.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_restart_total counter\n")
		fmt.Fprintf(rw, "gridlands_world_restart_total{world=%q} %d\n", *worldID, m.RestartTotal)

		fmt.Fprintf(rw, "# HELP gridlands_world_queue_depth Channel backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_queue_depth gauge\n")
		fmt.Fprintf(rw, "gridlands_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "inbox", m.QueueDepths.Inbox)
		fmt.Fprintf(rw, "gridlands_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "attach", m.QueueDepths.Attach)
		fmt.Fprintf(rw, "gridlands_world_queue_depth{world=%q,queue=%q} %d\n", *worldID, "admin", m.QueueDepths.Admin)

		fmt.Fprintf(rw, "# HELP gridlands_world_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_world_step_ms gauge\n")
		fmt.Fprintf(rw, "gridlands_world_step_ms{world=%q} %.3f\n", *worldID, m.StepMS)

		writeIndexMetrics(rw, idx)
	})

	enableAdminHTTP := envBool("GL_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("GL_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		registerAdminHandlers(mux, w, ledger, *worldID, logger)
	} else {
		logger.Printf("admin endpoints disabled (GL_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (GL_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// registerAdminHandlers wires the local-only operator surface. The
// loopback check is the transport gate; the world additionally rejects
// operations whose actor is not the admin principal.
func registerAdminHandlers(mux *http.ServeMux, w *world.World, ledger *oracle.MemLedger, worldID string, logger *log.Logger) {
	actor := w.AdminPrincipal()

	writeJSON := func(rw http.ResponseWriter, status int, v any) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		_ = json.NewEncoder(rw).Encode(v)
	}
	opHandler := func(run func(ctx context.Context, r *http.Request) (uint64, error)) http.HandlerFunc {
		return func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			tick, err := run(ctx, r)
			if err != nil {
				writeJSON(rw, http.StatusConflict, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
				return
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
		}
	}

	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		resp := struct {
			WorldID string               `json:"world_id"`
			Tick    uint64               `json:"tick"`
			Params  protocol.WorldParams `json:"params"`
			Metrics world.WorldMetrics   `json:"metrics"`
		}{
			WorldID: worldID,
			Tick:    w.CurrentTick(),
			Params:  w.Params(),
			Metrics: w.Metrics(),
		}
		writeJSON(rw, http.StatusOK, resp)
	})

	mux.HandleFunc("/admin/v1/balances", func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		writeJSON(rw, http.StatusOK, struct {
			WorldID string               `json:"world_id"`
			Tick    uint64               `json:"tick"`
			Ledger  oracle.LedgerSection `json:"ledger"`
		}{
			WorldID: worldID,
			Tick:    w.CurrentTick(),
			Ledger:  ledger.Export(),
		})
	})

	mux.HandleFunc("/admin/v1/start", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		return w.RequestStart(ctx, actor)
	}))
	mux.HandleFunc("/admin/v1/stop", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		return w.RequestStop(ctx, actor)
	}))
	mux.HandleFunc("/admin/v1/restart", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		return w.RequestRestart(ctx, actor)
	}))
	mux.HandleFunc("/admin/v1/attrition", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		return w.RequestAttrition(ctx, actor)
	}))
	mux.HandleFunc("/admin/v1/shuffle", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		var body struct {
			SeedA string `json:"seed_a"`
			SeedB string `json:"seed_b"`
		}
		if err := decodeBody(r, &body); err != nil {
			return 0, err
		}
		return w.RequestShuffle(ctx, actor, body.SeedA, body.SeedB)
	}))
	mux.HandleFunc("/admin/v1/drop", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		var body struct {
			Kind   string `json:"kind"`
			Amount uint64 `json:"amount"`
		}
		if err := decodeBody(r, &body); err != nil {
			return 0, err
		}
		return w.RequestDrop(ctx, actor, body.Kind, body.Amount)
	}))
	mux.HandleFunc("/admin/v1/config", opHandler(func(ctx context.Context, r *http.Request) (uint64, error) {
		var body world.BalanceConfig
		if err := decodeBody(r, &body); err != nil {
			return 0, err
		}
		return w.RequestConfigure(ctx, actor, body)
	}))

	mux.HandleFunc("/admin/v1/snapshot", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		tick, err := w.RequestSnapshot(ctx)
		if err != nil {
			writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
	})

	obsSrv := observer.NewServer(w, logger)
	mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(worldDir string) string {
	dir := filepath.Join(worldDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		tick, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func boolMetric(b bool) int {
	if b {
		return 1
	}
	return 0
}

func writeIndexMetrics(rw io.Writer, idx runtimeIndex) {
	switch v := idx.(type) {
	case *indexdb.SQLiteIndex:
		s := v.Stats()
		fmt.Fprintf(rw, "# HELP gridlands_index_queue_depth Index writer queue depth.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "gridlands_index_queue_depth %d\n", s.QueueLen)

		fmt.Fprintf(rw, "# HELP gridlands_index_queue_capacity Index writer queue capacity.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_queue_capacity gauge\n")
		fmt.Fprintf(rw, "gridlands_index_queue_capacity %d\n", s.QueueCap)

		fmt.Fprintf(rw, "# HELP gridlands_index_enqueued_total Entries accepted by the index queue.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_enqueued_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_enqueued_total %d\n", s.EnqueuedTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_dropped_total Entries shed because the index queue was full.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_dropped_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_dropped_total{kind=%q} %d\n", "tick", s.DropTickTotal)
		fmt.Fprintf(rw, "gridlands_index_dropped_total{kind=%q} %d\n", "audit", s.DropAuditTotal)
		fmt.Fprintf(rw, "gridlands_index_dropped_total{kind=%q} %d\n", "other", s.DropOtherTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_commit_total Committed index transactions.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_commit_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_commit_total %d\n", s.CommitTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_write_err_total Index statement or commit errors.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_write_err_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_write_err_total %d\n", s.WriteErrTotal)
	case *indexdb.RemoteIndex:
		s := v.Stats()
		fmt.Fprintf(rw, "# HELP gridlands_index_remote_queue_depth Remote index queue depth.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_queue_depth gauge\n")
		fmt.Fprintf(rw, "gridlands_index_remote_queue_depth %d\n", s.QueueLen)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_pending Remote index events awaiting delivery.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_pending gauge\n")
		fmt.Fprintf(rw, "gridlands_index_remote_pending %d\n", s.PendingLen)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_enqueued_total Events accepted by the remote index queue.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_enqueued_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_remote_enqueued_total %d\n", s.EnqueuedTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_dropped_total Events shed by the remote index queue or backlog cap.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_dropped_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_remote_dropped_total %d\n", s.QueueDroppedTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_flush_ok_total Successful remote index flushes.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_flush_ok_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_remote_flush_ok_total %d\n", s.FlushOKTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_flush_fail_total Failed remote index flushes (batch retained).\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_flush_fail_total counter\n")
		fmt.Fprintf(rw, "gridlands_index_remote_flush_fail_total %d\n", s.FlushFailTotal)

		fmt.Fprintf(rw, "# HELP gridlands_index_remote_last_flush_ok_unix Unix timestamp of last successful flush.\n")
		fmt.Fprintf(rw, "# TYPE gridlands_index_remote_last_flush_ok_unix gauge\n")
		fmt.Fprintf(rw, "gridlands_index_remote_last_flush_ok_unix %d\n", s.LastFlushOKUnix)
	}
}

type multiTickLogger struct {
	a world.TickLogger
	b world.TickLogger
}

func (m multiTickLogger) WriteTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTick(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTick(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
