package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gridlands.gg/internal/oracle"
	"gridlands.gg/internal/sim/world"
)

func newHandlersTestWorld(t *testing.T) (*world.World, *oracle.MemLedger, func()) {
	t.Helper()
	store := oracle.NewPlayerStore(100)
	ledger := oracle.NewMemLedger()
	w, err := world.New(world.WorldConfig{
		ID:             "test",
		TickRateHz:     50,
		Seed:           7,
		GridWidth:      8,
		GridHeight:     8,
		StartActive:    true,
		AdminPrincipal: "acct:operator",
		Balance:        world.BalanceConfig{MaxPlayers: 4},
	}, world.Collaborators{Registry: store, Health: store, Ledger: ledger, Minter: store})
	if err != nil {
		t.Fatalf("world: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	stop := func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("world loop did not exit")
		}
	}
	return w, ledger, stop
}

func TestAdminHandlers_LoopbackGateAndOps(t *testing.T) {
	w, ledger, stop := newHandlersTestWorld(t)
	defer stop()

	mux := http.NewServeMux()
	registerAdminHandlers(mux, w, ledger, "test", log.New(io.Discard, "", 0))

	do := func(method, path, remote, body string) *httptest.ResponseRecorder {
		t.Helper()
		var rd io.Reader
		if body != "" {
			rd = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, rd)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}

	if rec := do(http.MethodGet, "/admin/v1/state", "8.8.8.8:1234", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("non-loopback state: %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/admin/v1/restart", "8.8.8.8:1234", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("non-loopback restart: %d", rec.Code)
	}

	rec := do(http.MethodGet, "/admin/v1/state", "127.0.0.1:4321", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("state: %d body=%s", rec.Code, rec.Body.String())
	}
	var state struct {
		WorldID string             `json:"world_id"`
		Metrics world.WorldMetrics `json:"metrics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.WorldID != "test" || state.Metrics.Epoch != 1 {
		t.Fatalf("state body: %+v", state)
	}

	if rec := do(http.MethodGet, "/admin/v1/drop", "127.0.0.1:4321", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET drop: %d", rec.Code)
	}

	rec = do(http.MethodPost, "/admin/v1/drop", "127.0.0.1:4321", `{"kind":"GEMS","amount":5}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("bad drop kind: %d body=%s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodPost, "/admin/v1/drop", "127.0.0.1:4321", `{"kind":"TOKENS","amount":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("drop: %d body=%s", rec.Code, rec.Body.String())
	}
	var dropResp struct {
		OK   bool   `json:"ok"`
		Tick uint64 `json:"tick"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &dropResp); err != nil || !dropResp.OK {
		t.Fatalf("drop response: %s err=%v", rec.Body.String(), err)
	}

	// Unknown body fields are rejected before the op reaches the world.
	rec = do(http.MethodPost, "/admin/v1/shuffle", "127.0.0.1:4321", `{"seed_a":"a","seed_b":"b","bogus":1}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("shuffle with unknown field: %d", rec.Code)
	}
	rec = do(http.MethodPost, "/admin/v1/shuffle", "127.0.0.1:4321", `{"seed_a":"a","seed_b":"b"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("shuffle: %d body=%s", rec.Code, rec.Body.String())
	}

	// Stopping twice stays a silent no-op.
	for i := 0; i < 2; i++ {
		if rec := do(http.MethodPost, "/admin/v1/stop", "127.0.0.1:4321", ""); rec.Code != http.StatusOK {
			t.Fatalf("stop %d: %d body=%s", i, rec.Code, rec.Body.String())
		}
	}

	if rec := do(http.MethodPost, "/admin/v1/restart", "127.0.0.1:4321", ""); rec.Code != http.StatusOK {
		t.Fatalf("restart: %d body=%s", rec.Code, rec.Body.String())
	}

	_ = ledger.Credit("acct:alice", 42)
	rec = do(http.MethodGet, "/admin/v1/balances", "127.0.0.1:4321", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balances: %d", rec.Code)
	}
	var bal struct {
		Ledger oracle.LedgerSection `json:"ledger"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &bal); err != nil {
		t.Fatalf("decode balances: %v", err)
	}
	if len(bal.Ledger.Balances) != 1 || bal.Ledger.Balances[0].Identity != "acct:alice" || bal.Ledger.Balances[0].Amount != 42 {
		t.Fatalf("balances body: %+v", bal)
	}
}

func TestLatestSnapshot_PicksHighestTick(t *testing.T) {
	worldDir := t.TempDir()
	dir := filepath.Join(worldDir, "snapshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"5.snap.zst", "50.snap.zst", "junk.txt", "x.snap.zst"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if got := latestSnapshot(worldDir); filepath.Base(got) != "50.snap.zst" {
		t.Fatalf("latest = %q", got)
	}
	if got := latestSnapshot(t.TempDir()); got != "" {
		t.Fatalf("empty dir latest = %q", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:8080": true,
		"[::1]:8080":     true,
		"8.8.8.8:53":     false,
		"10.0.0.1:1":     false,
		"garbage":        false,
	}
	for addr, want := range cases {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("isLoopbackRemote(%q) = %v, want %v", addr, got, want)
		}
	}
}
