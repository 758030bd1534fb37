package snapshot

import (
	"path/filepath"
	"testing"

	"gridlands.gg/internal/oracle"
)

func TestWriteReadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots", "42.snap.zst")

	snap := SnapshotV1{
		Header:               Header{Version: 1, WorldID: "grid_1", Tick: 42},
		Seed:                 7,
		TickRate:             5,
		GridWidth:            24,
		GridHeight:           24,
		CollectIntervalTicks: 50,
		DropOnCollect:        true,
		AttritionDivider:     10,
		HealthCostPerMove:    1,
		MaxPlayers:           50,
		ShuffleTokenAmounts:  [2]uint64{500, 250},
		ShuffleHealthAmounts: [2]uint64{100, 50},
		SnapshotEveryTicks:   3000,
		AdminPrincipal:       "acct:operator",
		Epoch:                3,
		Active:               true,
		LastDigest:           "abc123",
		Cells: []CellV1{
			{X: 1, Y: 2, Occupant: "P1"},
			{X: 5, Y: 5, TokenDeposit: 500},
			{X: 0, Y: 9, HealthDeposit: 100, Occupant: "P2"},
		},
		Roster: []string{"P1", "P2"},
		Players: []PlayerV1{
			{ID: "P1", X: 1, Y: 2, Placed: true, LastCollectTick: 40, HasCollected: true, JoinedTick: 3},
			{ID: "P2", X: 0, Y: 9, Placed: true, JoinedTick: 10},
		},
		Oracle: OracleV1{
			StartingHealth: 100,
			Players: oracle.PlayersSection{Seq: 2, Players: []oracle.PlayerRecord{
				{ID: "P1", Principal: "acct:alice", Health: 96},
				{ID: "P2", Principal: "acct:bob", Health: 100},
			}},
			Ledger: oracle.LedgerSection{Balances: []oracle.BalanceRecord{
				{Identity: "acct:alice", Amount: 500},
			}},
		},
	}

	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if got.Header != snap.Header {
		t.Fatalf("header mismatch: %+v vs %+v", got.Header, snap.Header)
	}
	if got.Epoch != 3 || !got.Active || got.LastDigest != "abc123" {
		t.Fatalf("world fields mismatch: %+v", got)
	}
	if len(got.Cells) != 3 || got.Cells[1].TokenDeposit != 500 {
		t.Fatalf("cells mismatch: %+v", got.Cells)
	}
	if len(got.Roster) != 2 || got.Roster[0] != "P1" {
		t.Fatalf("roster mismatch: %+v", got.Roster)
	}
	if got.Players[0].LastCollectTick != 40 || !got.Players[0].HasCollected {
		t.Fatalf("player cooldown state lost: %+v", got.Players[0])
	}
	if got.Oracle.StartingHealth != 100 || got.Oracle.Players.Seq != 2 {
		t.Fatalf("oracle section mismatch: %+v", got.Oracle)
	}
	if got.Oracle.Ledger.Balances[0].Amount != 500 {
		t.Fatalf("ledger section mismatch: %+v", got.Oracle.Ledger)
	}
}

func TestReadSnapshot_MissingFile(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.snap.zst")); err == nil {
		t.Fatalf("expected an error for a missing snapshot")
	}
}
