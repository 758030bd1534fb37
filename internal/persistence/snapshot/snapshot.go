package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"gridlands.gg/internal/oracle"
)

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed       int64 `json:"seed"`
	TickRate   int   `json:"tick_rate_hz"`
	GridWidth  int   `json:"grid_width"`
	GridHeight int   `json:"grid_height"`

	// Balance parameters (captured for deterministic replay/resume).
	CollectIntervalTicks uint64    `json:"collect_interval_ticks"`
	DropOnCollect        bool      `json:"drop_on_collect"`
	AttritionDivider     uint64    `json:"attrition_divider"`
	HealthCostPerMove    uint64    `json:"health_cost_per_move"`
	MaxPlayers           int       `json:"max_players"`
	ShuffleTokenAmounts  [2]uint64 `json:"shuffle_token_amounts"`
	ShuffleHealthAmounts [2]uint64 `json:"shuffle_health_amounts"`

	SnapshotEveryTicks int    `json:"snapshot_every_ticks,omitempty"`
	AdminPrincipal     string `json:"admin_principal,omitempty"`

	Epoch  uint64 `json:"epoch"`
	Active bool   `json:"active"`

	// LastDigest seals the tick named in the header; the resumed world
	// chains its entropy draws off it.
	LastDigest string `json:"last_digest"`

	// EpochFinal marks the archival snapshot taken just before a
	// restart clears the epoch. It is not a resume point: the tick it
	// names is re-run from the op log, which would re-apply the restart.
	EpochFinal bool `json:"epoch_final,omitempty"`

	Cells   []CellV1   `json:"cells"`
	Roster  []string   `json:"roster"`
	Players []PlayerV1 `json:"players"`

	Oracle OracleV1 `json:"oracle"`
}

// CellV1 is one non-empty grid cell; empty cells are implied.
type CellV1 struct {
	X             int    `json:"x"`
	Y             int    `json:"y"`
	Occupant      string `json:"occupant,omitempty"`
	TokenDeposit  uint64 `json:"token_deposit,omitempty"`
	HealthDeposit uint64 `json:"health_deposit,omitempty"`
}

type PlayerV1 struct {
	ID              string `json:"id"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Placed          bool   `json:"placed"`
	LastCollectTick uint64 `json:"last_collect_tick"`
	HasCollected    bool   `json:"has_collected"`
	JoinedTick      uint64 `json:"joined_tick"`
}

// OracleV1 captures the in-process oracle stores alongside the world so
// a resume starts from matching identity, health and ledger state.
type OracleV1 struct {
	StartingHealth uint64                `json:"starting_health"`
	Players        oracle.PlayersSection `json:"players"`
	Ledger         oracle.LedgerSection  `json:"ledger"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Read header line (ignore it for now, gob also contains header).
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
