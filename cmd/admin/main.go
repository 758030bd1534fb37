package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gridlands.gg/internal/persistence/archive"
	"gridlands.gg/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "inspect":
			inspectCmd(os.Args[2:])
			return
		case "epochs":
			epochsCmd(os.Args[2:])
			return
		case "state", "balances":
			getCmd(os.Args[1], os.Args[2:])
			return
		case "snapshot", "start", "stop", "restart", "attrition":
			postCmd(os.Args[1], os.Args[2:])
			return
		case "shuffle":
			shuffleCmd(os.Args[2:])
			return
		case "drop":
			dropCmd(os.Args[2:])
			return
		case "config":
			configCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (optional)")
	_ = fs.Parse(args)

	base := filepath.Join(*dataDir, "worlds")
	if *worldID != "" {
		base = filepath.Join(base, *worldID)
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

func inspectCmd(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	snapPath := fs.String("snapshot", "", "path to .snap.zst (optional; defaults to the world's latest)")
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (used when -snapshot is empty)")
	players := fs.Bool("players", false, "also print the player roster")
	cells := fs.Bool("cells", false, "also print non-empty cells")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -snapshot or -world")
			os.Exit(2)
		}
		path = latestSnapshot(filepath.Join(*dataDir, "worlds", *worldID))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshot found; provide -snapshot or run the server until it writes one")
			os.Exit(2)
		}
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}

	var occupied int
	var tokenSum, healthSum uint64
	for _, c := range snap.Cells {
		if c.Occupant != "" {
			occupied++
		}
		tokenSum += c.TokenDeposit
		healthSum += c.HealthDeposit
	}

	printJSON(struct {
		Path           string `json:"path"`
		Version        int    `json:"version"`
		WorldID        string `json:"world_id"`
		Tick           uint64 `json:"tick"`
		Seed           int64  `json:"seed"`
		GridWidth      int    `json:"grid_width"`
		GridHeight     int    `json:"grid_height"`
		Epoch          uint64 `json:"epoch"`
		Active         bool   `json:"active"`
		EpochFinal     bool   `json:"epoch_final"`
		Players        int    `json:"players"`
		Roster         int    `json:"roster"`
		OccupiedCells  int    `json:"occupied_cells"`
		TokenDeposits  uint64 `json:"token_deposit_sum"`
		HealthDeposits uint64 `json:"health_deposit_sum"`
		LastDigest     string `json:"last_digest"`
	}{
		Path:           path,
		Version:        snap.Header.Version,
		WorldID:        snap.Header.WorldID,
		Tick:           snap.Header.Tick,
		Seed:           snap.Seed,
		GridWidth:      snap.GridWidth,
		GridHeight:     snap.GridHeight,
		Epoch:          snap.Epoch,
		Active:         snap.Active,
		EpochFinal:     snap.EpochFinal,
		Players:        len(snap.Players),
		Roster:         len(snap.Roster),
		OccupiedCells:  occupied,
		TokenDeposits:  tokenSum,
		HealthDeposits: healthSum,
		LastDigest:     snap.LastDigest,
	})

	if *players {
		health := make(map[string]uint64, len(snap.Oracle.Players.Players))
		owner := make(map[string]string, len(snap.Oracle.Players.Players))
		for _, p := range snap.Oracle.Players.Players {
			health[p.ID] = p.Health
			owner[p.ID] = p.Principal
		}
		for _, p := range snap.Players {
			printJSON(struct {
				PlayerID        string `json:"player_id"`
				Principal       string `json:"principal,omitempty"`
				X               int    `json:"x"`
				Y               int    `json:"y"`
				Placed          bool   `json:"placed"`
				Health          uint64 `json:"health"`
				JoinedTick      uint64 `json:"joined_tick"`
				LastCollectTick uint64 `json:"last_collect_tick,omitempty"`
			}{
				PlayerID:        p.ID,
				Principal:       owner[p.ID],
				X:               p.X,
				Y:               p.Y,
				Placed:          p.Placed,
				Health:          health[p.ID],
				JoinedTick:      p.JoinedTick,
				LastCollectTick: p.LastCollectTick,
			})
		}
	}

	if *cells {
		for _, c := range snap.Cells {
			printJSON(c)
		}
	}
}

func epochsCmd(args []string) {
	fs := flag.NewFlagSet("epochs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}

	metas, err := archive.ListEpochArchives(filepath.Join(*dataDir, "worlds", *worldID))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list epochs:", err)
		os.Exit(1)
	}
	if len(metas) == 0 {
		fmt.Println("no archived epochs")
		return
	}
	for _, m := range metas {
		printJSON(m)
	}
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
