package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	tick := fs.Uint64("tick", 0, "tick filter (optional)")
	limit := fs.Int("limit", 20, "result limit")
	playerID := fs.String("player", "", "player_id filter (cmds)")
	_ = fs.Parse(args)

	q := "snapshots"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing -world or -db")
			os.Exit(2)
		}
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	switch q {
	case "snapshots":
		rows, err := db.Query(`SELECT tick,path,epoch,active,players,occupied_cells,token_deposit_sum,health_deposit_sum,epoch_final,recorded_at FROM snapshots ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick             int64  `json:"tick"`
				Path             string `json:"path"`
				Epoch            int64  `json:"epoch"`
				Active           bool   `json:"active"`
				Players          int    `json:"players"`
				OccupiedCells    int    `json:"occupied_cells"`
				TokenDepositSum  int64  `json:"token_deposit_sum"`
				HealthDepositSum int64  `json:"health_deposit_sum"`
				EpochFinal       bool   `json:"epoch_final"`
				RecordedAt       string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Tick, &r.Path, &r.Epoch, &r.Active, &r.Players, &r.OccupiedCells, &r.TokenDepositSum, &r.HealthDepositSum, &r.EpochFinal, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "epochs":
		rows, err := db.Query(`SELECT epoch,end_tick,seed,snapshot_path,recorded_at FROM epochs ORDER BY epoch DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Epoch        int64  `json:"epoch"`
				EndTick      int64  `json:"end_tick"`
				Seed         int64  `json:"seed"`
				SnapshotPath string `json:"snapshot_path"`
				RecordedAt   string `json:"recorded_at"`
			}
			if err := rows.Scan(&r.Epoch, &r.EndTick, &r.Seed, &r.SnapshotPath, &r.RecordedAt); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "ticks":
		query := `SELECT tick,digest,mints,admin_ops,cmds FROM ticks ORDER BY tick DESC LIMIT ?`
		qargs := []any{*limit}
		if *tick != 0 {
			query = `SELECT tick,digest,mints,admin_ops,cmds FROM ticks WHERE tick=?`
			qargs = []any{*tick}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick     int64  `json:"tick"`
				Digest   string `json:"digest"`
				Mints    int    `json:"mints"`
				AdminOps int    `json:"admin_ops"`
				Cmds     int    `json:"cmds"`
			}
			if err := rows.Scan(&r.Tick, &r.Digest, &r.Mints, &r.AdminOps, &r.Cmds); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "audits":
		query := `SELECT id,tick,actor,op,ok,code FROM audits ORDER BY id DESC LIMIT ?`
		qargs := []any{*limit}
		if *tick != 0 {
			query = `SELECT id,tick,actor,op,ok,code FROM audits WHERE tick=? ORDER BY id`
			qargs = []any{*tick}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				ID    int64          `json:"id"`
				Tick  int64          `json:"tick"`
				Actor string         `json:"actor"`
				Op    string         `json:"op"`
				OK    bool           `json:"ok"`
				Code  sql.NullString `json:"-"`
			}
			if err := rows.Scan(&r.ID, &r.Tick, &r.Actor, &r.Op, &r.OK, &r.Code); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(struct {
				ID    int64  `json:"id"`
				Tick  int64  `json:"tick"`
				Actor string `json:"actor"`
				Op    string `json:"op"`
				OK    bool   `json:"ok"`
				Code  string `json:"code,omitempty"`
			}{r.ID, r.Tick, r.Actor, r.Op, r.OK, r.Code.String})
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "cmds":
		query := `SELECT tick,seq,player_id,principal,cmd_json FROM cmds ORDER BY tick DESC, seq ASC LIMIT ?`
		qargs := []any{*limit}
		if strings.TrimSpace(*playerID) != "" {
			query = `SELECT tick,seq,player_id,principal,cmd_json FROM cmds WHERE player_id=? ORDER BY tick DESC, seq ASC LIMIT ?`
			qargs = []any{strings.TrimSpace(*playerID), *limit}
		}
		rows, err := db.Query(query, qargs...)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      int64           `json:"tick"`
				Seq       int             `json:"seq"`
				PlayerID  string          `json:"player_id"`
				Principal string          `json:"principal"`
				Cmd       json.RawMessage `json:"cmd"`
			}
			var raw string
			if err := rows.Scan(&r.Tick, &r.Seq, &r.PlayerID, &r.Principal, &raw); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			r.Cmd = json.RawMessage(raw)
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "mints":
		rows, err := db.Query(`SELECT tick,player_id,principal FROM mints ORDER BY tick DESC LIMIT ?`, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Tick      int64  `json:"tick"`
				PlayerID  string `json:"player_id"`
				Principal string `json:"principal"`
			}
			if err := rows.Scan(&r.Tick, &r.PlayerID, &r.Principal); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	case "meta":
		rows, err := db.Query(`SELECT key,value FROM meta ORDER BY key`)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		defer rows.Close()
		for rows.Next() {
			var r struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			}
			if err := rows.Scan(&r.Key, &r.Value); err != nil {
				fmt.Fprintln(os.Stderr, "scan:", err)
				os.Exit(1)
			}
			printJSON(r)
		}
		if err := rows.Err(); err != nil {
			fmt.Fprintln(os.Stderr, "rows:", err)
			os.Exit(1)
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		fmt.Fprintln(os.Stderr, "usage: admin db [-data ./data] [-world WORLD|-db PATH] [-tick T] [-limit N] [-player P] snapshots|epochs|ticks|audits|cmds|mints|meta")
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
