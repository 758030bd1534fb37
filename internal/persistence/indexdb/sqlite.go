// Package indexdb maintains queryable indexes over the world's op log
// and audit trail. The JSONL logs stay the source of truth and an index
// can always be rebuilt from them, so index writers shed load instead
// of stalling the tick loop.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridlands.gg/internal/persistence/snapshot"
	"gridlands.gg/internal/sim/tuning"
	"gridlands.gg/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed   atomic.Bool
	closeErr error

	enqueued  atomic.Uint64
	dropTick  atomic.Uint64
	dropAudit atomic.Uint64
	dropOther atomic.Uint64
	commits   atomic.Uint64
	writeErrs atomic.Uint64
}

type reqKind int

const (
	reqTick reqKind = iota + 1
	reqAudit
	reqSnapshot
	reqEpoch
	reqTuning
	reqMeta
)

type req struct {
	kind reqKind

	tick     world.TickLogEntry
	audit    world.AuditEntry
	snapshot snapshotRow
	epoch    epochRow
	tune     tuning.Tuning
	metaKV   [2]string
}

type snapshotRow struct {
	Path string
	Snap snapshot.SnapshotV1
}

type epochRow struct {
	Epoch   uint64
	EndTick uint64
	Seed    int64
	Path    string
}

// Stats is a point-in-time view of the writer queue. Drop counters only
// grow; a nonzero tick drop count means the index lost entries that the
// JSONL op log still has.
type Stats struct {
	QueueLen int
	QueueCap int

	EnqueuedTotal  uint64
	DropTickTotal  uint64
	DropAuditTotal uint64
	DropOtherTotal uint64

	CommitTotal   uint64
	WriteErrTotal uint64
}

var ErrIndexClosed = errors.New("indexdb: closed")

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: a batch commit in flight must not stall the sim.
		ch: make(chan req, 262144),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tuning (
			digest     TEXT PRIMARY KEY,
			body_json  TEXT NOT NULL,
			first_seen INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			tick      INTEGER PRIMARY KEY,
			digest    TEXT NOT NULL,
			mints     INTEGER NOT NULL,
			admin_ops INTEGER NOT NULL,
			cmds      INTEGER NOT NULL,
			raw_json  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS mints (
			tick      INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			principal TEXT NOT NULL,
			PRIMARY KEY (tick, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_mints_principal ON mints(principal);`,
		`CREATE TABLE IF NOT EXISTS cmds (
			tick      INTEGER NOT NULL,
			seq       INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			principal TEXT NOT NULL,
			cmd_json  TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cmds_player ON cmds(player_id, tick);`,
		`CREATE TABLE IF NOT EXISTS audits (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			tick     INTEGER NOT NULL,
			actor    TEXT NOT NULL,
			op       TEXT NOT NULL,
			ok       INTEGER NOT NULL,
			code     TEXT,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_tick ON audits(tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick               INTEGER PRIMARY KEY,
			path               TEXT NOT NULL,
			epoch              INTEGER NOT NULL,
			active             INTEGER NOT NULL,
			players            INTEGER NOT NULL,
			occupied_cells     INTEGER NOT NULL,
			token_deposit_sum  INTEGER NOT NULL,
			health_deposit_sum INTEGER NOT NULL,
			epoch_final        INTEGER NOT NULL,
			recorded_at        TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS epochs (
			epoch         INTEGER PRIMARY KEY,
			end_tick      INTEGER NOT NULL,
			seed          INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL,
			recorded_at   TEXT NOT NULL
		);`,
	}
	for _, q := range stmts {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', '1');`)
	return err
}

// WriteTick indexes one op log entry. Never blocks: on a full queue the
// entry is dropped and counted.
func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	if s.closed.Load() {
		return ErrIndexClosed
	}
	select {
	case s.ch <- req{kind: reqTick, tick: entry}:
		s.enqueued.Add(1)
	default:
		s.dropTick.Add(1)
	}
	return nil
}

// WriteAudit indexes one admin audit entry, with the same shed-on-full
// rule as WriteTick.
func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s.closed.Load() {
		return ErrIndexClosed
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
		s.enqueued.Add(1)
	default:
		s.dropAudit.Add(1)
	}
	return nil
}

// RecordSnapshot indexes a written snapshot file. Control records are
// rare, so a full queue is reported instead of silently shed.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) error {
	return s.enqueueControl(req{kind: reqSnapshot, snapshot: snapshotRow{Path: path, Snap: snap}})
}

// RecordEpoch indexes a closed epoch and its archived snapshot.
func (s *SQLiteIndex) RecordEpoch(epoch, endTick uint64, seed int64, path string) error {
	return s.enqueueControl(req{kind: reqEpoch, epoch: epochRow{
		Epoch:   epoch,
		EndTick: endTick,
		Seed:    seed,
		Path:    path,
	}})
}

// UpsertTuning records the effective tuning keyed by its digest, so the
// parameters behind any historical WELCOME frame stay resolvable.
func (s *SQLiteIndex) UpsertTuning(t tuning.Tuning) error {
	return s.enqueueControl(req{kind: reqTuning, tune: t})
}

// UpsertMeta stores one key/value pair in the meta table.
func (s *SQLiteIndex) UpsertMeta(key, value string) error {
	return s.enqueueControl(req{kind: reqMeta, metaKV: [2]string{key, value}})
}

func (s *SQLiteIndex) enqueueControl(r req) error {
	if s.closed.Load() {
		return ErrIndexClosed
	}
	select {
	case s.ch <- r:
		s.enqueued.Add(1)
		return nil
	default:
		s.dropOther.Add(1)
		return errors.New("indexdb: queue full")
	}
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueLen:       len(s.ch),
		QueueCap:       cap(s.ch),
		EnqueuedTotal:  s.enqueued.Load(),
		DropTickTotal:  s.dropTick.Load(),
		DropAuditTotal: s.dropAudit.Load(),
		DropOtherTotal: s.dropOther.Load(),
		CommitTotal:    s.commits.Load(),
		WriteErrTotal:  s.writeErrs.Load(),
	}
}

// Close drains the queue, commits, and closes the database. Safe to
// call more than once.
func (s *SQLiteIndex) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

const (
	// commitEvery / commitMaxWait bound how much work one transaction
	// accumulates before it is committed.
	commitEvery   = 2000
	commitMaxWait = 2 * time.Second
)

func (s *SQLiteIndex) loop() {
	var (
		tx      *sql.Tx
		pending int
		started time.Time
	)

	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.writeErrs.Add(1)
			_ = tx.Rollback()
		} else {
			s.commits.Add(1)
		}
		tx = nil
		pending = 0
	}

	handle := func(r req) {
		if tx == nil {
			var err error
			tx, err = s.db.Begin()
			if err != nil {
				s.writeErrs.Add(1)
				return
			}
			started = time.Now()
		}
		if err := s.apply(tx, r); err != nil {
			s.writeErrs.Add(1)
		}
		pending++
		if pending >= commitEvery || time.Since(started) >= commitMaxWait {
			commit()
		}
	}

	flush := time.NewTicker(250 * time.Millisecond)
	defer flush.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				// Closing: drain whatever Close raced in, then stop.
				commit()
				return
			}
			handle(r)
		case <-flush.C:
			if tx != nil && time.Since(started) >= commitMaxWait {
				commit()
			}
		}
	}
}

func (s *SQLiteIndex) apply(tx *sql.Tx, r req) error {
	switch r.kind {
	case reqTick:
		return applyTick(tx, r.tick)
	case reqAudit:
		return applyAudit(tx, r.audit)
	case reqSnapshot:
		return applySnapshot(tx, r.snapshot)
	case reqEpoch:
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO epochs (epoch, end_tick, seed, snapshot_path, recorded_at)
			 VALUES (?, ?, ?, ?, ?);`,
			r.epoch.Epoch, r.epoch.EndTick, r.epoch.Seed, r.epoch.Path,
			time.Now().UTC().Format(time.RFC3339),
		)
		return err
	case reqTuning:
		body, err := json.Marshal(r.tune)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			`INSERT OR IGNORE INTO tuning (digest, body_json, first_seen) VALUES (?, ?, ?);`,
			r.tune.Digest(), string(body), time.Now().Unix(),
		)
		return err
	case reqMeta:
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?);`,
			r.metaKV[0], r.metaKV[1],
		)
		return err
	}
	return fmt.Errorf("unknown req kind %d", r.kind)
}

func applyTick(tx *sql.Tx, entry world.TickLogEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	// INSERT OR REPLACE keeps a crash-recovery re-run of the same ticks
	// idempotent.
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO ticks (tick, digest, mints, admin_ops, cmds, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		entry.Tick, entry.Digest,
		len(entry.Mints), len(entry.Admin), len(entry.Cmds), string(raw),
	); err != nil {
		return err
	}
	for _, m := range entry.Mints {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO mints (tick, player_id, principal) VALUES (?, ?, ?);`,
			entry.Tick, m.PlayerID, m.Principal,
		); err != nil {
			return err
		}
	}
	for i, c := range entry.Cmds {
		cj, err := json.Marshal(c.Cmd)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO cmds (tick, seq, player_id, principal, cmd_json)
			 VALUES (?, ?, ?, ?, ?);`,
			entry.Tick, i, c.PlayerID, c.Principal, string(cj),
		); err != nil {
			return err
		}
	}
	return nil
}

func applyAudit(tx *sql.Tx, entry world.AuditEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO audits (tick, actor, op, ok, code, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?);`,
		entry.Tick, entry.Actor, entry.Op, boolInt(entry.OK), entry.Code, string(raw),
	)
	return err
}

func applySnapshot(tx *sql.Tx, row snapshotRow) error {
	snap := row.Snap
	occupied := 0
	var tokenSum, healthSum uint64
	for _, c := range snap.Cells {
		if c.Occupant != "" {
			occupied++
		}
		tokenSum += c.TokenDeposit
		healthSum += c.HealthDeposit
	}
	_, err := tx.Exec(
		`INSERT OR REPLACE INTO snapshots
		 (tick, path, epoch, active, players, occupied_cells,
		  token_deposit_sum, health_deposit_sum, epoch_final, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		snap.Header.Tick, row.Path, snap.Epoch, boolInt(snap.Active),
		len(snap.Players), occupied, tokenSum, healthSum,
		boolInt(snap.EpochFinal), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
