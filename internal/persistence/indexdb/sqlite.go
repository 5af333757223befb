// Package indexdb keeps a SQLite index of simulation runs, their per-round
// digests, and where on disk their snapshots live. The JSONL round logs and
// save files remain the source of truth; the index only makes them queryable.
package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"amoebotsim.ai/internal/sim/system"
)

type SQLiteIndex struct {
	db *sql.DB

	runID string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqRound reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	round    system.RoundLogEntry
	snapshot snapshotRow
	flush    chan struct{}
}

type snapshotRow struct {
	Round     uint64
	Path      string
	Digest    string
	Particles int
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	RunID      string
	SimID      string
	Seed       int64
	ConfigJSON string
	CreatedAt  string
}

// SnapshotInfo is one row of the snapshots table.
type SnapshotInfo struct {
	RunID     string
	Round     uint64
	Path      string
	Digest    string
	Particles int
}

// OpenSQLite opens (or creates) the index at path and registers a new run
// for the given simulation config. All subsequent WriteRound/RecordSnapshot
// calls attach to that run.
func OpenSQLite(path string, cfg system.Config) (*SQLiteIndex, error) {
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
		// High buffer: a replay verifying thousands of rounds should not
		// stall on the indexer.
		ch: make(chan req, 65536),
	}
	if err := s.insertRun(cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLiteRead opens an existing index for queries only: no run row is
// inserted and nothing may be written through the handle.
func OpenSQLiteRead(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteIndex{db: db, ch: make(chan req)}
	s.closed.Store(true)
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
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			sim_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_sim ON runs(sim_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS rounds (
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			digest TEXT NOT NULL,
			moved INTEGER NOT NULL,
			beeps INTEGER NOT NULL,
			msgs INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, round)
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			particles INTEGER NOT NULL,
			PRIMARY KEY (run_id, round)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) insertRun(cfg system.Config) error {
	s.runID = uuid.NewString()
	b, _ := json.Marshal(cfg)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`INSERT INTO runs(run_id,sim_id,seed,config_json,created_at) VALUES(?,?,?,?,?)`,
		s.runID, cfg.ID, cfg.Seed, string(b), now,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// RunID returns the identifier of the run registered at open time.
func (s *SQLiteIndex) RunID() string { return s.runID }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteRound implements system.RoundLogger. Entries are indexed
// asynchronously and may be dropped under sustained backpressure; the JSONL
// round log remains authoritative.
func (s *SQLiteIndex) WriteRound(entry system.RoundLogEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqRound, round: entry}:
	default:
	}
	return nil
}

func (s *SQLiteIndex) RecordSnapshot(path string, round uint64, digest string, particles int) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{Round: round, Path: path, Digest: digest, Particles: particles}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// Flush blocks until the writer goroutine has drained everything enqueued
// before the call and committed it.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, flush: done}
	<-done
}

// ListRuns returns the recorded runs, newest first.
func (s *SQLiteIndex) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id,sim_id,seed,config_json,created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.RunID, &r.SimID, &r.Seed, &r.ConfigJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListSnapshots returns the snapshots of one run in round order.
func (s *SQLiteIndex) ListSnapshots(ctx context.Context, runID string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id,round,path,digest,particles FROM snapshots WHERE run_id=? ORDER BY round`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var sn SnapshotInfo
		if err := rows.Scan(&sn.RunID, &sn.Round, &sn.Path, &sn.Digest, &sn.Particles); err != nil {
			return nil, err
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

// DigestForRound looks up a recorded round digest for the current run.
func (s *SQLiteIndex) DigestForRound(ctx context.Context, round uint64) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx,
		`SELECT digest FROM rounds WHERE run_id=? AND round=?`, s.runID, int64(round)).Scan(&digest)
	if err != nil {
		return "", err
	}
	return digest, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertRound, _ := s.db.Prepare(`INSERT OR REPLACE INTO rounds(run_id,round,digest,moved,beeps,msgs,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(run_id,round,path,digest,particles) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertRound != nil {
			_ = insertRound.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqFlush {
			commit()
			close(r.flush)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqRound:
			e := r.round
			raw, _ := json.Marshal(e)
			if insertRound != nil {
				if _, err := tx.Stmt(insertRound).Exec(
					s.runID,
					int64(e.Round),
					e.Digest,
					len(e.Moved),
					e.Beeps,
					e.Msgs,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					s.runID,
					int64(sn.Round),
					sn.Path,
					sn.Digest,
					sn.Particles,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
