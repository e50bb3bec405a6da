package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"gridswarm.ai/internal/observerproto"
)

// SQLiteIndex is a queryable side index of matches and turns. The turn log
// stays the source of truth; the index drops writes rather than stall the
// turn loop.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends against close(ch).
	mu     sync.RWMutex
	closed bool

	dropTurn   atomic.Uint64
	dropResult atomic.Uint64
}

type reqKind int

const (
	reqTurn reqKind = iota + 1
	reqResult
)

type req struct {
	kind reqKind

	turn   turnRow
	result observerproto.ResultMsg
}

type turnRow struct {
	MatchID string
	Turn    uint64
	Digest  string
	Moved   int
	Sent    int
	PaintA  int
	PaintB  int
}

// MatchRow is one row of the matches table.
type MatchRow struct {
	MatchID    string
	Seed       int64
	Width      int
	Height     int
	Symmetry   string
	StartedAt  string
	Turns      uint64
	PaintA     int
	PaintB     int
	Winner     string
	TuningJSON string
}

type Stats struct {
	QueueDepth      int
	QueueCapacity   int
	DropTurnTotal   uint64
	DropResultTotal uint64
}

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
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
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
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			symmetry TEXT NOT NULL,
			started_at TEXT NOT NULL,
			turns INTEGER NOT NULL DEFAULT 0,
			paint_a INTEGER NOT NULL DEFAULT 0,
			paint_b INTEGER NOT NULL DEFAULT 0,
			winner TEXT NOT NULL DEFAULT '',
			tuning_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS turns (
			match_id TEXT NOT NULL,
			turn INTEGER NOT NULL,
			digest TEXT NOT NULL,
			moved INTEGER NOT NULL,
			sent INTEGER NOT NULL,
			paint_a INTEGER NOT NULL,
			paint_b INTEGER NOT NULL,
			PRIMARY KEY (match_id, turn)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordMatchStart inserts the match row synchronously, before any turn is
// queued for it.
func (s *SQLiteIndex) RecordMatchStart(ctx context.Context, m MatchRow) error {
	if s == nil {
		return nil
	}
	if m.StartedAt == "" {
		m.StartedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO matches(match_id,seed,width,height,symmetry,started_at,tuning_json) VALUES(?,?,?,?,?,?,?)`,
		m.MatchID, m.Seed, m.Width, m.Height, m.Symmetry, m.StartedAt, m.TuningJSON)
	if err != nil {
		return fmt.Errorf("record match %s: %w", m.MatchID, err)
	}
	return nil
}

func (s *SQLiteIndex) WriteTurn(f observerproto.TurnFrame) error {
	if s == nil {
		return nil
	}
	r := turnRow{MatchID: f.MatchID, Turn: f.Turn, Digest: f.Digest, PaintA: f.Paint[0], PaintB: f.Paint[1]}
	for _, a := range f.Agents {
		if a.Moved {
			r.Moved++
		}
		r.Sent += a.Sent
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- req{kind: reqTurn, turn: r}:
	default:
		s.dropTurn.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) WriteResult(r observerproto.ResultMsg) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- req{kind: reqResult, result: r}:
	default:
		s.dropResult.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:      len(s.ch),
		QueueCapacity:   cap(s.ch),
		DropTurnTotal:   s.dropTurn.Load(),
		DropResultTotal: s.dropResult.Load(),
	}
}

// Matches lists the most recently started matches first.
func (s *SQLiteIndex) Matches(ctx context.Context, limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id,seed,width,height,symmetry,started_at,turns,paint_a,paint_b,winner,tuning_json
		 FROM matches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchRow
	for rows.Next() {
		var m MatchRow
		var turns int64
		if err := rows.Scan(&m.MatchID, &m.Seed, &m.Width, &m.Height, &m.Symmetry, &m.StartedAt,
			&turns, &m.PaintA, &m.PaintB, &m.Winner, &m.TuningJSON); err != nil {
			return nil, err
		}
		m.Turns = uint64(turns)
		out = append(out, m)
	}
	return out, rows.Err()
}

// TurnDigest returns the digest indexed for one turn.
func (s *SQLiteIndex) TurnDigest(ctx context.Context, matchID string, turn uint64) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM turns WHERE match_id=? AND turn=?`, matchID, int64(turn)).Scan(&d)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertTurn, _ := s.db.Prepare(`INSERT OR REPLACE INTO turns(match_id,turn,digest,moved,sent,paint_a,paint_b) VALUES(?,?,?,?,?,?,?)`)
	updateResult, _ := s.db.Prepare(`UPDATE matches SET turns=?,paint_a=?,paint_b=?,winner=? WHERE match_id=?`)
	defer func() {
		if insertTurn != nil {
			_ = insertTurn.Close()
		}
		if updateResult != nil {
			_ = updateResult.Close()
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

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqTurn:
			t := r.turn
			if insertTurn == nil {
				continue
			}
			if _, err := tx.Stmt(insertTurn).Exec(t.MatchID, int64(t.Turn), t.Digest, t.Moved, t.Sent, t.PaintA, t.PaintB); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqResult:
			res := r.result
			if updateResult == nil {
				continue
			}
			if _, err := tx.Stmt(updateResult).Exec(int64(res.Turns), res.Paint[0], res.Paint[1], res.Winner, res.MatchID); err != nil {
				rollback()
				continue
			}
			// Results commit immediately.
			commit()
			continue
		}
		// An idle open tx would hold the only connection away from queries.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	commit()
}
