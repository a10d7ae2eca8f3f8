// Package indexdb maintains an asynchronous sqlite read model of the world:
// the audit trail plus a current-parcels table. It is queryable out of band
// (dashboards, ops tooling) and is never read back by the world itself, so
// world-state persistence stays out of scope.
package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"voxelverse.gg/internal/protocol"
	"voxelverse.gg/internal/sim/world"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan world.AuditEntry
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func Open(path string) (*SQLiteIndex, error) {
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
		// Generous buffer: bursts of build audit rows must not stall the
		// world loop.
		ch: make(chan world.AuditEntry, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability for
	// a secondary index.
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
		`CREATE TABLE IF NOT EXISTS audit (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			unix_ms INTEGER NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			pos TEXT,
			parcel_id INTEGER,
			detail TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_action ON audit(action);`,
		`CREATE TABLE IF NOT EXISTS parcels (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			owner TEXT,
			price REAL NOT NULL,
			for_sale INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// WriteAudit implements world.AuditLogger. Non-blocking: rows are dropped
// when the index falls too far behind.
func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	if s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- entry:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

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

func (s *SQLiteIndex) loop() {
	for entry := range s.ch {
		if err := s.insertAudit(entry); err != nil {
			continue
		}
		if entry.Parcel != nil {
			_ = s.upsertParcel(*entry.Parcel)
		}
	}
}

func (s *SQLiteIndex) insertAudit(e world.AuditEntry) error {
	var pos any
	if e.Pos != nil {
		pos = fmt.Sprintf("%d,%d,%d", e.Pos[0], e.Pos[1], e.Pos[2])
	}
	_, err := s.db.Exec(
		`INSERT INTO audit (unix_ms, actor, action, pos, parcel_id, detail) VALUES (?, ?, ?, ?, ?, ?);`,
		e.UnixMs, e.Actor, e.Action, pos, e.ParcelID, e.Detail,
	)
	return err
}

func (s *SQLiteIndex) upsertParcel(p protocol.Parcel) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO parcels (id, name, owner, price, for_sale, json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, owner=excluded.owner, price=excluded.price,
			for_sale=excluded.for_sale, json=excluded.json, updated_at=excluded.updated_at;`,
		p.ID, p.Name, p.Owner, p.Price, boolInt(p.ForSale), string(raw), p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	)
	return err
}

// AuditCount reports rows for one action kind (ops/test helper).
func (s *SQLiteIndex) AuditCount(action string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM audit WHERE action = ?;`, action).Scan(&n)
	return n, err
}

// ParcelOwner reads the indexed owner for a parcel (ops/test helper).
func (s *SQLiteIndex) ParcelOwner(id int64) (string, error) {
	var owner sql.NullString
	err := s.db.QueryRow(`SELECT owner FROM parcels WHERE id = ?;`, id).Scan(&owner)
	if err != nil {
		return "", err
	}
	return owner.String, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
