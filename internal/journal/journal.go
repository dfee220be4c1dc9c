// Package journal persists bridge traffic to SQLite.
//
// Every dispatched action, delivered notification, and derived analytics
// message becomes one journal entry, ordered by the journal's own append
// sequence. The journal observes the bridge through its dispatch and
// notification hooks; it is never on the dispatch critical path's contract,
// so a full journal and an empty one give byte-identical bridge behavior.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added composite index on (kind, name)
const currentSchemaVersion = 1

// Entry kinds.
const (
	KindAction       = "action"
	KindNotification = "notification"
	KindAnalytics    = "analytics"
)

// Entry is one journal row.
type Entry struct {
	ID        string          `json:"id"`
	Seq       int64           `json:"seq"`
	Kind      string          `json:"kind"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Field     string          `json:"field,omitempty"`
	EngineSeq int64           `json:"engine_seq,omitempty"`
	CreatedAt string          `json:"created_at"`
}

// Journal provides durable storage for bridge traffic.
// Uses SQLite with WAL mode for concurrent read access.
type Journal struct {
	db  *sql.DB
	seq atomic.Int64
}

// Open creates or opens a journal database at the given path.
// Applies required pragmas and migrations automatically, and resumes the
// append sequence from the highest recorded seq.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// SQLite supports one writer at a time; keep a single connection to
	// avoid SQLITE_BUSY under concurrent hooks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	j := &Journal{db: db}

	var last sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM entries").Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("read last seq: %w", err)
	}
	if last.Valid {
		j.seq.Store(last.Int64)
	}

	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// NewEntryID returns a time-sortable UUIDv7 for a journal entry.
//
// UUIDv7 embeds a timestamp in the most significant bits, so entry ids
// sort roughly by creation time - helpful when eyeballing dumps.
func NewEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// RecordAction journals a dispatched action. The args payload is stored
// verbatim; an empty payload is stored as JSON null.
func (j *Journal) RecordAction(ctx context.Context, name string, field string, args json.RawMessage) error {
	return j.insert(ctx, Entry{
		ID:      NewEntryID(),
		Kind:    KindAction,
		Name:    name,
		Field:   field,
		Payload: args,
	})
}

// RecordNotification journals a delivered notification along with its
// adapter emission stamp.
func (j *Journal) RecordNotification(ctx context.Context, event string, engineSeq int64, payload json.RawMessage) error {
	return j.insert(ctx, Entry{
		ID:        NewEntryID(),
		Kind:      KindNotification,
		Name:      event,
		EngineSeq: engineSeq,
		Payload:   payload,
	})
}

// RecordAnalytics journals a derived analytics message.
func (j *Journal) RecordAnalytics(ctx context.Context, name string, payload json.RawMessage) error {
	return j.insert(ctx, Entry{
		ID:      NewEntryID(),
		Kind:    KindAnalytics,
		Name:    name,
		Payload: payload,
	})
}

// insert appends one entry with the next journal seq.
func (j *Journal) insert(ctx context.Context, e Entry) error {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	seq := j.seq.Add(1)

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO entries (id, seq, kind, name, payload, field, engine_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, seq, e.Kind, e.Name, string(payload), e.Field, e.EngineSeq)
	if err != nil {
		return fmt.Errorf("insert %s entry %s: %w", e.Kind, e.Name, err)
	}
	return nil
}

// Entries returns every journal row in append order.
func (j *Journal) Entries(ctx context.Context) ([]Entry, error) {
	return j.query(ctx, `
		SELECT id, seq, kind, name, payload, field, engine_seq, created_at
		FROM entries ORDER BY seq, id
	`)
}

// EntriesByKind returns journal rows of one kind in append order.
func (j *Journal) EntriesByKind(ctx context.Context, kind string) ([]Entry, error) {
	return j.query(ctx, `
		SELECT id, seq, kind, name, payload, field, engine_seq, created_at
		FROM entries WHERE kind = ? ORDER BY seq, id
	`, kind)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.ID, &e.Seq, &e.Kind, &e.Name, &payload, &e.Field, &e.EngineSeq, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest journal sequence recorded so far.
func (j *Journal) LastSeq() int64 {
	return j.seq.Load()
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// Idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return runMigrations(db)
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the (kind, name) index for filtered dumps. New databases
// are covered by CREATE INDEX IF NOT EXISTS; existing pre-v1 databases get
// it here.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_entries_kind_name
		ON entries(kind, name)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}
