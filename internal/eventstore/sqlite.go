package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nexuscore/agentcore/pkg/models"
)

// SQLiteStore is the durable event store backend. Grounded on the
// teacher's internal/jobs/cockroach.go store-over-database/sql shape,
// swapped to modernc.org/sqlite (the teacher's CGO-free driver) with
// WAL mode for crash-safe, fsync-per-append durability without a
// separate write-ahead log of our own.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) a WAL-mode sqlite database
// and ensures the schema exists.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("eventstore: open %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1) // single-writer WAL discipline, matches the teacher's sqlite backends
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA synchronous=FULL`,
		`CREATE TABLE IF NOT EXISTS events (
			execution_id TEXT NOT NULL,
			seq          INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			timestamp    TEXT NOT NULL,
			version      INTEGER NOT NULL,
			payload      BLOB NOT NULL,
			PRIMARY KEY (execution_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			execution_id TEXT PRIMARY KEY,
			channel      TEXT NOT NULL,
			workspace    TEXT NOT NULL,
			user         TEXT NOT NULL,
			thread       TEXT NOT NULL,
			started_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_key ON sessions(channel, workspace, user, thread)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("eventstore: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, executionID string, kind models.EventKind, payload []byte) (models.Event, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Event{}, fmt.Errorf("eventstore: begin: %w", err)
	}
	defer tx.Rollback()

	var maxSeq sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM events WHERE execution_id = ?`, executionID).Scan(&maxSeq); err != nil {
		return models.Event{}, fmt.Errorf("eventstore: seq lookup: %w", err)
	}
	nextSeq := int64(0)
	if maxSeq.Valid {
		nextSeq = maxSeq.Int64 + 1
	}
	evt := models.Event{
		ExecutionID: executionID,
		Seq:         nextSeq,
		Kind:        kind,
		Timestamp:   time.Now().UTC(),
		Version:     models.CurrentEventSchemaVersion,
		Payload:     payload,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (execution_id, seq, kind, timestamp, version, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		evt.ExecutionID, evt.Seq, string(evt.Kind), evt.Timestamp.Format(time.RFC3339Nano), evt.Version, evt.Payload)
	if err != nil {
		return models.Event{}, fmt.Errorf("eventstore: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Event{}, fmt.Errorf("eventstore: commit: %w", err)
	}
	return evt, nil
}

func (s *SQLiteStore) scanEvents(rows *sql.Rows) ([]models.Event, error) {
	defer rows.Close()
	var out []models.Event
	for rows.Next() {
		var evt models.Event
		var kind, ts string
		var payload []byte
		if err := rows.Scan(&evt.ExecutionID, &evt.Seq, &kind, &ts, &evt.Version, &payload); err != nil {
			return nil, fmt.Errorf("eventstore: scan: %w", err)
		}
		evt.Kind = models.EventKind(kind)
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("eventstore: parse timestamp: %w", err)
		}
		evt.Timestamp = parsed
		evt.Payload = payload
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListByExecution(ctx context.Context, executionID string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT execution_id, seq, kind, timestamp, version, payload FROM events WHERE execution_id = ? ORDER BY seq`,
		executionID)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list by execution: %w", err)
	}
	return s.scanEvents(rows)
}

func (s *SQLiteStore) ListBySession(ctx context.Context, session models.SessionKey) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.execution_id, e.seq, e.kind, e.timestamp, e.version, e.payload
		FROM events e
		JOIN sessions s ON s.execution_id = e.execution_id
		WHERE s.channel = ? AND s.workspace = ? AND s.user = ? AND s.thread = ?
		ORDER BY s.started_at, e.seq`,
		session.Channel, session.Workspace, session.User, session.Thread)
	if err != nil {
		return nil, fmt.Errorf("eventstore: list by session: %w", err)
	}
	return s.scanEvents(rows)
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT execution_id, seq, kind, timestamp, version, payload FROM events ORDER BY timestamp DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("eventstore: recent: %w", err)
	}
	out, err := s.scanEvents(rows)
	if err != nil {
		return nil, err
	}
	// reverse to oldest-first, matching MemoryStore.Recent's contract
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) RegisterSession(ctx context.Context, executionID string, session models.SessionKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (execution_id, channel, workspace, user, thread, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		executionID, session.Channel, session.Workspace, session.User, session.Thread, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("eventstore: register session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) OpenExecutions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.execution_id FROM events e
		INNER JOIN (SELECT execution_id, MAX(seq) AS max_seq FROM events GROUP BY execution_id) m
			ON m.execution_id = e.execution_id AND m.max_seq = e.seq
		WHERE e.kind NOT IN (?, ?, ?)`,
		string(models.EventFinalResponse), string(models.EventError), string(models.EventCrashInferred))
	if err != nil {
		return nil, fmt.Errorf("eventstore: open executions: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SessionForExecution(ctx context.Context, executionID string) (models.SessionKey, error) {
	var key models.SessionKey
	err := s.db.QueryRowContext(ctx,
		`SELECT channel, workspace, user, thread FROM sessions WHERE execution_id = ?`, executionID).
		Scan(&key.Channel, &key.Workspace, &key.User, &key.Thread)
	if err != nil {
		return models.SessionKey{}, fmt.Errorf("eventstore: session for execution %q: %w", executionID, err)
	}
	return key, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
