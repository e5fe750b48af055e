// Package sqlitevec is the default memory-graph backend: turns and
// entities persisted in SQLite, nearest-neighbor search done by brute-force
// cosine scan over a session's turns. Grounded on the teacher's
// internal/memory/backend/sqlitevec.Backend, generalized from its generic
// MemoryEntry shape to this spec's MemoryTurn/MemoryEntity model.
//
// A real vec0-extension build would push the nearest-neighbor scan into
// SQLite itself; this pure-Go driver (modernc.org/sqlite, CGO-free, no
// loadable extensions) can't load vec0, so the scan happens in Go instead —
// the same tradeoff the teacher's own comment documents.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nexuscore/agentcore/internal/memory/backend"
	"github.com/nexuscore/agentcore/pkg/models"
)

// Backend implements backend.Backend over a modernc.org/sqlite database.
type Backend struct {
	db *sql.DB
}

// Open creates (if needed) and opens the memory database at dsn.
func Open(dsn string) (*Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: open %s: %w", dsn, err)
	}
	b := &Backend{db: db}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			entity_ids TEXT,
			embedding BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_key)`,
		`CREATE TABLE IF NOT EXISTS entities (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			canonical_name TEXT NOT NULL,
			type TEXT,
			turn_ids TEXT,
			adjacency TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entities_session_name ON entities(session_key, canonical_name)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlitevec: migrate: %w", err)
		}
	}
	return nil
}

func (b *Backend) UpsertTurn(ctx context.Context, turn models.MemoryTurn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	entityIDs, err := json.Marshal(turn.EntityIDs)
	if err != nil {
		return fmt.Errorf("sqlitevec: marshal entity ids: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO turns (id, session_key, role, content, timestamp, entity_ids, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET session_key=excluded.session_key, role=excluded.role,
			content=excluded.content, timestamp=excluded.timestamp, entity_ids=excluded.entity_ids,
			embedding=excluded.embedding`,
		turn.ID, turn.SessionKey, turn.Role, turn.Content, turn.Timestamp.Format(time.RFC3339Nano),
		string(entityIDs), encodeVector(turn.Embedding))
	if err != nil {
		return fmt.Errorf("sqlitevec: upsert turn: %w", err)
	}
	return nil
}

func (b *Backend) TurnsBySession(ctx context.Context, sessionKey string) ([]models.MemoryTurn, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, session_key, role, content, timestamp, entity_ids, embedding
		FROM turns WHERE session_key = ? ORDER BY timestamp ASC`, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: turns by session: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryTurn
	for rows.Next() {
		turn, err := scanTurn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, turn)
	}
	return out, rows.Err()
}

func (b *Backend) SearchTurns(ctx context.Context, sessionKey string, queryEmbedding []float32, limit int) ([]models.RetrievedTurn, error) {
	turns, err := b.TurnsBySession(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	out := make([]models.RetrievedTurn, 0, len(turns))
	for _, turn := range turns {
		out = append(out, models.RetrievedTurn{Turn: turn, Score: backend.CosineSimilarity(queryEmbedding, turn.Embedding)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *Backend) UpsertEntity(ctx context.Context, entity models.MemoryEntity) error {
	turnIDs, err := json.Marshal(entity.TurnIDs)
	if err != nil {
		return fmt.Errorf("sqlitevec: marshal turn ids: %w", err)
	}
	adjacency, err := json.Marshal(entity.Adjacency)
	if err != nil {
		return fmt.Errorf("sqlitevec: marshal adjacency: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO entities (id, session_key, canonical_name, type, turn_ids, adjacency)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET session_key=excluded.session_key, canonical_name=excluded.canonical_name,
			type=excluded.type, turn_ids=excluded.turn_ids, adjacency=excluded.adjacency`,
		entity.ID, entity.SessionKey, entity.CanonicalName, entity.Type, string(turnIDs), string(adjacency))
	if err != nil {
		return fmt.Errorf("sqlitevec: upsert entity: %w", err)
	}
	return nil
}

func (b *Backend) EntityByName(ctx context.Context, sessionKey, canonicalName string) (models.MemoryEntity, bool, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, session_key, canonical_name, type, turn_ids, adjacency
		FROM entities WHERE session_key = ? AND canonical_name = ?`, sessionKey, canonicalName)
	entity, err := scanEntityRow(row)
	if err == sql.ErrNoRows {
		return models.MemoryEntity{}, false, nil
	}
	if err != nil {
		return models.MemoryEntity{}, false, fmt.Errorf("sqlitevec: entity by name: %w", err)
	}
	return entity, true, nil
}

func (b *Backend) EntitiesByIDs(ctx context.Context, ids []string) ([]models.MemoryEntity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]any, len(ids))
	query := `SELECT id, session_key, canonical_name, type, turn_ids, adjacency FROM entities WHERE id IN (`
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "?"
		placeholders[i] = id
	}
	query += ")"

	rows, err := b.db.QueryContext(ctx, query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("sqlitevec: entities by ids: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryEntity
	for rows.Next() {
		entity, err := scanEntityRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, rows.Err()
}

func (b *Backend) Close() error { return b.db.Close() }

func scanTurn(rows *sql.Rows) (models.MemoryTurn, error) {
	var turn models.MemoryTurn
	var ts, entityIDsJSON string
	var embeddingBlob []byte
	if err := rows.Scan(&turn.ID, &turn.SessionKey, &turn.Role, &turn.Content, &ts, &entityIDsJSON, &embeddingBlob); err != nil {
		return models.MemoryTurn{}, fmt.Errorf("sqlitevec: scan turn: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		turn.Timestamp = t
	}
	json.Unmarshal([]byte(entityIDsJSON), &turn.EntityIDs)
	turn.Embedding = decodeVector(embeddingBlob)
	return turn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntityRow(row *sql.Row) (models.MemoryEntity, error) {
	return scanEntity(row)
}

func scanEntityRows(rows *sql.Rows) (models.MemoryEntity, error) {
	return scanEntity(rows)
}

func scanEntity(s rowScanner) (models.MemoryEntity, error) {
	var entity models.MemoryEntity
	var turnIDsJSON, adjacencyJSON string
	if err := s.Scan(&entity.ID, &entity.SessionKey, &entity.CanonicalName, &entity.Type, &turnIDsJSON, &adjacencyJSON); err != nil {
		return models.MemoryEntity{}, err
	}
	json.Unmarshal([]byte(turnIDsJSON), &entity.TurnIDs)
	json.Unmarshal([]byte(adjacencyJSON), &entity.Adjacency)
	return entity, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 {
		return nil
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		bits := uint32(buf[i*4]) | uint32(buf[i*4+1])<<8 | uint32(buf[i*4+2])<<16 | uint32(buf[i*4+3])<<24
		v[i] = math.Float32frombits(bits)
	}
	return v
}
