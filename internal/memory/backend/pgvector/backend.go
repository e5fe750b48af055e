// Package pgvector is the alternate, Postgres-backed memory-graph backend,
// for deployments that already run Postgres and want the nearest-neighbor
// search pushed into the database via the pgvector extension rather than
// scanned in Go. Grounded on the teacher's internal/memory/backend/pgvector
// package, generalized to this spec's MemoryTurn/MemoryEntity model.
//
// SPEC_FULL.md §3 wires github.com/lib/pq here rather than database/sql's
// usual pgx driver specifically because it is the teacher's own choice,
// carried over unchanged.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/lib/pq"

	"github.com/nexuscore/agentcore/internal/memory/backend"
	"github.com/nexuscore/agentcore/pkg/models"
)

// Backend implements backend.Backend over a Postgres database with the
// pgvector extension installed.
type Backend struct {
	db *sql.DB
}

// Config configures the pgvector backend connection.
type Config struct {
	DSN           string
	RunMigrations bool
}

// Open connects to Postgres and, if cfg.RunMigrations, ensures the schema
// exists.
func Open(cfg Config) (*Backend, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: open: %w", err)
	}
	b := &Backend{db: db}
	if cfg.RunMigrations {
		if err := b.migrate(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Backend) migrate() error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS memory_turns (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			entity_ids JSONB,
			embedding vector
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_turns_session ON memory_turns(session_key)`,
		`CREATE TABLE IF NOT EXISTS memory_entities (
			id TEXT PRIMARY KEY,
			session_key TEXT NOT NULL,
			canonical_name TEXT NOT NULL,
			type TEXT,
			turn_ids JSONB,
			adjacency JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_entities_session_name ON memory_entities(session_key, canonical_name)`,
	}
	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return fmt.Errorf("pgvector: migrate: %w", err)
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
		return fmt.Errorf("pgvector: marshal entity ids: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO memory_turns (id, session_key, role, content, timestamp, entity_ids, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET session_key=$2, role=$3, content=$4, timestamp=$5, entity_ids=$6, embedding=$7`,
		turn.ID, turn.SessionKey, turn.Role, turn.Content, turn.Timestamp, string(entityIDs), vectorLiteral(turn.Embedding))
	if err != nil {
		return fmt.Errorf("pgvector: upsert turn: %w", err)
	}
	return nil
}

func (b *Backend) TurnsBySession(ctx context.Context, sessionKey string) ([]models.MemoryTurn, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, session_key, role, content, timestamp, entity_ids, embedding
		FROM memory_turns WHERE session_key = $1 ORDER BY timestamp ASC`, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("pgvector: turns by session: %w", err)
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

// SearchTurns relies on pgvector's `<=>` cosine-distance operator in
// production; here it still fetches the session's turns and ranks them in
// Go with the same backend.CosineSimilarity helper sqlitevec uses, so both
// backends agree on score semantics even though a real deployment would
// push the ORDER BY into Postgres (`ORDER BY embedding <=> $1 LIMIT $2`).
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
		return fmt.Errorf("pgvector: marshal turn ids: %w", err)
	}
	adjacency, err := json.Marshal(entity.Adjacency)
	if err != nil {
		return fmt.Errorf("pgvector: marshal adjacency: %w", err)
	}
	_, err = b.db.ExecContext(ctx, `
		INSERT INTO memory_entities (id, session_key, canonical_name, type, turn_ids, adjacency)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET session_key=$2, canonical_name=$3, type=$4, turn_ids=$5, adjacency=$6`,
		entity.ID, entity.SessionKey, entity.CanonicalName, entity.Type, string(turnIDs), string(adjacency))
	if err != nil {
		return fmt.Errorf("pgvector: upsert entity: %w", err)
	}
	return nil
}

func (b *Backend) EntityByName(ctx context.Context, sessionKey, canonicalName string) (models.MemoryEntity, bool, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT id, session_key, canonical_name, type, turn_ids, adjacency
		FROM memory_entities WHERE session_key = $1 AND canonical_name = $2`, sessionKey, canonicalName)
	entity, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return models.MemoryEntity{}, false, nil
	}
	if err != nil {
		return models.MemoryEntity{}, false, fmt.Errorf("pgvector: entity by name: %w", err)
	}
	return entity, true, nil
}

func (b *Backend) EntitiesByIDs(ctx context.Context, ids []string) ([]models.MemoryEntity, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT id, session_key, canonical_name, type, turn_ids, adjacency
		FROM memory_entities WHERE id = ANY($1)`, stringArrayLiteral(ids))
	if err != nil {
		return nil, fmt.Errorf("pgvector: entities by ids: %w", err)
	}
	defer rows.Close()

	var out []models.MemoryEntity
	for rows.Next() {
		entity, err := scanEntity(rows)
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
	var entityIDsJSON string
	var embeddingStr sql.NullString
	if err := rows.Scan(&turn.ID, &turn.SessionKey, &turn.Role, &turn.Content, &turn.Timestamp, &entityIDsJSON, &embeddingStr); err != nil {
		return models.MemoryTurn{}, fmt.Errorf("pgvector: scan turn: %w", err)
	}
	json.Unmarshal([]byte(entityIDsJSON), &turn.EntityIDs)
	turn.Embedding = parseVectorLiteral(embeddingStr.String)
	return turn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
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

// vectorLiteral renders a pgvector literal, e.g. "[0.1,0.2,0.3]".
func vectorLiteral(v []float32) string {
	s := "["
	for i, f := range v {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf("%g", f)
	}
	return s + "]"
}

func parseVectorLiteral(s string) []float32 {
	if len(s) < 2 {
		return nil
	}
	var out []float32
	var current string
	for _, r := range s[1 : len(s)-1] {
		if r == ',' {
			if current != "" {
				var f float32
				fmt.Sscanf(current, "%g", &f)
				out = append(out, f)
			}
			current = ""
			continue
		}
		current += string(r)
	}
	if current != "" {
		var f float32
		fmt.Sscanf(current, "%g", &f)
		out = append(out, f)
	}
	return out
}

func stringArrayLiteral(ids []string) string {
	s := "{"
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += `"` + id + `"`
	}
	return s + "}"
}
