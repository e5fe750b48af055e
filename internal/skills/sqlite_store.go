package skills

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/google/uuid"

	"github.com/nexuscore/agentcore/pkg/models"
)

// SQLiteStore is the durable skill store backend. Grounded on the
// teacher's go.mod carrying both modernc.org/sqlite (used by
// internal/eventstore) and github.com/mattn/go-sqlite3 — this package
// deliberately exercises the latter so both teacher sqlite drivers get a
// home, per SPEC_FULL.md §3.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the skill database.
func OpenSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("skills: open %s: %w", dsn, err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS skills (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL,
			description        TEXT NOT NULL,
			category           TEXT NOT NULL,
			origin             TEXT NOT NULL,
			status             TEXT NOT NULL,
			triggers_json      TEXT NOT NULL,
			steps_json         TEXT NOT NULL,
			input_schema       TEXT,
			usage_count        INTEGER NOT NULL DEFAULT 0,
			success_rate       REAL NOT NULL DEFAULT 0,
			mean_duration_ms   INTEGER NOT NULL DEFAULT 0,
			last_used_at       TEXT,
			source_pattern_id  TEXT,
			created_at         TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("skills: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, skill models.Skill) (models.Skill, error) {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	if skill.CreatedAt.IsZero() {
		skill.CreatedAt = time.Now().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Skill{}, err
	}
	defer tx.Rollback()

	if err := execInsert(ctx, tx, skill); err != nil {
		return models.Skill{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Skill{}, err
	}
	return skill, nil
}

func execInsert(ctx context.Context, tx *sql.Tx, skill models.Skill) error {
	triggers, err := json.Marshal(skill.Triggers)
	if err != nil {
		return fmt.Errorf("skills: marshal triggers: %w", err)
	}
	steps, err := json.Marshal(skill.Steps)
	if err != nil {
		return fmt.Errorf("skills: marshal steps: %w", err)
	}
	var lastUsed sql.NullString
	if !skill.Stats.LastUsedAt.IsZero() {
		lastUsed = sql.NullString{String: skill.Stats.LastUsedAt.Format(time.RFC3339Nano), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO skills (id, name, description, category, origin, status, triggers_json, steps_json,
			input_schema, usage_count, success_rate, mean_duration_ms, last_used_at, source_pattern_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		skill.ID, skill.Name, skill.Description, string(skill.Category), string(skill.Origin), string(skill.Status),
		string(triggers), string(steps), skill.InputSchema, skill.Stats.UsageCount, skill.Stats.SuccessRate,
		skill.Stats.MeanDurationMS, lastUsed, skill.SourcePatternID, skill.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("skills: insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (models.Skill, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id, name, description, category, origin, status, triggers_json, steps_json,
		input_schema, usage_count, success_rate, mean_duration_ms, last_used_at, source_pattern_id, created_at
		FROM skills WHERE id = ?`, id)
	skill, err := scanSkill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Skill{}, ErrNotFound
	}
	if err != nil {
		return models.Skill{}, fmt.Errorf("skills: get %s: %w", id, err)
	}
	return skill, nil
}

func scanSkill(row *sql.Row) (models.Skill, error) {
	var skill models.Skill
	var category, origin, status, triggersJSON, stepsJSON, createdAt string
	var inputSchema, lastUsed, sourcePatternID sql.NullString

	err := row.Scan(&skill.ID, &skill.Name, &skill.Description, &category, &origin, &status,
		&triggersJSON, &stepsJSON, &inputSchema, &skill.Stats.UsageCount, &skill.Stats.SuccessRate,
		&skill.Stats.MeanDurationMS, &lastUsed, &sourcePatternID, &createdAt)
	if err != nil {
		return models.Skill{}, err
	}
	skill.Category = models.SkillCategory(category)
	skill.Origin = models.SkillOrigin(origin)
	skill.Status = models.SkillStatus(status)
	skill.InputSchema = inputSchema.String
	skill.SourcePatternID = sourcePatternID.String
	if err := json.Unmarshal([]byte(triggersJSON), &skill.Triggers); err != nil {
		return models.Skill{}, fmt.Errorf("unmarshal triggers: %w", err)
	}
	if err := json.Unmarshal([]byte(stepsJSON), &skill.Steps); err != nil {
		return models.Skill{}, fmt.Errorf("unmarshal steps: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		skill.CreatedAt = t
	}
	if lastUsed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastUsed.String); err == nil {
			skill.Stats.LastUsedAt = t
		}
	}
	return skill, nil
}

func (s *SQLiteStore) Update(ctx context.Context, skill models.Skill) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, skill.ID)
	if err != nil {
		return fmt.Errorf("skills: update delete: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	if err := execInsert(ctx, tx, skill); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("skills: delete: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]models.Skill, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		id, name, description, category, origin, status, triggers_json, steps_json,
		input_schema, usage_count, success_rate, mean_duration_ms, last_used_at, source_pattern_id, created_at
		FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("skills: list: %w", err)
	}
	defer rows.Close()

	var out []models.Skill
	for rows.Next() {
		skill, err := scanSkillRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, skill)
	}
	return out, rows.Err()
}

func scanSkillRows(rows *sql.Rows) (models.Skill, error) {
	var skill models.Skill
	var category, origin, status, triggersJSON, stepsJSON, createdAt string
	var inputSchema, lastUsed, sourcePatternID sql.NullString

	err := rows.Scan(&skill.ID, &skill.Name, &skill.Description, &category, &origin, &status,
		&triggersJSON, &stepsJSON, &inputSchema, &skill.Stats.UsageCount, &skill.Stats.SuccessRate,
		&skill.Stats.MeanDurationMS, &lastUsed, &sourcePatternID, &createdAt)
	if err != nil {
		return models.Skill{}, fmt.Errorf("skills: scan: %w", err)
	}
	skill.Category = models.SkillCategory(category)
	skill.Origin = models.SkillOrigin(origin)
	skill.Status = models.SkillStatus(status)
	skill.InputSchema = inputSchema.String
	skill.SourcePatternID = sourcePatternID.String
	json.Unmarshal([]byte(triggersJSON), &skill.Triggers)
	json.Unmarshal([]byte(stepsJSON), &skill.Steps)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		skill.CreatedAt = t
	}
	if lastUsed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, lastUsed.String); err == nil {
			skill.Stats.LastUsedAt = t
		}
	}
	return skill, nil
}

func (s *SQLiteStore) RecordUsage(ctx context.Context, id string, success bool, duration time.Duration) error {
	skill, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	applyUsage(&skill.Stats, success, duration)
	return s.Update(ctx, skill)
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
