package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/promptsync/internal/model"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const promptGroupsDDL = `
CREATE TABLE IF NOT EXISTS prompt_groups (
    group_name TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertPromptGroup = `
INSERT INTO prompt_groups (group_name, document, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (group_name) DO UPDATE
SET document = EXCLUDED.document, updated_at = now()`

const selectPromptGroup = `SELECT document FROM prompt_groups WHERE group_name = $1`

// PostgresKV stores each record as a JSONB document in prompt_groups.
type PostgresKV struct {
	db DBTX
}

// NewPostgresKV returns a KV over db.
func NewPostgresKV(db DBTX) *PostgresKV {
	return &PostgresKV{db: db}
}

// EnsureSchema creates the prompt_groups table when missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, promptGroupsDDL); err != nil {
		return fmt.Errorf("create prompt_groups: %w", err)
	}
	return nil
}

func (p *PostgresKV) Put(ctx context.Context, rec model.ExportRecord) error {
	if rec.GroupName == "" {
		return ErrEmptyKey
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", rec.GroupName, err)
	}
	if _, err := p.db.Exec(ctx, upsertPromptGroup, rec.GroupName, doc); err != nil {
		return fmt.Errorf("upsert %q: %w", rec.GroupName, err)
	}
	return nil
}

func (p *PostgresKV) Get(ctx context.Context, group string) (model.ExportRecord, bool, error) {
	var rec model.ExportRecord

	var doc []byte
	err := p.db.QueryRow(ctx, selectPromptGroup, group).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, fmt.Errorf("select %q: %w", group, err)
	}

	if err := json.Unmarshal(doc, &rec); err != nil {
		return rec, false, fmt.Errorf("decode %q: %w", group, err)
	}
	return rec, true, nil
}
