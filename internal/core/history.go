package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
)

// HistoryStore records finished runs.
type HistoryStore interface {
	Record(ctx context.Context, res RunResult) error
	Recent(ctx context.Context, limit int) ([]RunResult, error)
}

const exportRunsDDL = `
CREATE TABLE IF NOT EXISTS export_runs (
    run_id      TEXT PRIMARY KEY,
    path        TEXT NOT NULL,
    trigger     TEXT NOT NULL,
    status      TEXT NOT NULL,
    rows        INTEGER NOT NULL DEFAULT 0,
    message     TEXT NOT NULL DEFAULT '',
    warnings    TEXT[] NOT NULL DEFAULT '{}',
    error       TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS export_runs_started_at_idx ON export_runs (started_at DESC)`

const insertExportRun = `
INSERT INTO export_runs (run_id, path, trigger, status, rows, message, warnings, error, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const selectRecentRuns = `
SELECT run_id, path, trigger, status, rows, message, warnings, error, started_at, finished_at
FROM export_runs
ORDER BY started_at DESC
LIMIT $1`

// PostgresHistory keeps run history in the export_runs table.
type PostgresHistory struct {
	db DBTX
}

// NewPostgresHistory returns a history store over db.
func NewPostgresHistory(db DBTX) *PostgresHistory {
	return &PostgresHistory{db: db}
}

// EnsureSchema creates export_runs when missing.
func (h *PostgresHistory) EnsureSchema(ctx context.Context) error {
	if _, err := h.db.Exec(ctx, exportRunsDDL); err != nil {
		return fmt.Errorf("create export_runs: %w", err)
	}
	return nil
}

func (h *PostgresHistory) Record(ctx context.Context, res RunResult) error {
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	_, err := h.db.Exec(ctx, insertExportRun,
		res.RunID, string(res.Path), res.Trigger, string(res.Status), res.Rows,
		res.Message, warnings, res.Error, res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export run %s: %w", res.RunID, err)
	}
	return nil
}

func (h *PostgresHistory) Recent(ctx context.Context, limit int) ([]RunResult, error) {
	rows, err := h.db.Query(ctx, selectRecentRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("select export runs: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunResult, error) {
		var r RunResult
		var path, status string
		err := row.Scan(&r.RunID, &path, &r.Trigger, &status, &r.Rows,
			&r.Message, &r.Warnings, &r.Error, &r.StartedAt, &r.FinishedAt)
		r.Path = Path(path)
		r.Status = RunStatus(status)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan export runs: %w", err)
	}
	return out, nil
}

// DefaultHistorySize is the capacity of a MemoryHistory created with size 0.
const DefaultHistorySize = 100

// MemoryHistory keeps the most recent runs in a ring buffer.
type MemoryHistory struct {
	mu   sync.Mutex
	runs []RunResult
	next int
	full bool
}

// NewMemoryHistory returns a history holding at most size runs.
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryHistory{runs: make([]RunResult, size)}
}

func (h *MemoryHistory) Record(ctx context.Context, res RunResult) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.runs[h.next] = res
	h.next = (h.next + 1) % len(h.runs)
	if h.next == 0 {
		h.full = true
	}
	return nil
}

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (h *MemoryHistory) Recent(ctx context.Context, limit int) ([]RunResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.runs)
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]RunResult, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.runs)) % len(h.runs)
		out = append(out, h.runs[idx])
	}
	return out, nil
}
