package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMemoryHistory_Recent(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		record int
		limit  int
		want   []string
	}{
		{"empty", 3, 0, 0, []string{}},
		{"newest first", 3, 2, 0, []string{"r2", "r1"}},
		{"limit", 3, 3, 2, []string{"r3", "r2"}},
		{"wraps and drops oldest", 3, 5, 0, []string{"r5", "r4", "r3"}},
		{"limit above size", 3, 5, 10, []string{"r5", "r4", "r3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewMemoryHistory(tt.size)
			ctx := context.Background()
			for i := 1; i <= tt.record; i++ {
				h.Record(ctx, RunResult{RunID: "r" + string(rune('0'+i))})
			}

			runs, err := h.Recent(ctx, tt.limit)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			got := make([]string, len(runs))
			for i, r := range runs {
				got[i] = r.RunID
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Recent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewMemoryHistory_DefaultSize(t *testing.T) {
	h := NewMemoryHistory(0)
	if len(h.runs) != DefaultHistorySize {
		t.Errorf("size = %d, want %d", len(h.runs), DefaultHistorySize)
	}
}

// fakeDB records Exec calls and fails Query.
type fakeDB struct {
	sql      []string
	args     [][]any
	execErr  error
	queryErr error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	f.args = append(f.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, f.queryErr
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestPostgresHistory_Record(t *testing.T) {
	db := &fakeDB{}
	h := NewPostgresHistory(db)
	started := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	err := h.Record(context.Background(), RunResult{
		RunID:      "run-1",
		Path:       PathBulk,
		Trigger:    TriggerAPI,
		Status:     RunSucceeded,
		Rows:       3,
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(db.args) != 1 {
		t.Fatalf("Exec calls = %d, want 1", len(db.args))
	}

	args := db.args[0]
	if args[0] != "run-1" || args[1] != "bulk" || args[3] != "succeeded" || args[4] != 3 {
		t.Errorf("args = %v", args)
	}
	if w, ok := args[6].([]string); !ok || w == nil {
		t.Errorf("warnings arg = %#v, want empty non-nil slice", args[6])
	}
}

func TestPostgresHistory_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	db := &fakeDB{execErr: boom, queryErr: boom}
	h := NewPostgresHistory(db)
	ctx := context.Background()

	if err := h.EnsureSchema(ctx); !errors.Is(err, boom) {
		t.Errorf("EnsureSchema() error = %v, want wrapped boom", err)
	}
	if err := h.Record(ctx, RunResult{RunID: "r"}); !errors.Is(err, boom) {
		t.Errorf("Record() error = %v, want wrapped boom", err)
	}
	if _, err := h.Recent(ctx, 10); !errors.Is(err, boom) {
		t.Errorf("Recent() error = %v, want wrapped boom", err)
	}
}

func TestPostgresHistory_EnsureSchema(t *testing.T) {
	db := &fakeDB{}
	if err := NewPostgresHistory(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if len(db.sql) != 1 || !strings.Contains(db.sql[0], "CREATE TABLE IF NOT EXISTS export_runs") {
		t.Errorf("sql = %v", db.sql)
	}
}
