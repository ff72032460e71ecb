package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Field names the meaning of a column independent of its position.
type Field string

const (
	FieldMessageID         Field = "message_id"
	FieldGroupRef          Field = "group_ref"
	FieldType              Field = "type"
	FieldCustomerForMonths Field = "customer_for_months"
	FieldValidStart        Field = "valid_start"
	FieldValidEnd          Field = "valid_end"
	FieldEnabled           Field = "enabled"
	FieldMessageRef        Field = "message_ref"
	FieldText              Field = "text"
	FieldLocale            Field = "locale"
	FieldGroupName         Field = "group_name"
	FieldStatus            Field = "status"
	FieldMarker            Field = "marker"
)

// AnyPosition marks a column located by name instead of by position.
const AnyPosition = -1

// ColumnSpec describes one expected column of a workbook table.
type ColumnSpec struct {
	Position int      // 0-indexed position, or AnyPosition
	Name     string   // expected live column name
	Aliases  []string // other accepted live names
	Field    Field
	Optional bool // only honored for AnyPosition columns
}

// TableSchema is the column contract of one workbook table.
type TableSchema struct {
	Key     string // registry key: "messages"
	Label   string // display name: "Messages"
	Columns []ColumnSpec
}

// WithColumnName returns a copy of the schema whose column for f expects
// name instead.
func (s TableSchema) WithColumnName(f Field, name string) TableSchema {
	cols := make([]ColumnSpec, len(s.Columns))
	copy(cols, s.Columns)
	for i := range cols {
		if cols[i].Field == f {
			cols[i].Name = name
			cols[i].Aliases = nil
		}
	}
	s.Columns = cols
	return s
}

// Registry keys of the built-in schemas.
const (
	SchemaGroups       = "groups"
	SchemaMessages     = "messages"
	SchemaTranslations = "translations"
	SchemaFAQ          = "faq"
)

// TableNames are the live names of the workbook tables.
type TableNames struct {
	MessageGroups       string
	Messages            string
	MessageTranslations string
	FAQ                 string
}

// Path selects an export path.
type Path string

const (
	PathKV   Path = "kv"
	PathBulk Path = "bulk"
)

// ParsePath validates a path name.
func ParsePath(s string) (Path, error) {
	switch Path(s) {
	case PathKV, PathBulk:
		return Path(s), nil
	}
	return "", ErrUnknownPath
}

// RunStatus is the outcome of an export run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	RunSkipped   RunStatus = "skipped"
)

// RunResult describes one finished export run.
type RunResult struct {
	RunID      string    `json:"run_id"`
	Path       Path      `json:"path"`
	Trigger    string    `json:"trigger"`
	Status     RunStatus `json:"status"`
	Rows       int       `json:"rows"`
	Message    string    `json:"message"`
	Warnings   []string  `json:"warnings,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall-clock time of the run.
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
