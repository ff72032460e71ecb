package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/promptsync/internal/workbook"
)

// Binding is a TableSchema resolved against the live columns of one table.
type Binding struct {
	Schema TableSchema
	Table  string

	columns   []workbook.Column
	positions map[Field]int
}

// Record is one row projected through a Binding.
type Record struct {
	RowID  string
	values map[Field]string
}

// Get returns the value of f, or "" when the column or cell is absent.
func (r Record) Get(f Field) string {
	return r.values[f]
}

// Bind checks schema against live and returns the resolved binding.
//
// Positional columns must exist. If a positional column's live name differs
// from the expected one, Bind fails with a *ConfigurationError when strict is
// set and otherwise reports it in warnings. Columns at AnyPosition are found
// by name; a missing required one is always an error, a missing optional one
// projects as "".
func Bind(schema TableSchema, table string, live []workbook.Column, strict bool) (*Binding, []string, error) {
	b := &Binding{
		Schema:    schema,
		Table:     table,
		columns:   live,
		positions: make(map[Field]int, len(schema.Columns)),
	}

	var warnings []string
	for _, spec := range schema.Columns {
		if spec.Position == AnyPosition {
			pos := findColumn(live, spec)
			if pos < 0 && !spec.Optional {
				return nil, nil, &ConfigurationError{
					Table:  table,
					Detail: fmt.Sprintf("required column %q not found", spec.Name),
				}
			}
			b.positions[spec.Field] = pos
			continue
		}

		if spec.Position >= len(live) {
			return nil, nil, &ConfigurationError{
				Table:  table,
				Detail: fmt.Sprintf("column %q expected at position %d but table has %d columns", spec.Name, spec.Position, len(live)),
			}
		}

		got := live[spec.Position].Name
		if !spec.matches(got) {
			detail := fmt.Sprintf("column %d is %q, expected %q", spec.Position, got, spec.Name)
			if strict {
				return nil, nil, &ConfigurationError{Table: table, Detail: detail}
			}
			warnings = append(warnings, fmt.Sprintf("table %q: %s", table, detail))
		}
		b.positions[spec.Field] = spec.Position
	}

	return b, warnings, nil
}

func findColumn(cols []workbook.Column, spec ColumnSpec) int {
	for i, c := range cols {
		if spec.matches(c.Name) {
			return i
		}
	}
	return -1
}

// matches reports whether a live column name is the expected name or one of
// its aliases.
func (c ColumnSpec) matches(name string) bool {
	if sameName(name, c.Name) {
		return true
	}
	for _, alias := range c.Aliases {
		if sameName(name, alias) {
			return true
		}
	}
	return false
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Position returns the column index of f, or -1.
func (b *Binding) Position(f Field) int {
	pos, ok := b.positions[f]
	if !ok {
		return -1
	}
	return pos
}

// ColumnName returns the live name of the column bound to f. Filters use the
// live name so non-strict bindings query the column actually present.
func (b *Binding) ColumnName(f Field) string {
	if pos := b.Position(f); pos >= 0 {
		return b.columns[pos].Name
	}
	return ""
}

// Project extracts the bound fields of row. Short rows yield "" for the
// missing cells.
func (b *Binding) Project(row workbook.Row) Record {
	rec := Record{RowID: row.ID, values: make(map[Field]string, len(b.positions))}
	for f, pos := range b.positions {
		rec.values[f] = row.Value(pos)
	}
	return rec
}
