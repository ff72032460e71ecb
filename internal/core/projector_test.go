package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/promptsync/internal/workbook"
)

func cols(names ...string) []workbook.Column {
	out := make([]workbook.Column, len(names))
	for i, n := range names {
		out[i] = workbook.Column{ID: "c" + n, Name: n}
	}
	return out
}

var testTranslations = TableSchema{
	Key:   "test_translations",
	Label: "Translations",
	Columns: []ColumnSpec{
		{Position: 1, Name: "Text", Field: FieldText},
		{Position: 2, Name: "Locale", Field: FieldLocale},
		{Position: AnyPosition, Name: "Enabled", Field: FieldEnabled, Optional: true},
	},
}

func TestBind(t *testing.T) {
	tests := []struct {
		name         string
		live         []workbook.Column
		strict       bool
		wantErr      bool
		wantWarnings int
	}{
		{
			name: "exact match",
			live: cols("MessageId", "Text", "Locale"),
		},
		{
			name: "case and space differences are tolerated",
			live: cols("MessageId", " text ", "LOCALE"),
		},
		{
			name:    "renamed column fails strict",
			live:    cols("MessageId", "Body", "Locale"),
			strict:  true,
			wantErr: true,
		},
		{
			name:         "renamed column warns non-strict",
			live:         cols("MessageId", "Body", "Locale"),
			wantWarnings: 1,
		},
		{
			name:    "missing positional column fails either way",
			live:    cols("MessageId", "Text"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, warnings, err := Bind(testTranslations, "Translations", tt.live, tt.strict)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Bind() error = %v, want *ConfigurationError", err)
				}
				if cfgErr.Table != "Translations" {
					t.Errorf("ConfigurationError.Table = %q, want Translations", cfgErr.Table)
				}
				return
			}
			if err != nil {
				t.Fatalf("Bind() error = %v", err)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("warnings = %v, want %d", warnings, tt.wantWarnings)
			}
			if got := b.Position(FieldText); got != 1 {
				t.Errorf("Position(text) = %d, want 1", got)
			}
		})
	}
}

func TestBind_Aliases(t *testing.T) {
	schema := TableSchema{
		Key:   "test_aliases",
		Label: "Messages",
		Columns: []ColumnSpec{
			{Position: 1, Name: "CustomerForMonths", Aliases: []string{"ReferenceId"}, Field: FieldCustomerForMonths},
			{Position: AnyPosition, Name: "Enabled", Aliases: []string{"Active"}, Field: FieldEnabled, Optional: true},
		},
	}

	tests := []struct {
		name    string
		live    []workbook.Column
		wantErr bool
		enabled int
	}{
		{"primary names", cols("MessageId", "CustomerForMonths", "Enabled"), false, 2},
		{"aliases", cols("MessageId", "referenceid", "Notes", "Active"), false, 3},
		{"unknown name", cols("MessageId", "Months"), true, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, warnings, err := Bind(schema, "Messages", tt.live, true)
			if tt.wantErr {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("Bind() error = %v, want *ConfigurationError", err)
				}
				return
			}
			if err != nil || len(warnings) != 0 {
				t.Fatalf("Bind() = %v, %v, want no error or warnings", warnings, err)
			}
			if got := b.Position(FieldEnabled); got != tt.enabled {
				t.Errorf("Position(enabled) = %d, want %d", got, tt.enabled)
			}
		})
	}
}

func TestWithColumnName_DropsAliases(t *testing.T) {
	schema := TableSchema{Columns: []ColumnSpec{
		{Position: 0, Name: "CustomerForMonths", Aliases: []string{"ReferenceId"}, Field: FieldCustomerForMonths},
	}}
	got := schema.WithColumnName(FieldCustomerForMonths, "Months")
	if got.Columns[0].Name != "Months" || got.Columns[0].Aliases != nil {
		t.Errorf("column = %+v, want Months without aliases", got.Columns[0])
	}
	if schema.Columns[0].Aliases == nil {
		t.Error("WithColumnName modified the receiver")
	}
}

func TestBind_NamedColumn(t *testing.T) {
	b, _, err := Bind(testTranslations, "Translations", cols("MessageId", "Text", "Locale", "Notes", "Enabled"), true)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if got := b.Position(FieldEnabled); got != 4 {
		t.Errorf("Position(enabled) = %d, want 4", got)
	}
	if got := b.ColumnName(FieldEnabled); got != "Enabled" {
		t.Errorf("ColumnName(enabled) = %q, want Enabled", got)
	}

	b, _, err = Bind(testTranslations, "Translations", cols("MessageId", "Text", "Locale"), true)
	if err != nil {
		t.Fatalf("Bind() without optional column error = %v", err)
	}
	if got := b.Position(FieldEnabled); got != -1 {
		t.Errorf("Position(enabled) = %d, want -1", got)
	}
	if got := b.ColumnName(FieldEnabled); got != "" {
		t.Errorf("ColumnName(enabled) = %q, want empty", got)
	}
}

func TestBind_RequiredNamedColumnMissing(t *testing.T) {
	schema := TableSchema{
		Key:     "test_groups",
		Columns: []ColumnSpec{{Position: AnyPosition, Name: "Status", Field: FieldStatus}},
	}
	_, _, err := Bind(schema, "Groups", cols("MsgGroup"), false)
	if err == nil || !strings.Contains(err.Error(), "Status") {
		t.Errorf("Bind() error = %v, want missing Status column", err)
	}
}

func TestBinding_ColumnNameUsesLiveName(t *testing.T) {
	b, _, err := Bind(testTranslations, "Translations", cols("MessageId", "Body", "Locale"), false)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if got := b.ColumnName(FieldText); got != "Body" {
		t.Errorf("ColumnName(text) = %q, want Body", got)
	}
}

func TestProject(t *testing.T) {
	b, _, err := Bind(testTranslations, "Translations", cols("MessageId", "Text", "Locale", "Enabled"), true)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	tests := []struct {
		name       string
		row        workbook.Row
		wantText   string
		wantLocale string
	}{
		{
			name:       "full row",
			row:        row("r1", "m1", "Hello", "en-US", "true"),
			wantText:   "Hello",
			wantLocale: "en-US",
		},
		{
			name:       "short row yields empty fields",
			row:        row("r2", "m1", "Hello"),
			wantText:   "Hello",
			wantLocale: "",
		},
		{
			name: "empty row",
			row:  row("r3"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.Project(tt.row)
			if rec.RowID != tt.row.ID {
				t.Errorf("RowID = %q, want %q", rec.RowID, tt.row.ID)
			}
			if got := rec.Get(FieldText); got != tt.wantText {
				t.Errorf("text = %q, want %q", got, tt.wantText)
			}
			if got := rec.Get(FieldLocale); got != tt.wantLocale {
				t.Errorf("locale = %q, want %q", got, tt.wantLocale)
			}
			if got := rec.Get(FieldMessageID); got != "" {
				t.Errorf("unbound field = %q, want empty", got)
			}
		})
	}
}

func row(id string, values ...string) workbook.Row {
	r := workbook.Row{ID: id}
	for _, v := range values {
		r.Cells = append(r.Cells, workbook.Cell{FormattedValue: v})
	}
	return r
}

func TestWithColumnName(t *testing.T) {
	renamed := testTranslations.WithColumnName(FieldText, "Body")

	if renamed.Columns[0].Name != "Body" {
		t.Errorf("renamed column = %q, want Body", renamed.Columns[0].Name)
	}
	if testTranslations.Columns[0].Name != "Text" {
		t.Errorf("original schema changed to %q", testTranslations.Columns[0].Name)
	}
}
