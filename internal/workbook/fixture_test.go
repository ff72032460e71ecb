package workbook

import (
	"context"
	"strings"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	m, err := LoadFixture("testdata/prompts.json", testWorkbook, 2)
	if err != nil {
		t.Fatalf("LoadFixture() error = %v", err)
	}

	dir, err := Resolve(context.Background(), m, testWorkbook)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	want := []string{"FAQ", "MessageGroups", "MessageTranslations", "Messages"}
	if got := strings.Join(dir.Names(), ","); got != strings.Join(want, ",") {
		t.Errorf("Names() = %s, want %s", got, strings.Join(want, ","))
	}

	rows, err := Collect(dir.Query(context.Background(), "MessageTranslations", Equals("", "MessageId", "m1")))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("got %d translations for m1, want 2", len(rows))
	}
}

func TestReadFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"unknown field", `{"tables": [], "extra": 1}`},
		{"unnamed table", `{"tables": [{"columns": ["a"]}]}`},
		{"duplicate table", `{"tables": [{"name": "A"}, {"name": "A"}]}`},
		{"row wider than columns", `{"tables": [{"name": "A", "columns": ["x"], "rows": [["1", "2"]]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadFixture(strings.NewReader(tt.doc), testWorkbook, 10); err == nil {
				t.Error("ReadFixture() error = nil, want error")
			}
		})
	}
}
