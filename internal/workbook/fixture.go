package workbook

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Fixture is the JSON document the memory backend is seeded from:
//
//	{"tables": [{"name": "MessageGroups", "columns": ["MsgGroup", "Status"],
//	             "rows": [["Welcome", "Live"]]}]}
type Fixture struct {
	Tables []FixtureTable `json:"tables"`
}

// FixtureTable is one table of a Fixture.
type FixtureTable struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// LoadFixture reads a fixture file into a new Memory under workbookID.
func LoadFixture(path, workbookID string, pageSize int) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return ReadFixture(f, workbookID, pageSize)
}

// ReadFixture decodes a fixture from r into a new Memory under workbookID.
func ReadFixture(r io.Reader, workbookID string, pageSize int) (*Memory, error) {
	var fx Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	m := NewMemory(pageSize)
	seen := make(map[string]bool, len(fx.Tables))
	for _, t := range fx.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("fixture: table without name")
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("fixture: duplicate table %q", t.Name)
		}
		seen[t.Name] = true

		m.AddTable(workbookID, t.Name, t.Columns...)
		for i, row := range t.Rows {
			if len(row) > len(t.Columns) {
				return nil, fmt.Errorf("fixture: table %q row %d has %d cells for %d columns", t.Name, i, len(row), len(t.Columns))
			}
			m.AddRow(workbookID, t.Name, row...)
		}
	}
	return m, nil
}
