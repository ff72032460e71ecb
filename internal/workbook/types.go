// Package workbook reads and updates tables of a remote workbook: a
// spreadsheet-like store that serves rows in cursor-paginated pages selected
// by filter formulas.
//
// Client is the transport seam. HoneycodeClient talks to the REST API and
// Memory is an in-process backend used by tests and local runs. Directory and
// RowIterator are built on top of any Client.
package workbook

import "context"

// Table is an entry of the workbook's table list.
type Table struct {
	ID   string `json:"tableId"`
	Name string `json:"tableName"`
}

// Column is the metadata of one table column, in table order.
type Column struct {
	ID     string `json:"tableColumnId"`
	Name   string `json:"tableColumnName"`
	Format string `json:"format,omitempty"`
}

// Cell is one cell of a row.
type Cell struct {
	FormattedValue string `json:"formattedValue"`
	RawValue       string `json:"rawValue,omitempty"`
}

// Row is a table row. Cells are positional and follow the column order.
type Row struct {
	ID    string `json:"rowId"`
	Cells []Cell `json:"cells"`
}

// Value returns the formatted value at position i, or "" when the row is
// shorter than i+1.
func (r Row) Value(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i].FormattedValue
}

// Page is one page of a row query. An empty NextToken marks the last page.
type Page struct {
	Rows      []Row
	NextToken string
}

// RowUpdate replaces cells of one row. Cells maps column id to the new fact.
type RowUpdate struct {
	RowID string
	Cells map[string]string
}

// FailedItem is a row a batch update could not apply.
type FailedItem struct {
	ID      string `json:"id"`
	Message string `json:"errorMessage"`
}

// MaxBatchRows is the most rows the API accepts in one batch update.
const MaxBatchRows = 100

// Client is the workbook API surface used by promptsync.
type Client interface {
	ListTables(ctx context.Context, workbookID string) ([]Table, error)
	ListColumns(ctx context.Context, workbookID, tableID string) ([]Column, error)
	QueryRows(ctx context.Context, workbookID, tableID string, filter Filter, nextToken string) (Page, error)
	BatchUpdateRows(ctx context.Context, workbookID, tableID string, updates []RowUpdate, requestToken string) ([]FailedItem, error)
}
