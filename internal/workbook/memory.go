package workbook

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// Memory is an in-process Client. It applies equality filters exactly like
// the remote service and pages results with offset cursors.
type Memory struct {
	mu        sync.Mutex
	pageSize  int
	workbooks map[string][]*memTable
	seq       int

	queryErrs  map[string]error
	batchErrs  map[string]error
	failedRows map[string]string

	queries     int
	batchTokens []string
}

type memTable struct {
	id      string
	name    string
	columns []Column
	rows    []Row
}

// NewMemory returns an empty backend serving pageSize rows per page.
func NewMemory(pageSize int) *Memory {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Memory{
		pageSize:   pageSize,
		workbooks:  make(map[string][]*memTable),
		queryErrs:  make(map[string]error),
		batchErrs:  make(map[string]error),
		failedRows: make(map[string]string),
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

// AddTable creates a table with the named columns and returns its id.
func (m *Memory) AddTable(workbookID, name string, columns ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &memTable{id: m.nextID("tbl"), name: name}
	for _, c := range columns {
		t.columns = append(t.columns, Column{ID: m.nextID("col"), Name: c, Format: "AUTO"})
	}
	m.workbooks[workbookID] = append(m.workbooks[workbookID], t)
	return t.id
}

// AddRow appends a row to the named table and returns its id. Fewer values
// than columns leave the trailing cells absent.
func (m *Memory) AddRow(workbookID, table string, values ...string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tableByName(workbookID, table)
	if t == nil {
		panic(fmt.Sprintf("workbook: AddRow on unknown table %q", table))
	}
	row := Row{ID: m.nextID("row")}
	for _, v := range values {
		row.Cells = append(row.Cells, Cell{FormattedValue: v, RawValue: v})
	}
	t.rows = append(t.rows, row)
	return row.ID
}

// Rows returns a copy of every row of the named table.
func (m *Memory) Rows(workbookID, table string) []Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tableByName(workbookID, table)
	if t == nil {
		return nil
	}
	out := make([]Row, len(t.rows))
	for i, r := range t.rows {
		out[i] = copyRow(r)
	}
	return out
}

// FailQueries makes every query on the named table return err.
func (m *Memory) FailQueries(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErrs[table] = err
}

// FailBatch makes every batch update on the named table return err.
func (m *Memory) FailBatch(table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErrs[table] = err
}

// FailRow makes batch updates report rowID as a failed item.
func (m *Memory) FailRow(rowID, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRows[rowID] = message
}

// QueryCount returns the number of QueryRows calls served.
func (m *Memory) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}

// BatchTokens returns the client request tokens of every batch update.
func (m *Memory) BatchTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.batchTokens...)
}

func (m *Memory) ListTables(ctx context.Context, workbookID string) ([]Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tables, ok := m.workbooks[workbookID]
	if !ok {
		return nil, &APIError{StatusCode: 404, Type: "ResourceNotFoundException", Message: "workbook not found"}
	}
	out := make([]Table, len(tables))
	for i, t := range tables {
		out[i] = Table{ID: t.id, Name: t.name}
	}
	return out, nil
}

func (m *Memory) ListColumns(ctx context.Context, workbookID, tableID string) ([]Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tableByID(workbookID, tableID)
	if t == nil {
		return nil, &APIError{StatusCode: 404, Type: "ResourceNotFoundException", Message: "table not found"}
	}
	return append([]Column(nil), t.columns...), nil
}

func (m *Memory) QueryRows(ctx context.Context, workbookID, tableID string, filter Filter, nextToken string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if err := filter.Validate(); err != nil {
		return Page{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++

	t := m.tableByID(workbookID, tableID)
	if t == nil {
		return Page{}, &APIError{StatusCode: 404, Type: "ResourceNotFoundException", Message: "table not found"}
	}
	if err := m.queryErrs[t.name]; err != nil {
		return Page{}, err
	}

	col := -1
	for i, c := range t.columns {
		if c.Name == filter.Column {
			col = i
			break
		}
	}
	if col < 0 {
		return Page{}, &APIError{StatusCode: 400, Type: "ValidationException", Message: fmt.Sprintf("invalid formula: unknown column %q", filter.Column)}
	}

	offset := 0
	if nextToken != "" {
		n, err := strconv.Atoi(nextToken)
		if err != nil || n < 0 {
			return Page{}, &APIError{StatusCode: 400, Type: "ValidationException", Message: "invalid nextToken"}
		}
		offset = n
	}

	var matched []Row
	for _, r := range t.rows {
		if r.Value(col) == filter.Value {
			matched = append(matched, r)
		}
	}
	if offset > len(matched) {
		offset = len(matched)
	}

	end := offset + m.pageSize
	page := Page{}
	if end < len(matched) {
		page.NextToken = strconv.Itoa(end)
	} else {
		end = len(matched)
	}
	for _, r := range matched[offset:end] {
		page.Rows = append(page.Rows, copyRow(r))
	}
	return page, nil
}

func (m *Memory) BatchUpdateRows(ctx context.Context, workbookID, tableID string, updates []RowUpdate, requestToken string) ([]FailedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(updates) > MaxBatchRows {
		return nil, &APIError{StatusCode: 400, Type: "ValidationException", Message: "too many rows"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tableByID(workbookID, tableID)
	if t == nil {
		return nil, &APIError{StatusCode: 404, Type: "ResourceNotFoundException", Message: "table not found"}
	}
	if err := m.batchErrs[t.name]; err != nil {
		return nil, err
	}
	m.batchTokens = append(m.batchTokens, requestToken)

	var failed []FailedItem
	for _, u := range updates {
		if msg, ok := m.failedRows[u.RowID]; ok {
			failed = append(failed, FailedItem{ID: u.RowID, Message: msg})
			continue
		}
		idx := -1
		for i, r := range t.rows {
			if r.ID == u.RowID {
				idx = i
				break
			}
		}
		if idx < 0 {
			failed = append(failed, FailedItem{ID: u.RowID, Message: "row not found"})
			continue
		}
		for colID, fact := range u.Cells {
			pos := -1
			for i, c := range t.columns {
				if c.ID == colID {
					pos = i
					break
				}
			}
			if pos < 0 {
				continue
			}
			row := &t.rows[idx]
			for len(row.Cells) <= pos {
				row.Cells = append(row.Cells, Cell{})
			}
			row.Cells[pos] = Cell{FormattedValue: fact, RawValue: fact}
		}
	}
	return failed, nil
}

func (m *Memory) tableByName(workbookID, name string) *memTable {
	for _, t := range m.workbooks[workbookID] {
		if t.name == name {
			return t
		}
	}
	return nil
}

func (m *Memory) tableByID(workbookID, id string) *memTable {
	for _, t := range m.workbooks[workbookID] {
		if t.id == id {
			return t
		}
	}
	return nil
}

func copyRow(r Row) Row {
	return Row{ID: r.ID, Cells: append([]Cell(nil), r.Cells...)}
}
