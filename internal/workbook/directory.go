package workbook

import (
	"context"
	"sort"
	"sync"
)

// Directory maps table names of one workbook to their ids and caches column
// metadata. It is built once per export run.
type Directory struct {
	client     Client
	workbookID string
	tables     map[string]string

	mu      sync.Mutex
	columns map[string][]Column
}

// Resolve lists the workbook's tables and builds a Directory.
func Resolve(ctx context.Context, client Client, workbookID string) (*Directory, error) {
	tables, err := client.ListTables(ctx, workbookID)
	if err != nil {
		return nil, &RemoteQueryError{Op: "list tables", Err: err}
	}

	d := &Directory{
		client:     client,
		workbookID: workbookID,
		tables:     make(map[string]string, len(tables)),
		columns:    make(map[string][]Column),
	}
	for _, t := range tables {
		d.tables[t.Name] = t.ID
	}
	return d, nil
}

// Names returns the resolved table names, sorted.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.tables))
	for n := range d.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TableID returns the id of the named table. An unknown name is a
// *ConfigurationError.
func (d *Directory) TableID(name string) (string, error) {
	id, ok := d.tables[name]
	if !ok {
		return "", &ConfigurationError{Table: name, Detail: "table not found in workbook"}
	}
	return id, nil
}

// Columns returns the ordered column metadata of the named table.
func (d *Directory) Columns(ctx context.Context, name string) ([]Column, error) {
	id, err := d.TableID(name)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	cols, ok := d.columns[name]
	d.mu.Unlock()
	if ok {
		return cols, nil
	}

	cols, err = d.client.ListColumns(ctx, d.workbookID, id)
	if err != nil {
		return nil, &RemoteQueryError{Op: "list columns", Table: name, Err: err}
	}

	d.mu.Lock()
	d.columns[name] = cols
	d.mu.Unlock()
	return cols, nil
}

// Query returns an iterator over rows of the named table matching filter.
// The filter's Table is set to name.
func (d *Directory) Query(ctx context.Context, name string, filter Filter) *RowIterator {
	id, err := d.TableID(name)
	if err != nil {
		return failedIterator(err)
	}
	filter.Table = name
	return Query(ctx, d.client, d.workbookID, id, filter)
}

// BatchUpdate applies updates to rows of the named table in one request.
// Callers chunk to MaxBatchRows.
func (d *Directory) BatchUpdate(ctx context.Context, name string, updates []RowUpdate, requestToken string) ([]FailedItem, error) {
	id, err := d.TableID(name)
	if err != nil {
		return nil, err
	}
	failed, err := d.client.BatchUpdateRows(ctx, d.workbookID, id, updates, requestToken)
	if err != nil {
		return nil, &RemoteQueryError{Op: "batch update rows", Table: name, Err: err}
	}
	return failed, nil
}
