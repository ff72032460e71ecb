package workbook

import (
	"context"
)

// RowIterator yields the rows of a filtered query, fetching pages lazily.
// It is finite and not restartable: once Next returns false it keeps
// returning false. Check Err after the loop.
//
//	it := workbook.Query(ctx, client, wbID, tableID, filter)
//	for it.Next() {
//	    row := it.Row()
//	}
//	if err := it.Err(); err != nil { ... }
type RowIterator struct {
	ctx        context.Context
	client     Client
	workbookID string
	tableID    string
	filter     Filter

	page    []Row
	idx     int
	token   string
	fetched int
	done    bool
	row     Row
	err     error
}

// Query returns an iterator over every row of tableID matching filter.
// No request is made until the first call to Next.
func Query(ctx context.Context, client Client, workbookID, tableID string, filter Filter) *RowIterator {
	return &RowIterator{
		ctx:        ctx,
		client:     client,
		workbookID: workbookID,
		tableID:    tableID,
		filter:     filter,
	}
}

// failedIterator is an exhausted iterator whose Err returns err.
func failedIterator(err error) *RowIterator {
	return &RowIterator{done: true, err: err}
}

// Next advances to the next row. It returns false at the end of the result
// set or on the first error.
func (it *RowIterator) Next() bool {
	for it.idx >= len(it.page) {
		if it.done {
			return false
		}
		if it.fetched > 0 && it.token == "" {
			it.done = true
			return false
		}
		if !it.fetch() {
			return false
		}
	}

	it.row = it.page[it.idx]
	it.idx++
	return true
}

func (it *RowIterator) fetch() bool {
	if it.fetched == 0 {
		if err := it.filter.Validate(); err != nil {
			it.fail(err)
			return false
		}
	}
	if err := it.ctx.Err(); err != nil {
		it.fail(&RemoteQueryError{Op: "query rows", Table: it.filter.Table, Err: err})
		return false
	}

	page, err := it.client.QueryRows(it.ctx, it.workbookID, it.tableID, it.filter, it.token)
	if err != nil {
		it.fail(&RemoteQueryError{Op: "query rows", Table: it.filter.Table, Err: err})
		return false
	}

	it.fetched++
	it.page = page.Rows
	it.idx = 0
	it.token = page.NextToken
	return true
}

func (it *RowIterator) fail(err error) {
	it.err = err
	it.done = true
	it.page = nil
	it.idx = 0
}

// Row returns the current row.
func (it *RowIterator) Row() Row { return it.row }

// Err returns the error that stopped iteration, if any.
func (it *RowIterator) Err() error { return it.err }

// Pages returns how many pages have been fetched.
func (it *RowIterator) Pages() int { return it.fetched }

// Collect drains it into a slice.
func Collect(it *RowIterator) ([]Row, error) {
	var rows []Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	return rows, it.Err()
}
