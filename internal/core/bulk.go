package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/promptsync/internal/logging"
	"github.com/JonMunkholm/promptsync/internal/sink"
	"github.com/JonMunkholm/promptsync/internal/workbook"
)

// MarkerDateLayout formats the exported-marker date (M/D/Y).
const MarkerDateLayout = "1/2/2006"

// BulkConfig configures a BulkExporter.
type BulkConfig struct {
	Table        string // live name of the FAQ table
	MarkerColumn string
	ObjectKey    string
	ManifestKey  string
	BatchSize    int
	SchemaStrict bool
}

// BulkResult summarizes one bulk export.
type BulkResult struct {
	Rows     int
	Unmarked int
	Warnings []string
}

// BulkExporter archives unexported FAQ rows as one CSV object and then marks
// them as exported.
type BulkExporter struct {
	dir     *workbook.Directory
	archive sink.Archive
	cfg     BulkConfig

	now      func() time.Time
	newToken func() string
}

// NewBulkExporter returns an exporter reading through dir and writing to
// archive.
func NewBulkExporter(dir *workbook.Directory, archive sink.Archive, cfg BulkConfig) *BulkExporter {
	if cfg.BatchSize <= 0 || cfg.BatchSize > workbook.MaxBatchRows {
		cfg.BatchSize = workbook.MaxBatchRows
	}
	return &BulkExporter{
		dir:      dir,
		archive:  archive,
		cfg:      cfg,
		now:      time.Now,
		newToken: uuid.NewString,
	}
}

// markerColumn is the resolved exported-marker column.
type markerColumn struct {
	pos  int
	name string
	id   string
}

// Run exports every row whose marker cell is empty. All pages are collected
// before the single archive write so the object holds the whole run. Rows are
// marked only after the write succeeded; failed items are reported in the
// result and logged but do not fail the run.
func (b *BulkExporter) Run(ctx context.Context) (BulkResult, error) {
	log := logging.WithFields(ctx, "table", b.cfg.Table, "object", b.cfg.ObjectKey)
	var res BulkResult

	cols, marker, warnings, err := b.resolveMarker(ctx)
	if err != nil {
		return res, err
	}
	res.Warnings = warnings

	rows, err := workbook.Collect(b.dir.Query(ctx, b.cfg.Table, workbook.Equals("", marker.name, "")))
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, nil
	}

	date := b.now().Format(MarkerDateLayout)
	body, err := encodeCSV(cols, rows, marker.pos, date)
	if err != nil {
		return res, fmt.Errorf("encode %s: %w", b.cfg.ObjectKey, err)
	}
	if err := b.archive.PutObject(ctx, b.cfg.ObjectKey, body, "text/csv"); err != nil {
		return res, err
	}
	res.Rows = len(rows)
	log.Info("bulk object written", "rows", len(rows), "bytes", len(body))

	if err := b.ensureManifest(ctx); err != nil {
		log.Warn("manifest not written", "manifest", b.cfg.ManifestKey, "error", err)
		res.Warnings = append(res.Warnings, err.Error())
	}

	failed, err := b.mark(ctx, rows, marker.id, date)
	if err != nil {
		return res, err
	}
	if len(failed) > 0 {
		perr := &PartialBatchUpdateError{Table: b.cfg.Table, Items: failed}
		log.Warn("exported rows not marked", "error", perr)
		res.Unmarked = len(failed)
		res.Warnings = append(res.Warnings, perr.Error())
	}
	return res, nil
}

// resolveMarker binds the FAQ schema and finds the marker column by name.
// Tables without a column of that name fall back to their last column.
func (b *BulkExporter) resolveMarker(ctx context.Context) ([]workbook.Column, markerColumn, []string, error) {
	schema, err := MustGet(SchemaFAQ)
	if err != nil {
		return nil, markerColumn{}, nil, err
	}
	if b.cfg.MarkerColumn != "" {
		schema = schema.WithColumnName(FieldMarker, b.cfg.MarkerColumn)
	}

	cols, err := b.dir.Columns(ctx, b.cfg.Table)
	if err != nil {
		return nil, markerColumn{}, nil, err
	}
	if len(cols) == 0 {
		return nil, markerColumn{}, nil, &ConfigurationError{Table: b.cfg.Table, Detail: "table has no columns"}
	}

	binding, warnings, err := Bind(schema, b.cfg.Table, cols, b.cfg.SchemaStrict)
	if err != nil {
		return nil, markerColumn{}, nil, err
	}

	pos := binding.Position(FieldMarker)
	if pos < 0 {
		pos = len(cols) - 1
		w := fmt.Sprintf("table %q: marker column %q not found, using last column %q", b.cfg.Table, b.cfg.MarkerColumn, cols[pos].Name)
		logging.FromContext(ctx).Warn(w)
		warnings = append(warnings, w)
	}
	return cols, markerColumn{pos: pos, name: cols[pos].Name, id: cols[pos].ID}, warnings, nil
}

// encodeCSV writes the header and one record per row, with the marker cell
// set to date.
func encodeCSV(cols []workbook.Column, rows []workbook.Row, markerPos int, date string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	record := make([]string, len(cols))
	for _, row := range rows {
		for i := range cols {
			record[i] = row.Value(i)
		}
		record[markerPos] = date
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mark sets the marker cell of rows to date in chunks of BatchSize. Each chunk
// carries its own request token. A failed request stops marking.
func (b *BulkExporter) mark(ctx context.Context, rows []workbook.Row, markerID, date string) ([]workbook.FailedItem, error) {
	var failed []workbook.FailedItem
	for start := 0; start < len(rows); start += b.cfg.BatchSize {
		end := min(start+b.cfg.BatchSize, len(rows))

		updates := make([]workbook.RowUpdate, 0, end-start)
		for _, row := range rows[start:end] {
			updates = append(updates, workbook.RowUpdate{
				RowID: row.ID,
				Cells: map[string]string{markerID: date},
			})
		}

		items, err := b.dir.BatchUpdate(ctx, b.cfg.Table, updates, b.newToken())
		if err != nil {
			return failed, err
		}
		failed = append(failed, items...)
	}
	return failed, nil
}

type manifest struct {
	FileLocations []manifestLocation `json:"fileLocations"`
}

type manifestLocation struct {
	URIPrefixes []string `json:"URIPrefixes"`
}

// ensureManifest writes the manifest pointing at the object's prefix unless
// it already exists.
func (b *BulkExporter) ensureManifest(ctx context.Context) error {
	if b.cfg.ManifestKey == "" {
		return nil
	}
	ok, err := b.archive.Exists(ctx, b.cfg.ManifestKey)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	prefix := ""
	if dir := path.Dir(b.cfg.ObjectKey); dir != "." {
		prefix = dir + "/"
	}
	body, err := json.Marshal(manifest{
		FileLocations: []manifestLocation{{URIPrefixes: []string{b.archive.URI(prefix)}}},
	})
	if err != nil {
		return err
	}
	return b.archive.PutObject(ctx, b.cfg.ManifestKey, body, "application/json")
}
