// Package core turns workbook tables into export records and drives the two
// export paths.
//
// It has no transport dependencies and can be driven by the scheduler, the
// HTTP API or a one-shot CLI run.
//
// # Schema Registry
//
// Table schemas are registered at init time using [Register], usually by
// importing internal/core/tables. A [TableSchema] names the expected column
// at each position the export reads:
//
//	core.Register(core.TableSchema{
//	    Key:   core.SchemaTranslations,
//	    Label: "Message Translations",
//	    Columns: []core.ColumnSpec{
//	        {Position: 1, Name: "Text", Field: core.FieldText},
//	        {Position: 2, Name: "Locale", Field: core.FieldLocale},
//	    },
//	})
//
// At run start every schema is bound against the live column metadata with
// [Bind]. Name drift fails the run in strict mode and is logged otherwise.
//
// # KV Export
//
//  1. [Assembler] queries live groups, their messages and each message's
//     translations, fetching translations of one group in parallel
//  2. [Classifier] partitions a group's messages into static and situational
//     entries and fills missing text with the placeholder
//  3. The record is written to the key-value sink, overwriting the previous one
//
// Groups are emitted one at a time. A failed write is recorded and the
// remaining groups are still written; the run then fails with every
// [SinkWriteError] joined.
//
// # Bulk Export
//
// [BulkExporter] collects all FAQ rows whose marker cell is empty, archives
// them as one CSV object and then stamps the marker with today's date in
// batches. Rows a batch could not mark are exported again on the next run.
//
// # Runs
//
// [Service.Run] wraps either path with a run id, a timeout, the per-path
// [RunLimiter], [Metrics] and the [HistoryStore]. [Service.StartScheduler]
// calls it on a fixed interval.
package core
