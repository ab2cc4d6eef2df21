// Package importer bulk-loads investigation records from JSONL files.
//
// Imports go through the registry's public write path: every record is
// validated, duration-derived, duplicate-checked and FTS-indexed exactly
// as if it had been added one at a time.
//
// # File Format
//
// One JSON investigation record per line:
//
//	{"id":"INV-042","name":"Q3 auth audit","type":"security-audit","codebase":"github.com/acme/payments","startTime":"2026-03-10T09:00:00Z","endTime":"2026-03-10T11:00:00Z","status":"completed","tokensUsed":52000,"tags":["auth","jwt"]}
//	{"name":"Gateway review","type":"architecture-review","codebase":"github.com/acme/gateway","startTime":"2026-03-11T08:00:00Z","status":"running"}
//
// Blank lines are ignored. A record without an id is assigned a fresh
// UUID. Malformed lines and records that fail validation are counted and
// reported per file; they never abort the import.
//
// # Basic Usage
//
//	imp := importer.New(store)
//
//	stats, err := imp.ImportDir(ctx, "./exports", &importer.Config{
//	    Workers:     4,
//	    BatchSize:   100,
//	    OnDuplicate: importer.DuplicateSkip,
//	})
//
// # Concurrency
//
// Files are processed concurrently up to Config.Workers; within a file,
// records are committed in transactions of Config.BatchSize. The single
// SQLite writer serializes the actual commits, so concurrency buys
// overlapped decode and I/O, not parallel writes.
//
// # Duplicate Handling
//
// DuplicateSkip (the default) counts already-present ids and moves on,
// which makes imports re-runnable. DuplicateFail aborts the file on the
// first collision; records committed in earlier batches stay.
//
// # Watch Mode
//
//	w := importer.NewWatcher(imp, logger)
//	err := w.Watch(ctx, "./exports", nil)
//
// Watch imports the directory's existing files, then imports each .jsonl
// file after it goes quiet for half a second. Watch mode always skips
// duplicates, so appending lines to an already-imported file only adds
// the new records.
package importer
