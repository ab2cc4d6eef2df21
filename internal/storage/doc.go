// Package storage provides SQLite-based persistence for investigation records.
//
// The storage layer manages:
//   - Investigation records and their lifecycle metadata
//   - Tag and agent associations
//   - Full-text search indexes
//   - Registry-wide statistics
//
// # Database Schema
//
// Tables:
//   - investigations: Record identity, timing, status and quality metrics
//   - investigation_tags: One row per (record, tag) pair
//   - investigation_agents: One row per (record, agent) pair
//   - investigations_fts: FTS5 full-text search index over id, name, type,
//     codebase and tags
//
// Association rows cascade on record deletion, and FTS rows are maintained
// by triggers so the index never drifts from the base table.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("~/.casefile/registry.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// Store a completed investigation
//	err = store.Add(ctx, &types.InvestigationRecord{
//	    ID:        "INV-2024-001",
//	    Name:      "Q1 authentication audit",
//	    Type:      types.TypeSecurityAudit,
//	    Codebase:  "github.com/acme/payments",
//	    StartTime: start,
//	    EndTime:   &end,
//	    Status:    types.StatusCompleted,
//	    Tags:      []string{"auth", "jwt"},
//	})
//
// # Transactions
//
// Use transactions for atomic multi-record operations:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, record := range batch {
//	    if err := tx.Add(ctx, record); err != nil {
//	        return err
//	    }
//	}
//
//	if err := tx.Commit(); err != nil {
//	    return err
//	}
//
// Single mutations (Add, Update, Delete, Clear) already run inside their own
// transaction; explicit transactions are for batches.
//
// # Query Patterns
//
// Common query patterns:
//
//	// Fetch one record
//	record, err := store.Get(ctx, "INV-2024-001")
//
//	// List by dimension
//	records, err := store.GetByType(ctx, types.TypeSecurityAudit)
//	records, err = store.GetByTag(ctx, "auth")
//
//	// Composed search with pagination
//	resp, err := store.Search(ctx, &types.SearchRequest{
//	    Types:           []types.InvestigationType{types.TypeSecurityAudit},
//	    Codebase:        "github.com/acme/payments",
//	    Tags:            []string{"auth"},
//	    MinQualityScore: ptr(80.0),
//	    SearchText:      "jwt rotation",
//	    Limit:           10,
//	})
//	fmt.Printf("%d of %d matches\n", len(resp.Records), resp.Total)
//
// Filters compose with AND; the response total counts every match, not just
// the returned page.
//
// # Full-Text Search
//
// SearchText queries the FTS5 index with prefix matching per token:
//
//	resp, err := store.Search(ctx, &types.SearchRequest{SearchText: "auth payments"})
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_cgo tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Native SQLite performance
//
//   - Requires a C compiler and the fts5 build tag
//
//     CGO_ENABLED=1 go build -tags "sqlite_cgo,fts5"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler needed
//
//     CGO_ENABLED=0 go build
//
// # Performance
//
// Typical operations against a registry of a few thousand records:
//   - Add record: <5ms
//   - Get by id: <1ms
//   - Filtered search with count: <20ms
//   - Statistics: <10ms
package storage
