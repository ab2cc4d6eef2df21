package searcher

import (
	"context"
	"testing"
	"time"

	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// setupTestSearcher creates a searcher over in-memory storage with a few
// seeded investigations
func setupTestSearcher(t *testing.T) (*Searcher, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	quality := 90.0
	records := []*types.InvestigationRecord{
		{
			ID: "INV-1", Name: "auth audit", Type: types.TypeSecurityAudit,
			Codebase:  "github.com/acme/payments",
			StartTime: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
			Status:    types.StatusCompleted, TokensUsed: 40000,
			QualityScore: &quality, Tags: []string{"auth"},
		},
		{
			ID: "INV-2", Name: "latency review", Type: types.TypePerformanceReview,
			Codebase:  "github.com/acme/payments",
			StartTime: time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC),
			Status:    types.StatusCompleted, TokensUsed: 20000,
			Tags: []string{"latency"},
		},
		{
			ID: "INV-3", Name: "dependency sweep", Type: types.TypeDependencyAudit,
			Codebase:  "github.com/acme/identity",
			StartTime: time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
			Status:    types.StatusRunning, TokensUsed: 10000,
			Tags: []string{"cve"},
		},
	}
	for _, record := range records {
		if err := store.Add(ctx, record); err != nil {
			t.Fatalf("failed to seed record %s: %v", record.ID, err)
		}
	}

	return NewSearcher(store, DefaultCacheTTL), store
}

func TestNewSearcher(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	defer store.Close()

	s := NewSearcher(store, 0)

	if s == nil {
		t.Fatal("expected non-nil searcher")
	}
	if s.storage != store {
		t.Error("searcher storage not set correctly")
	}
	if s.ttl != DefaultCacheTTL {
		t.Errorf("expected default TTL, got %v", s.ttl)
	}
}

func TestSearch(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	resp, err := s.Search(ctx, &types.SearchRequest{
		Types: []types.InvestigationType{types.TypeSecurityAudit},
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Total != 1 {
		t.Errorf("expected total 1, got %d", resp.Total)
	}
	if len(resp.Records) != 1 || resp.Records[0].ID != "INV-1" {
		t.Errorf("unexpected records: %v", resp.Records)
	}
	if resp.FromCache {
		t.Error("first search must not come from cache")
	}
	if resp.QueryTimeMs < 0 {
		t.Errorf("negative query time %d", resp.QueryTimeMs)
	}
}

func TestSearch_NilRequest(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	resp, err := s.Search(ctx, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.Total != 3 {
		t.Errorf("expected all records, got total %d", resp.Total)
	}
	if resp.Limit != types.DefaultLimit {
		t.Errorf("expected default limit, got %d", resp.Limit)
	}
}

func TestSearch_InvalidRequest(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	if _, err := s.Search(ctx, &types.SearchRequest{Limit: -5}); err == nil {
		t.Error("expected validation error for negative limit")
	}
}

func TestSearch_CacheHit(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	req := &types.SearchRequest{Codebase: "github.com/acme/payments"}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if first.FromCache {
		t.Error("first search must not come from cache")
	}

	second, err := s.Search(ctx, &types.SearchRequest{Codebase: "github.com/acme/payments"})
	if err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if !second.FromCache {
		t.Error("repeat search should come from cache")
	}
	if second.Total != first.Total || len(second.Records) != len(first.Records) {
		t.Error("cached response differs from original")
	}
}

func TestSearch_CacheReturnsCopy(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	req := &types.SearchRequest{Tags: []string{"auth"}}

	first, err := s.Search(ctx, req)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// Mutating a returned record must not leak into the cache
	first.Records[0].Name = "tampered"
	first.Records[0].Tags[0] = "tampered"

	second, err := s.Search(ctx, &types.SearchRequest{Tags: []string{"auth"}})
	if err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if second.Records[0].Name != "auth audit" {
		t.Errorf("cache was polluted: name = %q", second.Records[0].Name)
	}
	if second.Records[0].Tags[0] != "auth" {
		t.Errorf("cache was polluted: tag = %q", second.Records[0].Tags[0])
	}
}

func TestSearch_CacheExpiry(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	// Entries are born expired
	s.ttl = -time.Second

	req := &types.SearchRequest{SearchText: "audit"}
	if _, err := s.Search(ctx, req); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	resp, err := s.Search(ctx, &types.SearchRequest{SearchText: "audit"})
	if err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if resp.FromCache {
		t.Error("expired entry must not serve a cache hit")
	}
}

func TestSearch_EmptyResultNotCached(t *testing.T) {
	s, _ := setupTestSearcher(t)
	ctx := context.Background()

	req := &types.SearchRequest{Codebase: "github.com/acme/nonexistent"}
	for i := 0; i < 2; i++ {
		resp, err := s.Search(ctx, &types.SearchRequest{Codebase: req.Codebase})
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if resp.FromCache {
			t.Error("empty responses are not cached")
		}
	}
}

func TestInvalidateCache(t *testing.T) {
	s, store := setupTestSearcher(t)
	ctx := context.Background()

	if _, err := s.Search(ctx, &types.SearchRequest{Statuses: []types.InvestigationStatus{types.StatusCompleted}}); err != nil {
		t.Fatalf("search failed: %v", err)
	}

	// A mutation followed by invalidation must be visible immediately
	quality := 50.0
	record := &types.InvestigationRecord{
		ID: "INV-4", Name: "fresh audit", Type: types.TypeSecurityAudit,
		Codebase:  "github.com/acme/payments",
		StartTime: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		Status:    types.StatusCompleted, QualityScore: &quality,
	}
	if err := store.Add(ctx, record); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	s.InvalidateCache()

	resp, err := s.Search(ctx, &types.SearchRequest{Statuses: []types.InvestigationStatus{types.StatusCompleted}})
	if err != nil {
		t.Fatalf("repeat search failed: %v", err)
	}
	if resp.FromCache {
		t.Error("invalidated cache must not serve hits")
	}
	if resp.Total != 3 {
		t.Errorf("expected the new record to be visible, total = %d", resp.Total)
	}
}

func TestComputeRequestHash(t *testing.T) {
	base := func() *types.SearchRequest {
		return &types.SearchRequest{
			Types:      []types.InvestigationType{types.TypeSecurityAudit},
			Codebase:   "github.com/acme/payments",
			Tags:       []string{"auth"},
			SearchText: "jwt",
			Limit:      10,
			SortBy:     types.SortByStartTime,
			SortOrder:  types.SortDesc,
		}
	}

	tests := []struct {
		name     string
		mutate   func(r *types.SearchRequest)
		shouldEq bool
	}{
		{"Identical", func(r *types.SearchRequest) {}, true},
		{"DifferentText", func(r *types.SearchRequest) { r.SearchText = "oauth" }, false},
		{"DifferentTags", func(r *types.SearchRequest) { r.Tags = []string{"jwt"} }, false},
		{"DifferentCodebase", func(r *types.SearchRequest) { r.Codebase = "github.com/acme/identity" }, false},
		{"DifferentLimit", func(r *types.SearchRequest) { r.Limit = 20 }, false},
		{"DifferentOffset", func(r *types.SearchRequest) { r.Offset = 10 }, false},
		{"DifferentSort", func(r *types.SearchRequest) { r.SortBy = types.SortByQualityScore }, false},
		{"AddedBound", func(r *types.SearchRequest) { v := 80.0; r.MinQualityScore = &v }, false},
		{"AddedDateRange", func(r *types.SearchRequest) {
			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			r.DateRange = &types.DateRange{Start: &start}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req1 := base()
			req2 := base()
			tt.mutate(req2)

			equal := computeRequestHash(req1) == computeRequestHash(req2)
			if tt.shouldEq && !equal {
				t.Error("expected hashes to be equal but they differ")
			}
			if !tt.shouldEq && equal {
				t.Error("expected hashes to differ but they are equal")
			}
		})
	}
}

func TestCopyRecord(t *testing.T) {
	end := time.Date(2026, 1, 5, 11, 0, 0, 0, time.UTC)
	quality := 88.0
	src := &types.InvestigationRecord{
		ID: "INV-9", Name: "orig", EndTime: &end, QualityScore: &quality,
		Tags: []string{"a"}, Metadata: map[string]any{"k": "v"},
	}

	dst := copyRecord(src)
	dst.Name = "changed"
	*dst.QualityScore = 1
	dst.Tags[0] = "b"
	dst.Metadata["k"] = "w"

	if src.Name != "orig" || *src.QualityScore != 88.0 || src.Tags[0] != "a" || src.Metadata["k"] != "v" {
		t.Error("copyRecord shares state with the source")
	}
}
