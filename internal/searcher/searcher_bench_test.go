package searcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// setupSearchBenchmark seeds a registry large enough that query cost is
// visible over fixed overhead
func setupSearchBenchmark(b *testing.B) (*storage.SQLiteStorage, *Searcher) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}

	ctx := context.Background()
	allTypes := types.AllInvestigationTypes()
	for i := 0; i < 500; i++ {
		quality := float64(40 + i%60)
		record := &types.InvestigationRecord{
			ID:           fmt.Sprintf("INV-%04d", i),
			Name:         fmt.Sprintf("investigation %d", i),
			Type:         allTypes[i%len(allTypes)],
			Codebase:     fmt.Sprintf("github.com/acme/service-%d", i%10),
			StartTime:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
			Status:       types.StatusCompleted,
			TokensUsed:   int64(1000 * (i + 1)),
			QualityScore: &quality,
			Tags:         []string{fmt.Sprintf("tag-%d", i%7), "bench"},
			Agents:       []string{fmt.Sprintf("agent-%d", i%3)},
		}
		if err := store.Add(ctx, record); err != nil {
			store.Close()
			b.Fatal(err)
		}
	}

	return store, NewSearcher(store, DefaultCacheTTL)
}

// BenchmarkSearch measures the cold path: every iteration hits storage
func BenchmarkSearch(b *testing.B) {
	store, srch := setupSearchBenchmark(b)
	defer store.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		srch.InvalidateCache()
		_, err := srch.Search(context.Background(), &types.SearchRequest{
			Types: []types.InvestigationType{types.TypeSecurityAudit},
			Tags:  []string{"bench"},
			Limit: 20,
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchCached measures repeated identical queries served from the
// LRU cache
func BenchmarkSearchCached(b *testing.B) {
	store, srch := setupSearchBenchmark(b)
	defer store.Close()

	// Warm the cache
	if _, err := srch.Search(context.Background(), &types.SearchRequest{Tags: []string{"bench"}, Limit: 20}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, err := srch.Search(context.Background(), &types.SearchRequest{Tags: []string{"bench"}, Limit: 20})
		if err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSearchText measures cold FTS queries
func BenchmarkSearchText(b *testing.B) {
	store, srch := setupSearchBenchmark(b)
	defer store.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		srch.InvalidateCache()
		_, err := srch.Search(context.Background(), &types.SearchRequest{
			SearchText: "investigation",
			Limit:      20,
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRequestHashing(b *testing.B) {
	quality := 80.0
	req := &types.SearchRequest{
		Types:           []types.InvestigationType{types.TypeSecurityAudit, types.TypePerformanceReview},
		Codebase:        "github.com/acme/payments",
		Tags:            []string{"auth", "jwt"},
		Agents:          []string{"claude-sonnet"},
		MinQualityScore: &quality,
		SearchText:      "token rotation",
		Limit:           50,
		SortBy:          types.SortByStartTime,
		SortOrder:       types.SortDesc,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = computeRequestHash(req)
	}
}
