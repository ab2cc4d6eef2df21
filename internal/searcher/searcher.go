package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

const (
	// cacheSize bounds the number of cached query responses
	cacheSize = 1000

	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = 5 * time.Minute
)

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *types.SearchResponse
	expiresAt time.Time
}

// Searcher runs registry queries against storage and caches responses.
// Every mutation path must call InvalidateCache so a cached page never
// outlives the data it was built from.
type Searcher struct {
	storage storage.Storage
	ttl     time.Duration
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// NewSearcher creates a new Searcher instance. A non-positive ttl selects
// DefaultCacheTTL.
func NewSearcher(storage storage.Storage, ttl time.Duration) *Searcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	// Create LRU cache; least recently used responses evict automatically
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage: storage,
		ttl:     ttl,
		cache:   cache,
	}
}

// Search validates the request, consults the cache and falls through to
// storage. QueryTimeMs and FromCache on the response describe how it was
// produced.
func (s *Searcher) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	startTime := time.Now()

	if req == nil {
		req = &types.SearchRequest{}
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	hash := computeRequestHash(req)
	if cached := s.checkCache(hash); cached != nil {
		cached.FromCache = true
		cached.QueryTimeMs = time.Since(startTime).Milliseconds()
		return cached, nil
	}

	response, err := s.storage.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	response.QueryTimeMs = time.Since(startTime).Milliseconds()

	if len(response.Records) > 0 {
		s.storeInCache(hash, response)
	}

	return response, nil
}

// InvalidateCache drops every cached response. The LRU cache cannot be
// filtered by predicate, so mutations purge wholesale; the cache rebuilds
// from subsequent queries.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// checkCache looks up a cached response, dropping it when expired. The
// returned response is a deep copy the caller may modify.
func (s *Searcher) checkCache(hash [32]byte) *types.SearchResponse {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)

	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Copy while still holding the read lock so the entry cannot change
	// mid-copy
	response := copyResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a deep copy of the response so later callers cannot
// mutate the cached page
func (s *Searcher) storeInCache(hash [32]byte, response *types.SearchResponse) {
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// copyResponse creates a deep copy of a SearchResponse
func copyResponse(src *types.SearchResponse) *types.SearchResponse {
	if src == nil {
		return nil
	}

	dst := &types.SearchResponse{
		Total:       src.Total,
		Limit:       src.Limit,
		Offset:      src.Offset,
		QueryTimeMs: src.QueryTimeMs,
		Records:     make([]*types.InvestigationRecord, len(src.Records)),
	}

	for i, record := range src.Records {
		dst.Records[i] = copyRecord(record)
	}

	return dst
}

// copyRecord clones one record including its slices and metadata map
func copyRecord(src *types.InvestigationRecord) *types.InvestigationRecord {
	if src == nil {
		return nil
	}

	dst := *src
	if src.EndTime != nil {
		v := *src.EndTime
		dst.EndTime = &v
	}
	if src.Duration != nil {
		v := *src.Duration
		dst.Duration = &v
	}
	if src.QualityScore != nil {
		v := *src.QualityScore
		dst.QualityScore = &v
	}
	if src.Findings != nil {
		v := *src.Findings
		dst.Findings = &v
	}
	if src.Tags != nil {
		dst.Tags = append([]string(nil), src.Tags...)
	}
	if src.Agents != nil {
		dst.Agents = append([]string(nil), src.Agents...)
	}
	if src.Metadata != nil {
		dst.Metadata = make(map[string]any, len(src.Metadata))
		for k, v := range src.Metadata {
			dst.Metadata[k] = v
		}
	}
	return &dst
}

// computeRequestHash computes a unique hash for a normalized search request
func computeRequestHash(req *types.SearchRequest) [32]byte {
	// Build deterministic string representation
	var data strings.Builder

	for _, t := range req.Types {
		data.WriteString(string(t))
		data.WriteString(",")
	}
	data.WriteString("|")
	for _, st := range req.Statuses {
		data.WriteString(string(st))
		data.WriteString(",")
	}
	data.WriteString("|")
	data.WriteString(req.Codebase)
	data.WriteString("|")
	if req.DateRange != nil {
		if req.DateRange.Start != nil {
			data.WriteString(req.DateRange.Start.UTC().Format(time.RFC3339Nano))
		}
		data.WriteString("~")
		if req.DateRange.End != nil {
			data.WriteString(req.DateRange.End.UTC().Format(time.RFC3339Nano))
		}
	}
	data.WriteString("|")
	data.WriteString(strings.Join(req.Tags, ","))
	data.WriteString("|")
	data.WriteString(strings.Join(req.Agents, ","))
	data.WriteString("|")
	if req.MinQualityScore != nil {
		fmt.Fprintf(&data, "%.4f", *req.MinQualityScore)
	}
	data.WriteString("|")
	if req.MaxQualityScore != nil {
		fmt.Fprintf(&data, "%.4f", *req.MaxQualityScore)
	}
	data.WriteString("|")
	data.WriteString(req.SearchText)
	fmt.Fprintf(&data, "|%d|%d|%s|%s", req.Limit, req.Offset, req.SortBy, req.SortOrder)

	return sha256.Sum256([]byte(data.String()))
}
