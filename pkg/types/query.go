package types

import (
	"fmt"
	"time"
)

// SortField selects the sort key for search results
type SortField string

const (
	SortByStartTime    SortField = "startTime"
	SortByDuration     SortField = "duration"
	SortByQualityScore SortField = "qualityScore"
	SortByTokensUsed   SortField = "tokensUsed"
)

// Valid reports whether f is a recognized sort field
func (f SortField) Valid() bool {
	switch f {
	case SortByStartTime, SortByDuration, SortByQualityScore, SortByTokensUsed:
		return true
	default:
		return false
	}
}

// SortOrder selects ascending or descending result order
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Valid reports whether o is a recognized sort order
func (o SortOrder) Valid() bool {
	return o == SortAsc || o == SortDesc
}

// DateRange bounds StartTime inclusively on either side. Nil bounds are open.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// DefaultLimit is the page size applied when a request leaves Limit unset
const DefaultLimit = 50

// SearchRequest is a structured query against the registry. All provided
// constraints combine with logical AND. Within Types and Statuses the listed
// values are alternatives (OR); Tags must all be present on a matching record
// (AND); Agents match on any overlap (OR).
type SearchRequest struct {
	Types    []InvestigationType   `json:"types,omitempty"`
	Statuses []InvestigationStatus `json:"statuses,omitempty"`
	Codebase string                `json:"codebase,omitempty"`

	// DateRange bounds StartTime inclusively
	DateRange *DateRange `json:"dateRange,omitempty"`

	Tags   []string `json:"tags,omitempty"`
	Agents []string `json:"agents,omitempty"`

	// Quality bounds are inclusive. Records without a quality score never
	// match a request that sets either bound.
	MinQualityScore *float64 `json:"minQualityScore,omitempty"`
	MaxQualityScore *float64 `json:"maxQualityScore,omitempty"`

	// SearchText matches the full-text index over id, name, type, codebase
	// and tags
	SearchText string `json:"searchText,omitempty"`

	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
	SortBy    SortField `json:"sortBy,omitempty"`
	SortOrder SortOrder `json:"sortOrder,omitempty"`
}

// Normalize applies defaults and validates enumerations before any query
// runs. Limit 0 means "not provided" and defaults to DefaultLimit; negative
// Limit or Offset is rejected.
func (r *SearchRequest) Normalize() error {
	if r.Limit < 0 {
		return fmt.Errorf("%w: limit must be positive", ErrValidation)
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}

	if r.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative", ErrValidation)
	}

	if r.SortBy == "" {
		r.SortBy = SortByStartTime
	}
	if !r.SortBy.Valid() {
		return fmt.Errorf("%w: unknown sort field %q", ErrValidation, r.SortBy)
	}

	if r.SortOrder == "" {
		r.SortOrder = SortDesc
	}
	if !r.SortOrder.Valid() {
		return fmt.Errorf("%w: unknown sort order %q", ErrValidation, r.SortOrder)
	}

	for _, t := range r.Types {
		if !t.Valid() {
			return fmt.Errorf("%w: unknown investigation type %q", ErrValidation, t)
		}
	}

	for _, s := range r.Statuses {
		if !s.Valid() {
			return fmt.Errorf("%w: unknown status %q", ErrValidation, s)
		}
	}

	if r.MinQualityScore != nil && (*r.MinQualityScore < 0 || *r.MinQualityScore > 100) {
		return fmt.Errorf("%w: minQualityScore must be between 0 and 100", ErrValidation)
	}
	if r.MaxQualityScore != nil && (*r.MaxQualityScore < 0 || *r.MaxQualityScore > 100) {
		return fmt.Errorf("%w: maxQualityScore must be between 0 and 100", ErrValidation)
	}

	if r.DateRange != nil && r.DateRange.Start != nil && r.DateRange.End != nil &&
		r.DateRange.End.Before(*r.DateRange.Start) {
		return fmt.Errorf("%w: dateRange end precedes start", ErrValidation)
	}

	return nil
}

// SearchResponse is one page of matching records plus the total match count
// independent of pagination
type SearchResponse struct {
	Records []*InvestigationRecord `json:"records"`
	Total   int                    `json:"total"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`

	QueryTimeMs int64 `json:"queryTimeMs"`
	FromCache   bool  `json:"fromCache,omitempty"`
}

// ScoredRecord pairs a record with its similarity score and the criteria
// that matched
type ScoredRecord struct {
	Record  *InvestigationRecord `json:"record"`
	Score   float64              `json:"score"`
	Reasons []string             `json:"reasons"`
}

// Statistics is the aggregate view over the whole registry. AvgQuality and
// AvgDuration are nil when no record carries the underlying field.
type Statistics struct {
	Total       int64                         `json:"total"`
	ByType      map[InvestigationType]int64   `json:"byType"`
	ByStatus    map[InvestigationStatus]int64 `json:"byStatus"`
	AvgQuality  *float64                      `json:"avgQuality,omitempty"`
	AvgTokens   float64                       `json:"avgTokens"`
	AvgDuration *float64                      `json:"avgDuration,omitempty"`
}

// RegistryStatus reports operational facts about the store itself
type RegistryStatus struct {
	DBPath         string `json:"dbPath"`
	DBSizeBytes    int64  `json:"dbSizeBytes"`
	SchemaVersion  string `json:"schemaVersion"`
	BuildMode      string `json:"buildMode"`
	Investigations int64  `json:"investigations"`
	TagRows        int64  `json:"tagRows"`
	AgentRows      int64  `json:"agentRows"`
}
