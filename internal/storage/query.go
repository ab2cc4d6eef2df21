package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// searchWithQuerier runs the composed filter/search/sort/paginate request.
// The count and page queries share one WHERE clause so the reported total
// always describes the same predicate as the page.
func (s *SQLiteStorage) searchWithQuerier(ctx context.Context, q querier, req *types.SearchRequest) (*types.SearchResponse, error) {
	if req == nil {
		req = &types.SearchRequest{}
	}
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	where, args := buildSearchClauses(req)

	var total int
	countQuery := `SELECT COUNT(*) FROM investigations` + where
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("%w: count matches: %v", types.ErrStorage, err)
	}

	pageQuery := `SELECT ` + investigationColumns + ` FROM investigations` + where +
		` ORDER BY ` + sortColumn(req.SortBy) + ` ` + sortDirection(req.SortOrder) + `, id ASC LIMIT ? OFFSET ?`
	pageArgs := append(append([]interface{}{}, args...), req.Limit, req.Offset)

	records, err := s.queryInvestigationsWithQuerier(ctx, q, pageQuery, pageArgs...)
	if err != nil {
		return nil, err
	}

	return &types.SearchResponse{
		Records: records,
		Total:   total,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}, nil
}

// countWithQuerier returns the cardinality matching an optional filter
// without materializing records
func (s *SQLiteStorage) countWithQuerier(ctx context.Context, q querier, req *types.SearchRequest) (int64, error) {
	var where string
	var args []interface{}
	if req != nil {
		if err := req.Normalize(); err != nil {
			return 0, err
		}
		where, args = buildSearchClauses(req)
	}

	var total int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM investigations`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: count investigations: %v", types.ErrStorage, err)
	}
	return total, nil
}

// getAllWithQuerier returns a page ordered by start_time descending.
// A limit <= 0 returns every record.
func (s *SQLiteStorage) getAllWithQuerier(ctx context.Context, q querier, limit, offset int) ([]*types.InvestigationRecord, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations ORDER BY start_time DESC, id ASC`
	args := make([]interface{}, 0, 2)
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, offset)
	}
	return s.queryInvestigationsWithQuerier(ctx, q, query, args...)
}

func (s *SQLiteStorage) getByTypeWithQuerier(ctx context.Context, q querier, t types.InvestigationType) ([]*types.InvestigationRecord, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown investigation type %q", types.ErrValidation, t)
	}
	query := `SELECT ` + investigationColumns + ` FROM investigations WHERE type = ? ORDER BY start_time DESC, id ASC`
	return s.queryInvestigationsWithQuerier(ctx, q, query, string(t))
}

func (s *SQLiteStorage) getByStatusWithQuerier(ctx context.Context, q querier, st types.InvestigationStatus) ([]*types.InvestigationRecord, error) {
	if !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrValidation, st)
	}
	query := `SELECT ` + investigationColumns + ` FROM investigations WHERE status = ? ORDER BY start_time DESC, id ASC`
	return s.queryInvestigationsWithQuerier(ctx, q, query, string(st))
}

func (s *SQLiteStorage) getByTagWithQuerier(ctx context.Context, q querier, tag string) ([]*types.InvestigationRecord, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations
		WHERE id IN (SELECT investigation_id FROM investigation_tags WHERE tag = ?)
		ORDER BY start_time DESC, id ASC`
	return s.queryInvestigationsWithQuerier(ctx, q, query, tag)
}

func (s *SQLiteStorage) getByAgentWithQuerier(ctx context.Context, q querier, agent string) ([]*types.InvestigationRecord, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations
		WHERE id IN (SELECT investigation_id FROM investigation_agents WHERE agent = ?)
		ORDER BY start_time DESC, id ASC`
	return s.queryInvestigationsWithQuerier(ctx, q, query, agent)
}

// buildSearchClauses translates the request into a WHERE clause and its
// arguments. Every provided constraint ANDs with the rest; the clause is
// shared verbatim by the count and page queries.
func buildSearchClauses(req *types.SearchRequest) (string, []interface{}) {
	conds := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	if len(req.Types) > 0 {
		conds = append(conds, `type IN (`+placeholders(len(req.Types))+`)`)
		for _, t := range req.Types {
			args = append(args, string(t))
		}
	}

	if len(req.Statuses) > 0 {
		conds = append(conds, `status IN (`+placeholders(len(req.Statuses))+`)`)
		for _, st := range req.Statuses {
			args = append(args, string(st))
		}
	}

	if req.Codebase != "" {
		conds = append(conds, `codebase = ?`)
		args = append(args, req.Codebase)
	}

	if req.DateRange != nil {
		if req.DateRange.Start != nil {
			conds = append(conds, `start_time >= ?`)
			args = append(args, req.DateRange.Start.UTC())
		}
		if req.DateRange.End != nil {
			conds = append(conds, `start_time <= ?`)
			args = append(args, req.DateRange.End.UTC())
		}
	}

	// Every listed tag must be present on the record
	if tags := normalizeSet(req.Tags); len(tags) > 0 {
		conds = append(conds, `(SELECT COUNT(DISTINCT tag) FROM investigation_tags
			WHERE investigation_id = investigations.id AND tag IN (`+placeholders(len(tags))+`)) = ?`)
		for _, tag := range tags {
			args = append(args, tag)
		}
		args = append(args, len(tags))
	}

	// Any listed agent qualifies the record
	if agents := normalizeSet(req.Agents); len(agents) > 0 {
		conds = append(conds, `EXISTS (SELECT 1 FROM investigation_agents
			WHERE investigation_id = investigations.id AND agent IN (`+placeholders(len(agents))+`))`)
		for _, agent := range agents {
			args = append(args, agent)
		}
	}

	// NULL quality_score never satisfies a bound, so unscored records drop
	// out of bounded queries
	if req.MinQualityScore != nil {
		conds = append(conds, `quality_score >= ?`)
		args = append(args, *req.MinQualityScore)
	}
	if req.MaxQualityScore != nil {
		conds = append(conds, `quality_score <= ?`)
		args = append(args, *req.MaxQualityScore)
	}

	if match := buildMatchExpression(req.SearchText); match != "" {
		conds = append(conds, `rowid IN (SELECT rowid FROM investigations_fts WHERE investigations_fts MATCH ?)`)
		args = append(args, match)
	}

	if len(conds) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(conds, " AND "), args
}

// buildMatchExpression compiles free text into an FTS5 query of quoted
// prefix terms, one per whitespace-separated token. Quoting neutralizes
// FTS5 operator syntax in the input.
func buildMatchExpression(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.ReplaceAll(field, `"`, `""`)
		terms = append(terms, `"`+field+`"*`)
	}
	return strings.Join(terms, " ")
}

// sortColumn maps the request sort key onto its column
func sortColumn(f types.SortField) string {
	switch f {
	case types.SortByDuration:
		return "duration_ms"
	case types.SortByQualityScore:
		return "quality_score"
	case types.SortByTokensUsed:
		return "tokens_used"
	default:
		return "start_time"
	}
}

// sortDirection maps the request sort order onto SQL
func sortDirection(o types.SortOrder) string {
	if o == types.SortAsc {
		return "ASC"
	}
	return "DESC"
}

// placeholders builds an n-wide parameter list for IN clauses
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
