package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// getStatisticsWithQuerier aggregates registry-wide counts and averages.
// Averages over nullable columns stay nil until at least one record
// carries a value.
func (s *SQLiteStorage) getStatisticsWithQuerier(ctx context.Context, q querier) (*types.Statistics, error) {
	stats := &types.Statistics{
		ByType:   make(map[types.InvestigationType]int64),
		ByStatus: make(map[types.InvestigationStatus]int64),
	}

	var avgQuality, avgTokens, avgDuration sql.NullFloat64
	row := q.QueryRowContext(ctx, `SELECT COUNT(*), AVG(quality_score), AVG(tokens_used), AVG(duration_ms) FROM investigations`)
	if err := row.Scan(&stats.Total, &avgQuality, &avgTokens, &avgDuration); err != nil {
		return nil, fmt.Errorf("%w: aggregate investigations: %v", types.ErrStorage, err)
	}
	if avgQuality.Valid {
		stats.AvgQuality = &avgQuality.Float64
	}
	if avgTokens.Valid {
		stats.AvgTokens = avgTokens.Float64
	}
	if avgDuration.Valid {
		stats.AvgDuration = &avgDuration.Float64
	}

	if err := scanGroupCounts(ctx, q, `SELECT type, COUNT(*) FROM investigations GROUP BY type`, func(key string, n int64) {
		stats.ByType[types.InvestigationType(key)] = n
	}); err != nil {
		return nil, err
	}

	if err := scanGroupCounts(ctx, q, `SELECT status, COUNT(*) FROM investigations GROUP BY status`, func(key string, n int64) {
		stats.ByStatus[types.InvestigationStatus(key)] = n
	}); err != nil {
		return nil, err
	}

	return stats, nil
}

func scanGroupCounts(ctx context.Context, q querier, query string, visit func(key string, n int64)) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: group counts: %v", types.ErrStorage, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return fmt.Errorf("%w: scan group count: %v", types.ErrStorage, err)
		}
		visit(key, n)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate group counts: %v", types.ErrStorage, err)
	}
	return nil
}
