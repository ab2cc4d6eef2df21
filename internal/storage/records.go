package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// investigationColumns is the scan order shared by every record SELECT
const investigationColumns = `id, name, type, codebase, start_time, end_time, duration_ms,
       status, tokens_used, quality_score, findings, metadata, created_at, updated_at`

// addWithQuerier is the internal implementation that uses a querier. The
// caller supplies the transaction; the main row, join rows and FTS entry
// commit or roll back together.
func (s *SQLiteStorage) addWithQuerier(ctx context.Context, q querier, record *types.InvestigationRecord) error {
	record.Tags = normalizeSet(record.Tags)
	record.Agents = normalizeSet(record.Agents)
	record.DeriveDuration()
	if err := record.Validate(); err != nil {
		return err
	}

	var exists int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM investigations WHERE id = ?", record.ID).Scan(&exists)
	if err == nil {
		return types.ErrDuplicate
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("%w: check duplicate id: %v", types.ErrStorage, err)
	}

	meta, err := encodeMetadata(record.Metadata)
	if err != nil {
		return fmt.Errorf("%w: metadata is not serializable: %v", types.ErrValidation, err)
	}

	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	normalizeRecordTimes(record)

	query := `
		INSERT INTO investigations (id, name, type, codebase, start_time, end_time, duration_ms,
		                            status, tokens_used, quality_score, findings, tags_text, metadata,
		                            created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = q.ExecContext(ctx, query,
		record.ID, record.Name, string(record.Type), record.Codebase,
		record.StartTime, record.EndTime, record.Duration,
		string(record.Status), record.TokensUsed, record.QualityScore, record.Findings,
		strings.Join(record.Tags, " "), meta, now, now)
	if err != nil {
		return fmt.Errorf("%w: insert investigation: %v", types.ErrStorage, err)
	}

	return s.insertAssociationsWithQuerier(ctx, q, record.ID, record.Tags, record.Agents)
}

// updateWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateWithQuerier(ctx context.Context, q querier, id string, patch *types.RecordPatch) (*types.InvestigationRecord, error) {
	if patch == nil {
		patch = &types.RecordPatch{}
	}

	record, err := s.getWithQuerier(ctx, q, id)
	if err != nil {
		return nil, err
	}

	createdAt := record.CreatedAt
	patch.Apply(record)
	record.ID = id // immutable
	record.CreatedAt = createdAt
	record.Tags = normalizeSet(record.Tags)
	record.Agents = normalizeSet(record.Agents)
	record.DeriveDuration()
	if err := record.Validate(); err != nil {
		return nil, err
	}

	meta, err := encodeMetadata(record.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata is not serializable: %v", types.ErrValidation, err)
	}

	record.UpdatedAt = time.Now().UTC()
	normalizeRecordTimes(record)

	query := `
		UPDATE investigations
		SET name = ?, type = ?, codebase = ?, start_time = ?, end_time = ?, duration_ms = ?,
		    status = ?, tokens_used = ?, quality_score = ?, findings = ?, tags_text = ?,
		    metadata = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = q.ExecContext(ctx, query,
		record.Name, string(record.Type), record.Codebase,
		record.StartTime, record.EndTime, record.Duration,
		string(record.Status), record.TokensUsed, record.QualityScore, record.Findings,
		strings.Join(record.Tags, " "), meta, record.UpdatedAt, id)
	if err != nil {
		return nil, fmt.Errorf("%w: update investigation: %v", types.ErrStorage, err)
	}

	if err := s.replaceAssociationsWithQuerier(ctx, q, id, record.Tags, record.Agents); err != nil {
		return nil, err
	}
	return record, nil
}

// getWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getWithQuerier(ctx context.Context, q querier, id string) (*types.InvestigationRecord, error) {
	query := `SELECT ` + investigationColumns + ` FROM investigations WHERE id = ?`
	record, err := scanInvestigation(q.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get investigation: %v", types.ErrStorage, err)
	}

	if err := s.hydrateAssociationsWithQuerier(ctx, q, []*types.InvestigationRecord{record}); err != nil {
		return nil, err
	}
	return record, nil
}

// deleteWithQuerier is the internal implementation that uses a querier.
// Deleting an absent id is not an error; the caller sees zero rows affected.
func (s *SQLiteStorage) deleteWithQuerier(ctx context.Context, q querier, id string) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM investigations WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("%w: delete investigation: %v", types.ErrStorage, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", types.ErrStorage, err)
	}
	return affected, nil
}

// clearWithQuerier empties the registry. Join rows cascade and the FTS
// triggers remove index entries row by row.
func (s *SQLiteStorage) clearWithQuerier(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM investigations`); err != nil {
		return fmt.Errorf("%w: clear investigations: %v", types.ErrStorage, err)
	}
	return nil
}

// insertAssociationsWithQuerier writes the tag and agent join rows
func (s *SQLiteStorage) insertAssociationsWithQuerier(ctx context.Context, q querier, id string, tags, agents []string) error {
	for _, tag := range tags {
		if _, err := q.ExecContext(ctx, `INSERT INTO investigation_tags (investigation_id, tag) VALUES (?, ?)`, id, tag); err != nil {
			return fmt.Errorf("%w: insert tag row: %v", types.ErrStorage, err)
		}
	}

	for _, agent := range agents {
		if _, err := q.ExecContext(ctx, `INSERT INTO investigation_agents (investigation_id, agent) VALUES (?, ?)`, id, agent); err != nil {
			return fmt.Errorf("%w: insert agent row: %v", types.ErrStorage, err)
		}
	}
	return nil
}

// replaceAssociationsWithQuerier rewrites the join rows for an update
func (s *SQLiteStorage) replaceAssociationsWithQuerier(ctx context.Context, q querier, id string, tags, agents []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM investigation_tags WHERE investigation_id = ?`, id); err != nil {
		return fmt.Errorf("%w: clear tag rows: %v", types.ErrStorage, err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM investigation_agents WHERE investigation_id = ?`, id); err != nil {
		return fmt.Errorf("%w: clear agent rows: %v", types.ErrStorage, err)
	}
	return s.insertAssociationsWithQuerier(ctx, q, id, tags, agents)
}

// queryInvestigationsWithQuerier runs a record SELECT and hydrates the
// tag and agent sets for the returned page
func (s *SQLiteStorage) queryInvestigationsWithQuerier(ctx context.Context, q querier, query string, args ...interface{}) ([]*types.InvestigationRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query investigations: %v", types.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*types.InvestigationRecord, 0)
	for rows.Next() {
		record, err := scanInvestigation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan investigation: %v", types.ErrStorage, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate investigations: %v", types.ErrStorage, err)
	}

	if err := s.hydrateAssociationsWithQuerier(ctx, q, records); err != nil {
		return nil, err
	}
	return records, nil
}

// hydrateAssociationsWithQuerier resolves tags and agents for a page of
// records with one IN query per join table
func (s *SQLiteStorage) hydrateAssociationsWithQuerier(ctx context.Context, q querier, records []*types.InvestigationRecord) error {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]*types.InvestigationRecord, len(records))
	args := make([]interface{}, 0, len(records))
	for _, record := range records {
		index[record.ID] = record
		args = append(args, record.ID)
	}
	marks := placeholders(len(records))

	tagQuery := `SELECT investigation_id, tag FROM investigation_tags WHERE investigation_id IN (` + marks + `) ORDER BY tag`
	rows, err := q.QueryContext(ctx, tagQuery, args...)
	if err != nil {
		return fmt.Errorf("%w: query tags: %v", types.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("%w: scan tag: %v", types.ErrStorage, err)
		}
		if record, ok := index[id]; ok {
			record.Tags = append(record.Tags, tag)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: iterate tags: %v", types.ErrStorage, err)
	}

	agentQuery := `SELECT investigation_id, agent FROM investigation_agents WHERE investigation_id IN (` + marks + `) ORDER BY agent`
	agentRows, err := q.QueryContext(ctx, agentQuery, args...)
	if err != nil {
		return fmt.Errorf("%w: query agents: %v", types.ErrStorage, err)
	}
	defer func() { _ = agentRows.Close() }()
	for agentRows.Next() {
		var id, agent string
		if err := agentRows.Scan(&id, &agent); err != nil {
			return fmt.Errorf("%w: scan agent: %v", types.ErrStorage, err)
		}
		if record, ok := index[id]; ok {
			record.Agents = append(record.Agents, agent)
		}
	}
	if err := agentRows.Err(); err != nil {
		return fmt.Errorf("%w: iterate agents: %v", types.ErrStorage, err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan path
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanInvestigation reads one record in investigationColumns order
func scanInvestigation(row rowScanner) (*types.InvestigationRecord, error) {
	var record types.InvestigationRecord
	var typ, status string
	var endTime sql.NullTime
	var duration, findings sql.NullInt64
	var quality sql.NullFloat64
	var metadata sql.NullString

	err := row.Scan(&record.ID, &record.Name, &typ, &record.Codebase,
		&record.StartTime, &endTime, &duration,
		&status, &record.TokensUsed, &quality, &findings,
		&metadata, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}

	record.Type = types.InvestigationType(typ)
	record.Status = types.InvestigationStatus(status)
	if endTime.Valid {
		t := endTime.Time
		record.EndTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		record.Duration = &d
	}
	if quality.Valid {
		s := quality.Float64
		record.QualityScore = &s
	}
	if findings.Valid {
		f := findings.Int64
		record.Findings = &f
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &record.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &record, nil
}

// normalizeSet trims, deduplicates and sorts a tag or agent set so stored
// and returned sets are deterministic
func normalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// normalizeRecordTimes stores timestamps in UTC so their text encoding
// orders chronologically
func normalizeRecordTimes(record *types.InvestigationRecord) {
	record.StartTime = record.StartTime.UTC()
	if record.EndTime != nil {
		t := record.EndTime.UTC()
		record.EndTime = &t
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
}

// encodeMetadata serializes the opaque metadata bag, NULL when absent
func encodeMetadata(metadata map[string]any) (interface{}, error) {
	if metadata == nil {
		return nil, nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
