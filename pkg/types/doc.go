// Package types provides shared type definitions for the Casefile registry.
//
// This package defines the domain types used across the storage, search,
// recommendation and MCP layers: investigation records, query objects,
// result shapes and the error taxonomy.
//
// # Core Types
//
// InvestigationRecord represents one analytical run against a codebase:
//
//	score := 92.5
//	record := &types.InvestigationRecord{
//	    ID:           "INV-2026-001",
//	    Name:         "Q3 authentication audit",
//	    Type:         types.TypeSecurityAudit,
//	    Codebase:     "/srv/app",
//	    StartTime:    start,
//	    Status:       types.StatusCompleted,
//	    QualityScore: &score,
//	    Tags:         []string{"auth", "session"},
//	}
//
// SearchRequest composes filters that all apply together:
//
//	req := &types.SearchRequest{
//	    Types:           []types.InvestigationType{types.TypeSecurityAudit},
//	    Tags:            []string{"auth"},
//	    MinQualityScore: &min,
//	    SortBy:          types.SortByQualityScore,
//	}
//
// Within Types and Statuses the listed values are alternatives; Tags must
// all be present on a matching record; Agents match on any overlap.
//
// # Validation
//
// Records validate against the write-time invariants before anything is
// persisted:
//
//	if err := record.Validate(); err != nil {
//	    // errors.Is(err, types.ErrValidation)
//	}
//
// When StartTime and EndTime are both known, a missing Duration is derived
// via DeriveDuration; a caller-supplied Duration that disagrees with the
// timestamps is rejected, never silently recomputed.
//
// # Errors
//
// The four sentinels ErrValidation, ErrDuplicate, ErrNotFound and ErrStorage
// classify every failure the registry surfaces. Lower layers wrap them with
// context, so match with errors.Is rather than equality.
package types
