package storage

import (
	"context"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying investigation
// records. Every mutating operation covers the main row, the tag and agent
// join rows and the full-text index as one atomic unit.
type Storage interface {
	// Record operations
	Add(ctx context.Context, record *types.InvestigationRecord) error
	Update(ctx context.Context, id string, patch *types.RecordPatch) (*types.InvestigationRecord, error)
	Get(ctx context.Context, id string) (*types.InvestigationRecord, error)
	Delete(ctx context.Context, id string) (int64, error)
	Clear(ctx context.Context) error

	// Listing operations. GetAll treats limit <= 0 as "no limit".
	GetAll(ctx context.Context, limit, offset int) ([]*types.InvestigationRecord, error)
	GetByType(ctx context.Context, t types.InvestigationType) ([]*types.InvestigationRecord, error)
	GetByStatus(ctx context.Context, s types.InvestigationStatus) ([]*types.InvestigationRecord, error)
	GetByTag(ctx context.Context, tag string) ([]*types.InvestigationRecord, error)
	GetByAgent(ctx context.Context, agent string) ([]*types.InvestigationRecord, error)

	// Query operations
	Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error)
	Count(ctx context.Context, req *types.SearchRequest) (int64, error)

	// Aggregate operations
	GetStatistics(ctx context.Context) (*types.Statistics, error)
	GetStatus(ctx context.Context) (*types.RegistryStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}
