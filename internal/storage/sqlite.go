package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance. The handle is held
// for the process lifetime; callers close it once at shutdown.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: begin transaction: %v", types.ErrStorage, err)
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// inTx runs fn inside a transaction, committing on success and rolling back
// on any error so a failed mutation never partially applies
func (s *SQLiteStorage) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", types.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit transaction: %v", types.ErrStorage, err)
	}
	return nil
}

// Record operations

func (s *SQLiteStorage) Add(ctx context.Context, record *types.InvestigationRecord) error {
	return s.inTx(ctx, func(q querier) error {
		return s.addWithQuerier(ctx, q, record)
	})
}

func (s *SQLiteStorage) Update(ctx context.Context, id string, patch *types.RecordPatch) (*types.InvestigationRecord, error) {
	var updated *types.InvestigationRecord
	err := s.inTx(ctx, func(q querier) error {
		var err error
		updated, err = s.updateWithQuerier(ctx, q, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *SQLiteStorage) Get(ctx context.Context, id string) (*types.InvestigationRecord, error) {
	return s.getWithQuerier(ctx, s.querier(), id)
}

func (s *SQLiteStorage) Delete(ctx context.Context, id string) (int64, error) {
	var affected int64
	err := s.inTx(ctx, func(q querier) error {
		var err error
		affected, err = s.deleteWithQuerier(ctx, q, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *SQLiteStorage) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(q querier) error {
		return s.clearWithQuerier(ctx, q)
	})
}

// Listing operations

func (s *SQLiteStorage) GetAll(ctx context.Context, limit, offset int) ([]*types.InvestigationRecord, error) {
	return s.getAllWithQuerier(ctx, s.querier(), limit, offset)
}

func (s *SQLiteStorage) GetByType(ctx context.Context, t types.InvestigationType) ([]*types.InvestigationRecord, error) {
	return s.getByTypeWithQuerier(ctx, s.querier(), t)
}

func (s *SQLiteStorage) GetByStatus(ctx context.Context, st types.InvestigationStatus) ([]*types.InvestigationRecord, error) {
	return s.getByStatusWithQuerier(ctx, s.querier(), st)
}

func (s *SQLiteStorage) GetByTag(ctx context.Context, tag string) ([]*types.InvestigationRecord, error) {
	return s.getByTagWithQuerier(ctx, s.querier(), tag)
}

func (s *SQLiteStorage) GetByAgent(ctx context.Context, agent string) ([]*types.InvestigationRecord, error) {
	return s.getByAgentWithQuerier(ctx, s.querier(), agent)
}

// Query operations

func (s *SQLiteStorage) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	return s.searchWithQuerier(ctx, s.querier(), req)
}

func (s *SQLiteStorage) Count(ctx context.Context, req *types.SearchRequest) (int64, error) {
	return s.countWithQuerier(ctx, s.querier(), req)
}

// Aggregate operations

func (s *SQLiteStorage) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	return s.getStatisticsWithQuerier(ctx, s.querier())
}

// GetStatus reports operational facts about the store: row counts, on-disk
// size and the applied schema version
func (s *SQLiteStorage) GetStatus(ctx context.Context) (*types.RegistryStatus, error) {
	status := &types.RegistryStatus{DBPath: s.dbPath, BuildMode: BuildMode}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM investigations").Scan(&status.Investigations)
	if err != nil {
		return nil, fmt.Errorf("%w: count investigations: %v", types.ErrStorage, err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM investigation_tags").Scan(&status.TagRows)
	if err != nil {
		return nil, fmt.Errorf("%w: count tags: %v", types.ErrStorage, err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM investigation_agents").Scan(&status.AgentRows)
	if err != nil {
		return nil, fmt.Errorf("%w: count agents: %v", types.ErrStorage, err)
	}

	// Calculate database size
	var pageCount, pageSize int64
	err = s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	if err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DBSizeBytes = pageCount * pageSize
	}

	var version string
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&version)
	if err == nil {
		status.SchemaVersion = version
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) Add(ctx context.Context, record *types.InvestigationRecord) error {
	return t.storage.addWithQuerier(ctx, t.querier(), record)
}

func (t *sqliteTx) Update(ctx context.Context, id string, patch *types.RecordPatch) (*types.InvestigationRecord, error) {
	return t.storage.updateWithQuerier(ctx, t.querier(), id, patch)
}

func (t *sqliteTx) Get(ctx context.Context, id string) (*types.InvestigationRecord, error) {
	return t.storage.getWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) Delete(ctx context.Context, id string) (int64, error) {
	return t.storage.deleteWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) Clear(ctx context.Context) error {
	return t.storage.clearWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetAll(ctx context.Context, limit, offset int) ([]*types.InvestigationRecord, error) {
	return t.storage.getAllWithQuerier(ctx, t.querier(), limit, offset)
}

func (t *sqliteTx) GetByType(ctx context.Context, typ types.InvestigationType) ([]*types.InvestigationRecord, error) {
	return t.storage.getByTypeWithQuerier(ctx, t.querier(), typ)
}

func (t *sqliteTx) GetByStatus(ctx context.Context, st types.InvestigationStatus) ([]*types.InvestigationRecord, error) {
	return t.storage.getByStatusWithQuerier(ctx, t.querier(), st)
}

func (t *sqliteTx) GetByTag(ctx context.Context, tag string) ([]*types.InvestigationRecord, error) {
	return t.storage.getByTagWithQuerier(ctx, t.querier(), tag)
}

func (t *sqliteTx) GetByAgent(ctx context.Context, agent string) ([]*types.InvestigationRecord, error) {
	return t.storage.getByAgentWithQuerier(ctx, t.querier(), agent)
}

func (t *sqliteTx) Search(ctx context.Context, req *types.SearchRequest) (*types.SearchResponse, error) {
	return t.storage.searchWithQuerier(ctx, t.querier(), req)
}

func (t *sqliteTx) Count(ctx context.Context, req *types.SearchRequest) (int64, error) {
	return t.storage.countWithQuerier(ctx, t.querier(), req)
}

func (t *sqliteTx) GetStatistics(ctx context.Context) (*types.Statistics, error) {
	return t.storage.getStatisticsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*types.RegistryStatus, error) {
	return t.storage.GetStatus(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
