package importer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/casefiledev/casefile-mcp/internal/storage"
	"github.com/casefiledev/casefile-mcp/pkg/types"
)

// maxLineBytes bounds a single JSONL line. Records carry free-form
// metadata, so the default 64KB scanner token size is too tight.
const maxLineBytes = 4 * 1024 * 1024

// DuplicatePolicy decides what happens when an imported record's id
// already exists in the registry.
type DuplicatePolicy string

const (
	// DuplicateSkip counts the record as skipped and moves on.
	DuplicateSkip DuplicatePolicy = "skip"
	// DuplicateFail aborts the importing file on the first duplicate.
	DuplicateFail DuplicatePolicy = "fail"
)

// Importer ingests investigation records from JSONL files through the
// registry's normal write path, so every imported record is validated,
// deduplicated and indexed exactly like one added directly.
type Importer struct {
	storage storage.Storage
}

// Config contains configuration for an import run
type Config struct {
	Workers     int             // Number of files processed concurrently (default: runtime.NumCPU())
	BatchSize   int             // Number of records to commit per transaction (default: 100)
	OnDuplicate DuplicatePolicy // What to do with already-present ids (default: skip)
}

// FileStats reports the outcome of importing one file
type FileStats struct {
	Path     string   `json:"path"`
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Statistics aggregates an import run across files
type Statistics struct {
	FilesProcessed  int           `json:"filesProcessed"`
	FilesFailed     int           `json:"filesFailed"`
	RecordsImported int           `json:"recordsImported"`
	RecordsSkipped  int           `json:"recordsSkipped"`
	RecordsFailed   int           `json:"recordsFailed"`
	Duration        time.Duration `json:"duration"`
	ErrorMessages   []string      `json:"errorMessages,omitempty"`
	Files           []*FileStats  `json:"files,omitempty"`
}

// New creates a new Importer instance
func New(storage storage.Storage) *Importer {
	return &Importer{storage: storage}
}

func withDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	out := *config
	if out.Workers <= 0 {
		out.Workers = runtime.NumCPU()
	}
	if out.BatchSize <= 0 {
		out.BatchSize = 100
	}
	if out.OnDuplicate == "" {
		out.OnDuplicate = DuplicateSkip
	}
	return &out
}

// ImportFile imports one JSONL file. Each non-blank line is a JSON
// investigation record; a line without an id is assigned a fresh UUID.
// Malformed lines and invalid records are counted and reported in the
// returned stats without stopping the file. The returned error is
// reserved for problems that abort the file: I/O failures, transaction
// failures, a duplicate under the fail policy, or cancellation.
func (imp *Importer) ImportFile(ctx context.Context, path string, config *Config) (*FileStats, error) {
	config = withDefaults(config)

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	fs := &FileStats{Path: path}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	batch := make([]*types.InvestigationRecord, 0, config.BatchSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var record types.InvestigationRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			fs.Failed++
			fs.Errors = append(fs.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if record.ID == "" {
			record.ID = uuid.NewString()
		}

		batch = append(batch, &record)
		if len(batch) >= config.BatchSize {
			if err := imp.writeBatch(ctx, batch, config, fs); err != nil {
				return nil, err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(batch) > 0 {
		if err := imp.writeBatch(ctx, batch, config, fs); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

// writeBatch adds a batch of records within a single transaction
func (imp *Importer) writeBatch(ctx context.Context, records []*types.InvestigationRecord, config *Config, fs *FileStats) error {
	tx, err := imp.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := tx.Add(ctx, record)
		switch {
		case err == nil:
			fs.Imported++
		case errors.Is(err, types.ErrDuplicate):
			if config.OnDuplicate == DuplicateFail {
				return fmt.Errorf("duplicate id %q: %w", record.ID, err)
			}
			fs.Skipped++
		case errors.Is(err, types.ErrValidation):
			fs.Failed++
			fs.Errors = append(fs.Errors, fmt.Sprintf("record %s: %v", record.ID, err))
		default:
			return fmt.Errorf("failed to add record %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ImportFiles imports several files concurrently. A file that cannot be
// processed is reported in the run statistics and does not stop the
// others; cancellation and fail-policy duplicates abort the whole run.
func (imp *Importer) ImportFiles(ctx context.Context, paths []string, config *Config) (*Statistics, error) {
	config = withDefaults(config)
	startTime := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	semaphore := make(chan struct{}, config.Workers)

	results := make([]*FileStats, len(paths))
	fileErrs := make([]error, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			fs, err := imp.ImportFile(gctx, path, config)
			if err != nil {
				if gctx.Err() != nil || errors.Is(err, types.ErrDuplicate) {
					return err
				}
				fileErrs[i] = err
				return nil
			}
			results[i] = fs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Statistics{}
	for i, path := range paths {
		if fileErrs[i] != nil {
			stats.FilesFailed++
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, fileErrs[i]))
			continue
		}
		fs := results[i]
		stats.FilesProcessed++
		stats.RecordsImported += fs.Imported
		stats.RecordsSkipped += fs.Skipped
		stats.RecordsFailed += fs.Failed
		stats.Files = append(stats.Files, fs)
	}
	stats.Duration = time.Since(startTime)

	return stats, nil
}

// ImportDir imports every .jsonl file directly under dir.
func (imp *Importer) ImportDir(ctx context.Context, dir string, config *Config) (*Statistics, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".jsonl") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	return imp.ImportFiles(ctx, paths, config)
}
