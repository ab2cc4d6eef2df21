package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/casefiledev/casefile-mcp/internal/config"
	"github.com/casefiledev/casefile-mcp/internal/importer"
	"github.com/casefiledev/casefile-mcp/internal/storage"
)

type importCommander struct {
	debug       bool
	watch       bool
	workers     int
	batchSize   int
	onDuplicate string
}

const importLongDesc string = `Bulk-load investigation records from JSONL files.

Each line of an import file is one investigation record in the same JSON
shape the add_investigation tool accepts. Records without an id get a
UUID. Duplicate ids are skipped by default; --on-duplicate=fail aborts
the import instead.

Arguments may be .jsonl files or directories; directories contribute
their .jsonl files. With --watch, a single directory is watched and new
or updated .jsonl files are imported as they settle.

Examples:
  casefile import export.jsonl
  casefile import /var/lib/casefile/exports
  casefile import --watch /var/lib/casefile/inbox`

const importShortDesc string = "Bulk-load JSONL exports into the registry"

func newImportCmd() *cobra.Command {
	cmder := &importCommander{}

	cmd := &cobra.Command{
		Use:   "import [path...]",
		Short: importShortDesc,
		Long:  importLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(args)
		},
	}

	cmd.Flags().BoolVarP(&cmder.watch, "watch", "w", false, "Watch a directory and import files as they settle")
	cmd.Flags().IntVar(&cmder.workers, "workers", 0, "Concurrent file workers (default CASEFILE_IMPORT_WORKERS)")
	cmd.Flags().IntVar(&cmder.batchSize, "batch-size", 0, "Records per transaction (default 100)")
	cmd.Flags().StringVar(&cmder.onDuplicate, "on-duplicate", "skip", "Duplicate id policy: skip or fail")

	return cmd
}

func (c *importCommander) run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	logger := newLogger(cfg, c.debug)

	var policy importer.DuplicatePolicy
	switch c.onDuplicate {
	case "skip":
		policy = importer.DuplicateSkip
	case "fail":
		policy = importer.DuplicateFail
	default:
		return fmt.Errorf("invalid --on-duplicate %q (want skip or fail)", c.onDuplicate)
	}

	workers := c.workers
	if workers == 0 {
		workers = cfg.ImportWorkers
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer store.Close()

	imp := importer.New(store)
	importCfg := &importer.Config{
		Workers:     workers,
		BatchSize:   c.batchSize,
		OnDuplicate: policy,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.watch {
		if len(args) != 1 {
			return errors.New("--watch takes exactly one directory")
		}
		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("cannot watch %s: %w", args[0], err)
		}
		if !info.IsDir() {
			return fmt.Errorf("cannot watch %s: not a directory", args[0])
		}

		watcher := importer.NewWatcher(imp, logger)
		if err := watcher.Watch(ctx, args[0], importCfg); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	paths, err := expandImportPaths(args)
	if err != nil {
		return err
	}

	stats, err := imp.ImportFiles(ctx, paths, importCfg)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	printImportSummary(stats)
	if stats.FilesFailed > 0 {
		return fmt.Errorf("%d file(s) failed", stats.FilesFailed)
	}
	return nil
}

// expandImportPaths turns the argument list into concrete file paths,
// expanding directories into the .jsonl files directly under them.
func expandImportPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !strings.EqualFold(filepath.Ext(entry.Name()), ".jsonl") {
				continue
			}
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}

	if len(paths) == 0 {
		return nil, errors.New("no .jsonl files to import")
	}
	return paths, nil
}

func printImportSummary(stats *importer.Statistics) {
	fmt.Printf("Imported %d record(s) from %d file(s) in %s\n",
		stats.RecordsImported, stats.FilesProcessed, stats.Duration.Round(time.Millisecond))

	if stats.RecordsSkipped > 0 {
		fmt.Printf("Skipped %d duplicate(s)\n", stats.RecordsSkipped)
	}
	if stats.RecordsFailed > 0 {
		fmt.Printf("Rejected %d record(s)\n", stats.RecordsFailed)
	}
	for _, fs := range stats.Files {
		for _, msg := range fs.Errors {
			fmt.Printf("  %s: %s\n", fs.Path, msg)
		}
	}
	for _, msg := range stats.ErrorMessages {
		fmt.Printf("  %s\n", msg)
	}
}
