package importer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultSettle is how long a file must be quiet before it is imported.
// Producers append JSONL line by line; importing on the first write event
// would read a half-written file.
const defaultSettle = 500 * time.Millisecond

// Watcher tails a directory and imports .jsonl files as they appear or
// grow. Duplicate ids are always skipped in watch mode, so re-importing a
// file after an append only picks up the new lines.
type Watcher struct {
	importer *Importer
	logger   *slog.Logger
	settle   time.Duration
}

// NewWatcher creates a new Watcher instance
func NewWatcher(imp *Importer, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		importer: imp,
		logger:   logger,
		settle:   defaultSettle,
	}
}

// Watch imports everything already in dir, then blocks importing new and
// modified .jsonl files until the context is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string, config *Config) error {
	config = withDefaults(config)
	config.OnDuplicate = DuplicateSkip

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	// Catch up on whatever is already there before tailing.
	stats, err := w.importer.ImportDir(ctx, dir, config)
	if err != nil {
		return err
	}
	if stats.FilesProcessed > 0 || stats.FilesFailed > 0 {
		w.logger.Info("imported existing files",
			"dir", dir,
			"files", stats.FilesProcessed,
			"imported", stats.RecordsImported,
			"skipped", stats.RecordsSkipped,
			"failed", stats.RecordsFailed)
	}

	// Write events arrive once per append, so each path gets a settle
	// timer that resets until the file goes quiet.
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)
	settled := make(chan string)

	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, timer := range pending {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".jsonl") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			path := event.Name
			mu.Lock()
			if timer, exists := pending[path]; exists {
				timer.Stop()
			}
			pending[path] = time.AfterFunc(w.settle, func() {
				select {
				case settled <- path:
				case <-ctx.Done():
				}
			})
			mu.Unlock()

		case path := <-settled:
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			fs, err := w.importer.ImportFile(ctx, path, config)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				w.logger.Error("import failed", "path", path, "error", err)
				continue
			}
			w.logger.Info("imported file",
				"path", path,
				"imported", fs.Imported,
				"skipped", fs.Skipped,
				"failed", fs.Failed)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
