package importer

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casefiledev/casefile-mcp/internal/storage"
)

func setupWatchTest(t *testing.T) (*Watcher, storage.Storage) {
	t.Helper()

	imp, store := setupImportTest(t)
	w := NewWatcher(imp, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.settle = 50 * time.Millisecond
	return w, store
}

// startWatch runs Watch in the background and returns its terminal error
// after cancellation.
func startWatch(t *testing.T, w *Watcher, dir string) (context.CancelFunc, chan error) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		done <- w.Watch(ctx, dir, nil)
		close(stopped)
	}()

	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop after cancellation")
		}
	})

	return cancel, done
}

func waitForCount(t *testing.T, store storage.Storage, want int64) {
	t.Helper()

	require.Eventually(t, func() bool {
		n, err := store.Count(context.Background(), nil)
		return err == nil && n == want
	}, 5*time.Second, 25*time.Millisecond, "registry never reached %d records", want)
}

func TestWatch_ImportsExistingFiles(t *testing.T) {
	w, store := setupWatchTest(t)
	dir := t.TempDir()

	writeJSONL(t, dir, "already-there.jsonl",
		investigationLine("INV-1", "pre-existing"),
		investigationLine("INV-2", "pre-existing too"),
	)

	startWatch(t, w, dir)
	waitForCount(t, store, 2)
}

func TestWatch_ImportsNewFiles(t *testing.T) {
	w, store := setupWatchTest(t)
	dir := t.TempDir()

	startWatch(t, w, dir)

	// Let the watch become established before dropping the file.
	time.Sleep(100 * time.Millisecond)
	writeJSONL(t, dir, "dropped.jsonl", investigationLine("INV-1", "dropped in"))

	waitForCount(t, store, 1)
}

func TestWatch_AppendPicksUpOnlyNewRecords(t *testing.T) {
	w, store := setupWatchTest(t)
	dir := t.TempDir()

	path := writeJSONL(t, dir, "growing.jsonl", investigationLine("INV-1", "first"))

	startWatch(t, w, dir)
	waitForCount(t, store, 1)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(investigationLine("INV-2", "appended") + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// The re-import skips INV-1 and adds INV-2 exactly once.
	waitForCount(t, store, 2)
}

func TestWatch_IgnoresOtherExtensions(t *testing.T) {
	w, store := setupWatchTest(t)
	dir := t.TempDir()

	startWatch(t, w, dir)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"),
		[]byte(investigationLine("INV-1", "wrong extension")+"\n"), 0o644))
	writeJSONL(t, dir, "real.jsonl", investigationLine("INV-2", "right extension"))

	waitForCount(t, store, 1)

	count, err := store.Count(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestWatch_CancelledContext(t *testing.T) {
	w, _ := setupWatchTest(t)
	dir := t.TempDir()

	cancel, done := startWatch(t, w, dir)

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestWatch_MissingDir(t *testing.T) {
	w, _ := setupWatchTest(t)

	err := w.Watch(context.Background(), filepath.Join(t.TempDir(), "nowhere"), nil)
	require.Error(t, err)
}
