package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/docset"
)

type rebuildRecorder struct {
	mu      sync.Mutex
	batches [][]string
}

func (r *rebuildRecorder) rebuild(_ context.Context, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	r.batches = append(r.batches, sorted)
	return nil
}

func (r *rebuildRecorder) all() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.batches...)
}

func startWatcher(t *testing.T, docsets []docset.Docset, rec *rebuildRecorder) *Watcher {
	t.Helper()
	w, err := New(docsets, 50*time.Millisecond, rec.rebuild)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	return w
}

func waitForBatches(t *testing.T, rec *rebuildRecorder, n int) [][]string {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(rec.all()) >= n
	}, 5*time.Second, 10*time.Millisecond)
	return rec.all()
}

func TestWatcher_FileChangeTriggersDocsetRebuild(t *testing.T) {
	root := t.TempDir()
	docsets := []docset.Docset{{ID: "python", RootPath: root, Enabled: true}}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("## A\n\ntext\n"), 0o644))

	batches := waitForBatches(t, rec, 1)
	assert.Equal(t, []string{"python"}, batches[0])
}

func TestWatcher_BurstCoalescesToOneRebuild(t *testing.T) {
	root := t.TempDir()
	docsets := []docset.Docset{{ID: "python", RootPath: root, Enabled: true}}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	for i := 0; i < 5; i++ {
		name := filepath.Join(root, "doc"+string(rune('a'+i))+".md")
		require.NoError(t, os.WriteFile(name, []byte("## H\n\nbody\n"), 0o644))
	}

	batches := waitForBatches(t, rec, 1)
	assert.Equal(t, []string{"python"}, batches[0])

	// The burst lands within one debounce window.
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, rec.all(), 1)
}

func TestWatcher_UnsupportedFilesIgnored(t *testing.T) {
	root := t.TempDir()
	// Seed a file first so modify events (not just create) are exercised.
	binPath := filepath.Join(root, "blob.bin")
	require.NoError(t, os.WriteFile(binPath, []byte("x"), 0o644))

	docsets := []docset.Docset{{ID: "python", RootPath: root, Enabled: true}}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	require.NoError(t, os.WriteFile(binPath, []byte("xy"), 0o644))

	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rec.all())
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	docsets := []docset.Docset{{ID: "python", RootPath: root, Enabled: true}}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	sub := filepath.Join(root, "api")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// Give the event loop a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "ref.md"), []byte("## R\n\ntext\n"), 0o644))

	batches := waitForBatches(t, rec, 1)
	assert.Contains(t, batches[len(batches)-1], "python")
}

func TestWatcher_MultipleDocsetsRebuildIndependently(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	docsets := []docset.Docset{
		{ID: "python", RootPath: rootA, Enabled: true},
		{ID: "postgres", RootPath: rootB, Enabled: true},
		{ID: "legacy", RootPath: t.TempDir(), Enabled: false},
	}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	require.NoError(t, os.WriteFile(filepath.Join(rootB, "vacuum.md"), []byte("## V\n\ntext\n"), 0o644))

	batches := waitForBatches(t, rec, 1)
	assert.Equal(t, []string{"postgres"}, batches[0])
}

func TestWatcher_DeleteTriggersRebuild(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.md")
	require.NoError(t, os.WriteFile(path, []byte("## G\n\ntext\n"), 0o644))

	docsets := []docset.Docset{{ID: "python", RootPath: root, Enabled: true}}
	rec := &rebuildRecorder{}
	startWatcher(t, docsets, rec)

	require.NoError(t, os.Remove(path))

	batches := waitForBatches(t, rec, 1)
	assert.Equal(t, []string{"python"}, batches[0])
}
