package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/internal/watcher"
)

// TestWatcher_FileChangeReachesSearch covers the serve path: a file
// write under a docset root flows through the watcher into a rebuild,
// and the new content becomes searchable.
func TestWatcher_FileChangeReachesSearch(t *testing.T) {
	cfg, dir := newProject(t)
	manager := newReadyManager(t, cfg)
	ctx := context.Background()

	w, err := watcher.New(manager.Docsets(), 50*time.Millisecond, func(ctx context.Context, ids []string) error {
		_, err := manager.Reindex(ctx, ids)
		return err
	})
	require.NoError(t, err)
	w.Start(ctx)
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "python", "descriptors.md"), []byte(`# Descriptors

## Protocol

Descriptors customize attribute access through __get__ and __set__.
`), 0o644))

	require.Eventually(t, func() bool {
		resp, err := manager.Search(ctx, indexer.SearchRequest{
			Query:   "descriptors customize attribute access",
			Docsets: []string{"python"},
			TopK:    5,
		})
		if err != nil {
			return false
		}
		for _, r := range resp.Results {
			if filepath.Base(r.FilePath) == "descriptors.md" {
				return true
			}
		}
		return false
	}, 10*time.Second, 50*time.Millisecond, "watcher should trigger a rebuild that indexes the new file")
}
