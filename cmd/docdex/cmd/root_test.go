package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/indexer"
	"github.com/docdex/docdex/pkg/version"
)

// writeProject lays out a minimal project: docdex.yaml, docsets.toml,
// and one docset with real documents.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	docsRoot := filepath.Join(dir, "docs", "python")
	require.NoError(t, os.MkdirAll(docsRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsRoot, "asyncio.md"),
		[]byte("## Event Loops\n\nThe event loop runs asynchronous callbacks and coroutines.\n\n```python\nloop = asyncio.get_event_loop()\n```\n"), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docsets.toml"), []byte(`[[docsets]]
docset_id = "python"
root_path = "docs/python"
keywords = ["asyncio"]
version = "3.12"
`), 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docdex.yaml"), []byte(fmt.Sprintf(`paths:
  docsets_file: docsets.toml
  data_dir: %q
  auto_index_on_startup: true
  snapshot_enabled: false
embeddings:
  provider: static
`, filepath.Join(dir, "data"))), 0o644))

	return dir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCmd_HelpListsCommands(t *testing.T) {
	out, err := runCommand(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"init", "serve", "search", "open", "asset", "reindex", "docsets", "doctor", "logs", "version"} {
		assert.Contains(t, out, name)
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.Contains(t, out, version.Version)

	out, err = runCommand(t, "version", "--json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestSearchCmd_TextOutput(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "search", "event loop coroutines")
	require.NoError(t, err)
	assert.Contains(t, out, "[python]")
	assert.Contains(t, out, "Event Loops")
	assert.Contains(t, out, "ref: python|")
}

func TestSearchCmd_JSONOutput(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "search", "event loop", "--format", "json")
	require.NoError(t, err)

	var resp indexer.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "python", resp.Results[0].DocsetID)
	assert.NotEmpty(t, resp.Results[0].DocRef)
}

func TestOpenCmd_ResolvesSearchRef(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "search", "event loop", "--format", "json")
	require.NoError(t, err)
	var resp indexer.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Results)

	out, err = runCommand(t, "--dir", dir, "open", resp.Results[0].DocRef, "--json")
	require.NoError(t, err)
	var view indexer.SectionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Event Loops", view.Title)
	assert.Contains(t, view.Text, "event loop")
}

func TestOpenCmd_UnknownRefFails(t *testing.T) {
	dir := writeProject(t)

	_, err := runCommand(t, "--dir", dir, "open", "python|missing.md|#x|0")
	require.Error(t, err)
}

func TestReindexCmd(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "python")
	assert.Contains(t, out, "documents")
}

func TestDocsetsCmd(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "docsets")
	require.NoError(t, err)
	assert.Contains(t, out, "python (3.12)")
	assert.Contains(t, out, "documents")
}

func TestDocsetsCmd_JSON(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "docsets", "--json")
	require.NoError(t, err)
	var statuses []indexer.DocsetStatus
	require.NoError(t, json.Unmarshal([]byte(out), &statuses))
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Indexed)
}

func TestAssetCmd(t *testing.T) {
	dir := writeProject(t)

	out, err := runCommand(t, "--dir", dir, "asset", "python", "asyncio.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Event Loops")

	_, err = runCommand(t, "--dir", dir, "asset", "python", "../docdex.yaml")
	require.Error(t, err)
}

func TestSearchCmd_MissingRegistryFails(t *testing.T) {
	_, err := runCommand(t, "--dir", t.TempDir(), "search", "anything")
	require.Error(t, err)
}
