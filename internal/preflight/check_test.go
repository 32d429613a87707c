package preflight

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	docsRoot := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsRoot, "guide.md"),
		[]byte("# Guide\n\nSome content.\n"), 0o644))

	registry := filepath.Join(dir, "docsets.toml")
	require.NoError(t, os.WriteFile(registry, []byte(fmt.Sprintf(`[[docsets]]
docset_id = "guide"
root_path = %q
`, docsRoot)), 0o644))

	cfg := config.NewConfig()
	cfg.Paths.DocsetsFile = registry
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Embeddings.Provider = "static"
	return cfg
}

func TestCheckRegistry_Pass(t *testing.T) {
	c := New(newTestConfig(t))

	result := c.CheckRegistry()
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "1 docsets enabled")
}

func TestCheckRegistry_MissingFile(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Paths.DocsetsFile = filepath.Join(t.TempDir(), "nope.toml")
	c := New(cfg)

	result := c.CheckRegistry()
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestCheckRegistry_EmptyDocsetWarns(t *testing.T) {
	cfg := newTestConfig(t)
	emptyRoot := t.TempDir()
	require.NoError(t, os.WriteFile(cfg.Paths.DocsetsFile, []byte(fmt.Sprintf(`[[docsets]]
docset_id = "empty"
root_path = %q
`, emptyRoot)), 0o644))
	c := New(cfg)

	result := c.CheckRegistry()
	assert.Equal(t, StatusWarn, result.Status)
	assert.Contains(t, result.Details, "empty")
}

func TestCheckDataDir(t *testing.T) {
	cfg := newTestConfig(t)
	c := New(cfg)

	result := c.CheckDataDir()
	assert.Equal(t, StatusPass, result.Status)
	assert.DirExists(t, cfg.Paths.DataDir)
}

func TestCheckDiskSpace(t *testing.T) {
	c := New(newTestConfig(t))

	result := c.CheckDiskSpace()
	assert.Equal(t, StatusPass, result.Status)
	assert.Contains(t, result.Message, "free")
}

func TestCheckEmbedder_Static(t *testing.T) {
	c := New(newTestConfig(t))

	result := c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusPass, result.Status)
}

func TestCheckEmbedder_OllamaUnreachable(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = "http://127.0.0.1:1"
	c := New(cfg)

	result := c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
}

func TestCheckEmbedder_AutoDetectDegradesToWarning(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Embeddings.Provider = ""
	cfg.Embeddings.OllamaHost = "http://127.0.0.1:1"
	c := New(cfg)

	result := c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.IsCritical())
	assert.Contains(t, result.Message, "static embeddings")
}

func TestCheckEmbedder_ModelMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"models":[{"name":"llama3:latest"}]}`)
	}))
	defer srv.Close()

	cfg := newTestConfig(t)
	cfg.Embeddings.Provider = "ollama"
	cfg.Embeddings.OllamaHost = srv.URL
	cfg.Embeddings.Model = "qwen3-embedding:0.6b"
	c := New(cfg)

	result := c.CheckEmbedder(context.Background())
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Details, "ollama pull")
}

func TestRunAll_AndSummary(t *testing.T) {
	c := New(newTestConfig(t))

	results := c.RunAll(context.Background())
	require.Len(t, results, 4)
	assert.False(t, c.HasCriticalFailures(results))
	assert.Equal(t, "ready", c.SummaryStatus(results))
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	c := New(newTestConfig(t), WithOutput(&buf), WithVerbose(true))

	c.PrintResults(c.RunAll(context.Background()))
	out := buf.String()
	assert.Contains(t, out, "Docdex System Check")
	assert.Contains(t, out, "[PASS] registry:")
	assert.Contains(t, out, "Status: ready")
}

func TestSummaryStatus_Failed(t *testing.T) {
	c := New(newTestConfig(t))
	results := []CheckResult{{Name: "registry", Status: StatusFail, Required: true}}
	assert.Equal(t, "failed", c.SummaryStatus(results))
	assert.True(t, c.HasCriticalFailures(results))
}
