package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/docset"
	"github.com/docdex/docdex/internal/embed"
	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
)

func buildSnapshotIndex(t *testing.T, id string, files map[string]string) *index.DocsetIndex {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	b := index.NewBuilder(chunk.Options{MaxWords: 30, OverlapWords: 5}, embed.NewStaticEmbedder())
	ix, err := b.Build(context.Background(), docset.Docset{ID: id, RootPath: root, Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docsets.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFingerprint_StableForSameInputs(t *testing.T) {
	path := writeRegistry(t, "[[docsets]]\nid = \"python\"\n")
	opts := chunk.Options{MaxWords: 320, OverlapWords: 48}

	fp1, err := Fingerprint(path, "static", opts)
	require.NoError(t, err)
	fp2, err := Fingerprint(path, "static", opts)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 40) // sha1 hex
}

func TestFingerprint_ChangesWithInputs(t *testing.T) {
	path := writeRegistry(t, "[[docsets]]\nid = \"python\"\n")
	opts := chunk.Options{MaxWords: 320, OverlapWords: 48}

	base, err := Fingerprint(path, "static", opts)
	require.NoError(t, err)

	// Registry contents changed.
	require.NoError(t, os.WriteFile(path, []byte("[[docsets]]\nid = \"go\"\n"), 0o644))
	edited, err := Fingerprint(path, "static", opts)
	require.NoError(t, err)
	assert.NotEqual(t, base, edited)

	// Different embedding model.
	otherModel, err := Fingerprint(path, "nomic-embed-text", opts)
	require.NoError(t, err)
	assert.NotEqual(t, edited, otherModel)

	// Different chunk parameters.
	otherChunks, err := Fingerprint(path, "static", chunk.Options{MaxWords: 200, OverlapWords: 48})
	require.NoError(t, err)
	assert.NotEqual(t, edited, otherChunks)
}

func TestFingerprint_MissingRegistry(t *testing.T) {
	_, err := Fingerprint(filepath.Join(t.TempDir(), "missing.toml"), "static", chunk.Options{})
	require.Error(t, err)
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	ix := buildSnapshotIndex(t, "python", map[string]string{
		"json.md": "## Serialization\n\nThe json module converts objects to strings.\n",
	})
	s := NewStore(filepath.Join(t.TempDir(), "index", "snapshot.gob"))

	require.NoError(t, s.Save("fp-1", map[string]*index.DocsetIndex{"python": ix}))

	restored, err := s.Load("fp-1")
	require.NoError(t, err)
	require.Len(t, restored, 1)
	got := restored["python"]
	t.Cleanup(func() { _ = got.Close() })

	assert.Equal(t, ix.Revision, got.Revision)
	assert.Equal(t, ix.DocumentCount, got.DocumentCount)
	assert.Equal(t, ix.ChunkCount(), got.ChunkCount())
	assert.Equal(t, ix.ModelName, got.ModelName)

	// Both indexes are queryable again after restore.
	hits, err := got.BM25.Search(context.Background(), "serialization", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
	assert.Equal(t, len(ix.Chunks), got.Vectors.Count())
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "snapshot.gob"))
	restored, err := s.Load("fp-1")
	require.NoError(t, err)
	assert.Nil(t, restored)
}

func TestStore_LoadFreshDataDir(t *testing.T) {
	// On a first run the data dir does not exist until the first Save;
	// Load must report "no snapshot" without creating lock files in a
	// directory that is not there yet.
	dataDir := filepath.Join(t.TempDir(), "data")
	s := NewStore(filepath.Join(dataDir, "snapshot.gob"))

	restored, err := s.Load("fp-1")
	require.NoError(t, err)
	assert.Nil(t, restored)

	_, err = os.Stat(dataDir)
	assert.True(t, os.IsNotExist(err))
}

func TestStore_FingerprintMismatch(t *testing.T) {
	ix := buildSnapshotIndex(t, "python", map[string]string{
		"a.md": "## A\n\nWords.\n",
	})
	s := NewStore(filepath.Join(t.TempDir(), "snapshot.gob"))
	require.NoError(t, s.Save("fp-old", map[string]*index.DocsetIndex{"python": ix}))

	_, err := s.Load("fp-new")
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeSnapshotMismatch, dexerrors.GetCode(err))
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.gob")
	require.NoError(t, os.WriteFile(path, []byte("not a gob stream"), 0o644))

	_, err := NewStore(path).Load("fp-1")
	require.Error(t, err)
	assert.Equal(t, dexerrors.ErrCodeSnapshotCorrupt, dexerrors.GetCode(err))
}

func TestStore_SaveOverwritesAtomically(t *testing.T) {
	first := buildSnapshotIndex(t, "python", map[string]string{
		"a.md": "## A\n\nInitial words.\n",
	})
	second := buildSnapshotIndex(t, "go", map[string]string{
		"b.md": "## B\n\nReplacement words.\n",
	})
	s := NewStore(filepath.Join(t.TempDir(), "snapshot.gob"))

	require.NoError(t, s.Save("fp-1", map[string]*index.DocsetIndex{"python": first}))
	require.NoError(t, s.Save("fp-2", map[string]*index.DocsetIndex{"go": second}))

	restored, err := s.Load("fp-2")
	require.NoError(t, err)
	require.Len(t, restored, 1)
	require.Contains(t, restored, "go")
	_ = restored["go"].Close()

	// No temp file is left behind.
	_, err = os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err))
}
