// Package indexer orchestrates the index lifecycle: startup restore
// from snapshot, per-docset builds, coalesced rebuilds, and atomic
// swaps of the searchable state. The manager is the single entry point
// the server uses for search, open, and reindex.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/docset"
	"github.com/docdex/docdex/internal/embed"
	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/index"
	"github.com/docdex/docdex/internal/refs"
	"github.com/docdex/docdex/internal/router"
	"github.com/docdex/docdex/internal/search"
	"github.com/docdex/docdex/internal/snapshot"
)

// SnapshotFileName is the snapshot file under the data directory.
const SnapshotFileName = "snapshot.gob"

// SearchRequest is one search call against the managed indexes.
type SearchRequest struct {
	// Query is the search text.
	Query string
	// Docsets, when non-empty, restricts the search to exactly these
	// docset ids and bypasses routing.
	Docsets []string
	// SourceHint is an optional docset id the caller believes is right.
	SourceHint string
	// Dependencies are project dependency names used as routing signals.
	Dependencies []string
	// TopK is the result count; 0 uses the configured default.
	TopK int
}

// SearchResponse carries the ranked results plus the routing decision
// that selected the docsets.
type SearchResponse struct {
	Results []search.Result `json:"results"`
	Routing router.Decision `json:"routing"`
}

// SectionView is the full payload returned when a doc ref is opened:
// the whole section the referenced chunk belongs to.
type SectionView struct {
	DocRef      string   `json:"doc_ref"`
	DocsetID    string   `json:"docset_id"`
	Title       string   `json:"title"`
	HeadingPath []string `json:"heading_path"`
	FilePath    string   `json:"file_path"`
	Anchor      string   `json:"anchor"`
	URL         string   `json:"url"`
	Text        string   `json:"text"`
	CodeBlocks  []string `json:"code_blocks"`
	Assets      []string `json:"assets"`
	Version     string   `json:"version,omitempty"`
}

// DocsetStatus reports one docset's index state.
type DocsetStatus struct {
	ID        string    `json:"docset_id"`
	Enabled   bool      `json:"enabled"`
	Indexed   bool      `json:"indexed"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	BuiltAt   time.Time `json:"built_at,omitzero"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Manager owns the per-docset indexes and serializes their lifecycle.
// Reads (search, open) see a consistent map under a read lock while
// rebuilds prepare replacement indexes off to the side.
type Manager struct {
	cfg         *config.Config
	docsets     []docset.Docset
	embedder    embed.Embedder
	builder     *index.Builder
	router      *router.Router
	engine      *search.Engine
	snapshots   *snapshot.Store
	fingerprint string

	mu        sync.RWMutex
	indexes   map[string]*index.DocsetIndex
	buildErrs map[string]string

	rebuilds singleflight.Group
}

// New creates a manager from configuration: loads the registry, starts
// the embedding provider, and computes the snapshot fingerprint. No
// indexes are built yet; call EnsureReady.
func New(ctx context.Context, cfg *config.Config) (*Manager, error) {
	docsets, err := docset.LoadRegistry(cfg.Paths.DocsetsFile)
	if err != nil {
		return nil, err
	}

	embedder, err := embed.New(ctx, embed.Options{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.OllamaHost,
		Dimensions: cfg.Embeddings.Dimensions,
		BatchSize:  cfg.Embeddings.BatchSize,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
	if err != nil {
		return nil, err
	}

	chunkOpts := chunk.Options{
		MaxWords:     cfg.Chunking.MaxWords,
		OverlapWords: cfg.Chunking.OverlapWords,
	}

	m := &Manager{
		cfg:      cfg,
		docsets:  docsets,
		embedder: embedder,
		builder:  index.NewBuilder(chunkOpts, embedder),
		router:   router.New(cfg.Router.MaxDocsets),
		engine: search.NewEngine(embedder, search.Options{
			BM25TopK:      cfg.Search.BM25TopK,
			VectorTopK:    cfg.Search.VectorTopK,
			TopK:          cfg.Search.FinalTopK,
			LexicalWeight: cfg.Search.LexicalWeight,
			VectorWeight:  cfg.Search.VectorWeight,
			CacheSize:     cfg.Search.CacheSize,
		}),
		indexes:   make(map[string]*index.DocsetIndex),
		buildErrs: make(map[string]string),
	}

	if cfg.Paths.SnapshotEnabled {
		m.snapshots = snapshot.NewStore(filepath.Join(cfg.Paths.DataDir, SnapshotFileName))
		fp, err := snapshot.Fingerprint(cfg.Paths.DocsetsFile, embedder.ModelName(), chunkOpts)
		if err != nil {
			embedder.Close()
			return nil, dexerrors.InternalError("failed to fingerprint configuration", err)
		}
		m.fingerprint = fp
	}

	return m, nil
}

// EnsureReady brings every enabled docset to a searchable state. A
// valid snapshot is restored as-is; a stale or corrupt one is discarded
// with a warning. Docsets still missing afterwards are built when
// auto-indexing is on.
func (m *Manager) EnsureReady(ctx context.Context) error {
	if m.snapshots != nil {
		restored, err := m.snapshots.Load(m.fingerprint)
		switch {
		case err == nil && restored != nil:
			m.mu.Lock()
			m.indexes = restored
			m.mu.Unlock()
		case dexerrors.GetCode(err) == dexerrors.ErrCodeSnapshotMismatch:
			slog.Warn("index_snapshot_stale", slog.String("path", m.snapshots.Path()))
			if !m.cfg.Paths.AutoIndexOnStartup {
				return err
			}
		case dexerrors.GetCode(err) == dexerrors.ErrCodeSnapshotCorrupt:
			slog.Warn("index_snapshot_corrupt",
				slog.String("path", m.snapshots.Path()),
				slog.String("error", err.Error()))
			if !m.cfg.Paths.AutoIndexOnStartup {
				return err
			}
		case err != nil:
			return err
		}
	}

	var missing []docset.Docset
	m.mu.RLock()
	for _, ds := range docset.Enabled(m.docsets) {
		if _, ok := m.indexes[ds.ID]; !ok {
			missing = append(missing, ds)
		}
	}
	m.mu.RUnlock()

	if len(missing) == 0 {
		return nil
	}
	if !m.cfg.Paths.AutoIndexOnStartup {
		ids := make([]string, len(missing))
		for i, ds := range missing {
			ids[i] = ds.ID
		}
		slog.Warn("docsets_not_indexed", slog.String("docsets", strings.Join(ids, ",")))
		return nil
	}

	m.buildDocsets(ctx, missing)
	m.saveSnapshot()
	return nil
}

// Reindex rebuilds the named docsets, or every enabled docset when ids
// is empty. Concurrent calls coalesce per docset: at most one build runs
// for a given docset at a time, even when the calls name different
// target sets. The previous indexes keep serving searches until the
// replacements are ready; a failed build leaves its docset's old index
// in place.
func (m *Manager) Reindex(ctx context.Context, ids []string) ([]DocsetStatus, error) {
	targets, err := m.resolveTargets(ids)
	if err != nil {
		return nil, err
	}

	for _, ds := range targets {
		_, _, shared := m.rebuilds.Do(ds.ID, func() (any, error) {
			m.buildDocset(ctx, ds)
			return nil, nil
		})
		if shared {
			slog.Debug("reindex_coalesced", slog.String("docset", ds.ID))
		}
	}
	m.saveSnapshot()

	out := make([]DocsetStatus, 0, len(targets))
	for _, ds := range targets {
		out = append(out, m.status(ds))
	}
	return out, nil
}

func (m *Manager) resolveTargets(ids []string) ([]docset.Docset, error) {
	if len(ids) == 0 {
		return docset.Enabled(m.docsets), nil
	}
	targets := make([]docset.Docset, 0, len(ids))
	for _, id := range ids {
		ds, ok := docset.ByID(m.docsets, id)
		if !ok || !ds.Enabled {
			return nil, dexerrors.UnknownDocset(id)
		}
		targets = append(targets, ds)
	}
	return targets, nil
}

// buildDocsets builds each docset and swaps successes in one at a time.
func (m *Manager) buildDocsets(ctx context.Context, targets []docset.Docset) {
	for _, ds := range targets {
		m.buildDocset(ctx, ds)
	}
}

// buildDocset builds one docset and swaps the result in. A failure is
// recorded and never disturbs the live index. The replaced index is not
// closed here: an in-flight search may still hold it, and both index
// sides live entirely in memory, so dropping the reference is enough.
func (m *Manager) buildDocset(ctx context.Context, ds docset.Docset) {
	ix, err := m.builder.Build(ctx, ds)
	if err != nil {
		slog.Error("docset_index_failed",
			slog.String("docset", ds.ID),
			slog.String("error", err.Error()))
		m.mu.Lock()
		m.buildErrs[ds.ID] = err.Error()
		m.mu.Unlock()
		return
	}

	m.mu.Lock()
	m.indexes[ds.ID] = ix
	delete(m.buildErrs, ds.ID)
	m.mu.Unlock()
}

func (m *Manager) saveSnapshot() {
	if m.snapshots == nil {
		return
	}
	m.mu.RLock()
	live := make(map[string]*index.DocsetIndex, len(m.indexes))
	for id, ix := range m.indexes {
		live[id] = ix
	}
	m.mu.RUnlock()

	if err := m.snapshots.Save(m.fingerprint, live); err != nil {
		slog.Warn("snapshot_save_failed", slog.String("error", err.Error()))
	}
}

// Search routes the query to docsets and runs the hybrid engine over
// their indexes.
func (m *Manager) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	decision, err := m.router.Route(m.docsets, router.Request{
		Query:        req.Query,
		Filter:       req.Docsets,
		SourceHint:   req.SourceHint,
		Dependencies: req.Dependencies,
	})
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	selected := make([]*index.DocsetIndex, 0, len(decision.SelectedDocsets))
	for _, id := range decision.SelectedDocsets {
		ix, ok := m.indexes[id]
		if !ok {
			slog.Warn("docset_not_indexed", slog.String("docset", id))
			continue
		}
		selected = append(selected, ix)
	}
	m.mu.RUnlock()

	results, err := m.engine.Search(ctx, selected, req.Query, req.TopK)
	if err != nil {
		return nil, err
	}

	slog.Debug("search_served",
		slog.String("routing", decision.Describe()),
		slog.Int("results", len(results)))

	return &SearchResponse{Results: results, Routing: decision}, nil
}

// Open resolves a doc ref from a previous search result to the full
// section it belongs to.
func (m *Manager) Open(docRef string) (*SectionView, error) {
	ref, err := refs.ParseDocRef(docRef)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	ix, ok := m.indexes[ref.Section.DocsetID]
	m.mu.RUnlock()
	if !ok {
		return nil, dexerrors.UnknownReference(docRef)
	}
	if _, ok := ix.Chunk(docRef); !ok {
		return nil, dexerrors.UnknownReference(docRef)
	}
	section, ok := ix.SectionFor(ref)
	if !ok {
		return nil, dexerrors.UnknownReference(docRef)
	}

	title := section.Title()
	if title == "" {
		title = "Untitled"
	}
	absPath := filepath.Join(ix.Docset.RootPath, filepath.FromSlash(section.Ref.FilePath))
	codeBlocks := section.CodeBlocks
	if codeBlocks == nil {
		codeBlocks = []string{}
	}
	assets := make([]string, 0, len(section.Assets))
	for _, asset := range section.Assets {
		if asset.Path != "" {
			assets = append(assets, asset.Path)
		}
	}

	return &SectionView{
		DocRef:      docRef,
		DocsetID:    ix.Docset.ID,
		Title:       title,
		HeadingPath: section.HeadingPath,
		FilePath:    section.Ref.FilePath,
		Anchor:      section.Ref.Anchor,
		URL:         "file://" + absPath + section.Ref.Anchor,
		Text:        section.Text,
		CodeBlocks:  codeBlocks,
		Assets:      assets,
		Version:     ix.Docset.Version,
	}, nil
}

// AssetPath resolves a docset-relative asset path to an absolute file
// path, rejecting traversal and missing files.
func (m *Manager) AssetPath(docsetID, relativePath string) (string, error) {
	ds, ok := docset.ByID(m.docsets, docsetID)
	if !ok || !ds.Enabled {
		return "", dexerrors.UnknownDocset(docsetID)
	}

	abs, err := docset.SafeResolve(ds.RootPath, relativePath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", dexerrors.UnknownReference(fmt.Sprintf("%s|%s", docsetID, relativePath))
	}
	return abs, nil
}

// ReadAsset returns the raw bytes of an asset under a docset root.
// Traversal and missing-file failures come from AssetPath.
func (m *Manager) ReadAsset(docsetID, relativePath string) ([]byte, error) {
	abs, err := m.AssetPath(docsetID, relativePath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, dexerrors.UnknownReference(fmt.Sprintf("%s|%s", docsetID, relativePath))
	}
	return data, nil
}

// ListDocsets reports the index state of every registered docset.
func (m *Manager) ListDocsets() []DocsetStatus {
	out := make([]DocsetStatus, 0, len(m.docsets))
	for _, ds := range m.docsets {
		out = append(out, m.status(ds))
	}
	return out
}

func (m *Manager) status(ds docset.Docset) DocsetStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := DocsetStatus{
		ID:      ds.ID,
		Enabled: ds.Enabled,
		Version: ds.Version,
		Error:   m.buildErrs[ds.ID],
	}
	if ix, ok := m.indexes[ds.ID]; ok {
		st.Indexed = true
		st.Documents = ix.DocumentCount
		st.Chunks = ix.ChunkCount()
		st.BuiltAt = ix.BuiltAt
	}
	return st
}

// Docsets returns the registry entries the manager was created with.
func (m *Manager) Docsets() []docset.Docset {
	return m.docsets
}

// Close releases every index and the embedding provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	indexes := m.indexes
	m.indexes = make(map[string]*index.DocsetIndex)
	m.mu.Unlock()

	var firstErr error
	for _, ix := range indexes {
		if err := ix.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := m.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
