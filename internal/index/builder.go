package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/docset"
	"github.com/docdex/docdex/internal/embed"
	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/normalize"
	"github.com/docdex/docdex/internal/store"
)

// Builder runs the full pipeline for one docset: walk files, normalize
// into sections, chunk, embed, and load both indexes.
type Builder struct {
	chunkOpts chunk.Options
	embedder  embed.Embedder
}

// NewBuilder creates a builder using the given chunking parameters and
// embedder.
func NewBuilder(chunkOpts chunk.Options, embedder embed.Embedder) *Builder {
	return &Builder{
		chunkOpts: chunkOpts,
		embedder:  embedder,
	}
}

// Build indexes a docset from its files on disk. Files that fail to
// parse are skipped with a warning so one bad file cannot sink the
// whole docset.
func (b *Builder) Build(ctx context.Context, ds docset.Docset) (*DocsetIndex, error) {
	started := time.Now()

	files, err := docset.ListFiles(ds.RootPath)
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeIndexBuild,
			fmt.Sprintf("failed to list files for docset %s", ds.ID), err)
	}

	sections := make(map[string]normalize.Section)
	var chunks []chunk.Chunk

	docCount := 0
	for _, relPath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(filepath.Join(ds.RootPath, filepath.FromSlash(relPath)))
		if err != nil {
			slog.Warn("doc_read_failed",
				slog.String("docset", ds.ID),
				slog.String("path", relPath),
				slog.String("error", err.Error()))
			continue
		}

		docSections, err := normalize.Document(ds.ID, relPath, data)
		if err != nil {
			slog.Warn("doc_parse_failed",
				slog.String("docset", ds.ID),
				slog.String("path", relPath),
				slog.String("error", err.Error()))
			continue
		}
		docCount++

		for _, section := range docSections {
			sections[section.Ref.String()] = section
			chunks = append(chunks, chunk.Section(section.Ref, section.Text, b.chunkOpts)...)
		}
	}

	embeddings, err := b.embedChunks(ctx, sections, chunks)
	if err != nil {
		return nil, err
	}

	ix, err := assemble(ds, sections, chunks, embeddings, b.embedder.ModelName(), docCount, time.Now())
	if err != nil {
		return nil, err
	}

	slog.Info("docset_indexed",
		slog.String("docset", ds.ID),
		slog.Int("documents", docCount),
		slog.Int("sections", len(sections)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("elapsed", time.Since(started)))

	return ix, nil
}

// embedChunks produces one embedding per chunk, feeding the provider
// heading context and nearby code along with the chunk text.
func (b *Builder) embedChunks(ctx context.Context, sections map[string]normalize.Section, chunks []chunk.Chunk) (map[string][]float32, error) {
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		section := sections[c.Ref.Section.String()]
		inputs[i] = embed.BuildInput(section.HeadingPath, c.Text, section.CodeBlocks)
	}

	vectors, err := b.embedder.EmbedBatch(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, dexerrors.EmbeddingProvider(b.embedder.ModelName(),
			fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(vectors)))
	}

	embeddings := make(map[string][]float32, len(chunks))
	for i, c := range chunks {
		embeddings[c.Ref.String()] = vectors[i]
	}
	return embeddings, nil
}

// Restore rebuilds a DocsetIndex from snapshot data without touching
// the embedding provider. The BM25 and HNSW indexes are reconstructed
// in memory from the stored chunks and embeddings.
func Restore(ds docset.Docset, sections map[string]normalize.Section, chunks []chunk.Chunk, embeddings map[string][]float32, modelName string, documentCount int, builtAt time.Time) (*DocsetIndex, error) {
	return assemble(ds, sections, chunks, embeddings, modelName, documentCount, builtAt)
}

func assemble(ds docset.Docset, sections map[string]normalize.Section, chunks []chunk.Chunk, embeddings map[string][]float32, modelName string, documentCount int, builtAt time.Time) (*DocsetIndex, error) {
	bm25, err := store.NewBleveBM25Index(store.DefaultBM25Config())
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeIndexBuild, "failed to create keyword index", err)
	}

	// Keyword documents carry the same heading context and nearby code as
	// the embedding input, so section titles and API names in code are
	// lexically findable, not just semantically.
	docs := make([]*store.Document, 0, len(chunks))
	for _, c := range chunks {
		section := sections[c.Ref.Section.String()]
		docs = append(docs, &store.Document{
			ID:      c.Ref.String(),
			Content: embed.BuildInput(section.HeadingPath, c.Text, section.CodeBlocks),
		})
	}
	if err := bm25.Index(context.Background(), docs); err != nil {
		bm25.Close()
		return nil, dexerrors.New(dexerrors.ErrCodeIndexBuild, "failed to load keyword index", err)
	}

	vectors, err := buildVectorStore(chunks, embeddings)
	if err != nil {
		bm25.Close()
		return nil, err
	}

	chunkByRef := make(map[string]chunk.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByRef[c.Ref.String()] = c
	}

	return &DocsetIndex{
		Docset:        ds,
		Sections:      sections,
		Chunks:        chunks,
		Embeddings:    embeddings,
		BM25:          bm25,
		Vectors:       vectors,
		ModelName:     modelName,
		DocumentCount: documentCount,
		BuiltAt:       builtAt,
		Revision:      newRevision(ds.ID, builtAt),
		chunkByRef:    chunkByRef,
	}, nil
}

func buildVectorStore(chunks []chunk.Chunk, embeddings map[string][]float32) (store.VectorStore, error) {
	dims := 0
	for _, vec := range embeddings {
		if len(vec) > 0 {
			dims = len(vec)
			break
		}
	}
	if dims == 0 {
		// No chunks or all-empty embeddings: keep a minimal store so
		// the vector side degrades to empty results.
		dims = 1
	}

	vs, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(dims))
	if err != nil {
		return nil, dexerrors.New(dexerrors.ErrCodeIndexBuild, "failed to create vector index", err)
	}

	ids := make([]string, 0, len(chunks))
	vecs := make([][]float32, 0, len(chunks))
	for _, c := range chunks {
		ref := c.Ref.String()
		vec, ok := embeddings[ref]
		if !ok || len(vec) != dims {
			continue
		}
		ids = append(ids, ref)
		vecs = append(vecs, vec)
	}

	if err := vs.Add(context.Background(), ids, vecs); err != nil {
		vs.Close()
		return nil, dexerrors.New(dexerrors.ErrCodeIndexBuild, "failed to load vector index", err)
	}
	return vs, nil
}
