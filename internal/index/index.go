// Package index builds and holds the per-docset retrieval state: the
// section tree, the chunk list, and the lexical and vector indexes over
// the chunks. A DocsetIndex is immutable once built; rebuilds produce a
// fresh value that the orchestrator swaps in atomically.
package index

import (
	"fmt"
	"time"

	"github.com/docdex/docdex/internal/chunk"
	"github.com/docdex/docdex/internal/docset"
	"github.com/docdex/docdex/internal/normalize"
	"github.com/docdex/docdex/internal/refs"
	"github.com/docdex/docdex/internal/store"
)

// DocsetIndex is the complete searchable state for one docset.
// All maps are keyed by ref strings (refs.SectionRef / refs.DocRef).
type DocsetIndex struct {
	// Docset is the registry entry this index was built from.
	Docset docset.Docset

	// Sections maps section ref strings to their sections.
	Sections map[string]normalize.Section

	// Chunks holds every chunk in build order.
	Chunks []chunk.Chunk

	// Embeddings maps doc ref strings to chunk embeddings, kept for
	// snapshot persistence so reloads skip the provider.
	Embeddings map[string][]float32

	// BM25 is the keyword index over the chunks.
	BM25 store.BM25Index

	// Vectors is the vector index over the chunk embeddings.
	Vectors store.VectorStore

	// ModelName is the embedding model the vectors were built with.
	ModelName string

	// DocumentCount is the number of source files indexed.
	DocumentCount int

	// BuiltAt is when the build finished.
	BuiltAt time.Time

	// Revision uniquely identifies this build, used as a search cache
	// key component so stale cached results die with the old index.
	Revision string

	chunkByRef map[string]chunk.Chunk
}

// Section returns the section for a section ref string.
func (ix *DocsetIndex) Section(refStr string) (normalize.Section, bool) {
	s, ok := ix.Sections[refStr]
	return s, ok
}

// Chunk returns the chunk for a doc ref string.
func (ix *DocsetIndex) Chunk(refStr string) (chunk.Chunk, bool) {
	c, ok := ix.chunkByRef[refStr]
	return c, ok
}

// SectionFor resolves a doc ref to its owning section.
func (ix *DocsetIndex) SectionFor(ref refs.DocRef) (normalize.Section, bool) {
	return ix.Section(ref.Section.String())
}

// ChunkCount returns the number of chunks in the index.
func (ix *DocsetIndex) ChunkCount() int {
	return len(ix.Chunks)
}

// Close releases the underlying indexes.
func (ix *DocsetIndex) Close() error {
	var firstErr error
	if ix.BM25 != nil {
		if err := ix.BM25.Close(); err != nil {
			firstErr = err
		}
	}
	if ix.Vectors != nil {
		if err := ix.Vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newRevision stamps a build. Time-based, so every rebuild invalidates
// cached search results even when content is unchanged.
func newRevision(docsetID string, builtAt time.Time) string {
	return fmt.Sprintf("%s@%d", docsetID, builtAt.UnixNano())
}
