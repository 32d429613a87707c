// Package store holds the per-docset retrieval indexes: a Bleve-backed
// BM25 keyword index and an HNSW vector index. Both are keyed by the
// chunk's doc ref string so results from either side can be merged.
package store

import (
	"context"
	"fmt"
)

// Document is one chunk prepared for keyword indexing.
type Document struct {
	ID      string // doc ref string
	Content string
}

// BM25Result is a single keyword search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats reports BM25 index size.
type IndexStats struct {
	DocumentCount int
}

// BM25Index provides keyword search over chunk text.
type BM25Index interface {
	// Index adds documents to the index.
	Index(ctx context.Context, docs []*Document) error

	// Search returns documents matching query, scored by BM25.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)

	// Delete removes documents from the index.
	Delete(ctx context.Context, docIDs []string) error

	// AllIDs returns every document ID in the index.
	AllIDs() ([]string, error)

	// Stats returns index statistics.
	Stats() *IndexStats

	Close() error
}

// BM25Config configures keyword indexing.
type BM25Config struct {
	// StopWords are filtered out during tokenization.
	StopWords []string

	// MinTokenLength is the minimum token length to index (default: 2).
	MinTokenLength int
}

// DefaultBM25Config returns the default keyword index configuration.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// DefaultStopWords are high-frequency English words that carry no signal
// in documentation prose. API identifiers are never stop words.
var DefaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "can",
	"for", "from", "has", "have", "if", "in", "is", "it", "its",
	"of", "on", "or", "that", "the", "this", "to", "was", "we",
	"were", "which", "will", "with", "you",
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID       string  // doc ref string
	Distance float32 // lower is more similar (0-2 for cosine)
	Score    float32 // normalized similarity (0-1)
}

// VectorStoreConfig configures the HNSW vector index.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimension. All vectors must match.
	Dimensions int

	// Metric is the distance metric: "cos" (cosine) or "l2" (default: "cos").
	Metric string

	// M is HNSW max connections per layer (default: 16).
	M int

	// EfSearch is HNSW query-time search width (default: 64).
	EfSearch int
}

// DefaultVectorStoreConfig returns sensible HNSW defaults for the given
// embedding dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		Metric:     "cos",
		M:          16,
		EfSearch:   64,
	}
}

// VectorStore provides approximate nearest-neighbor search over chunk
// embeddings.
type VectorStore interface {
	// Add inserts vectors with their IDs. If an ID exists, it is replaced.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Search finds k nearest neighbors to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)

	// Delete removes vectors by ID.
	Delete(ctx context.Context, ids []string) error

	// AllIDs returns every vector ID in the store.
	AllIDs() []string

	// Contains checks if an ID exists.
	Contains(id string) bool

	// Count returns the number of vectors.
	Count() int

	// Save persists the index to path atomically.
	Save(path string) error

	// Load restores the index from path.
	Load(path string) error

	Close() error
}

// ErrDimensionMismatch indicates a vector whose dimension does not match
// the store's configured dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
