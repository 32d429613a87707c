// Package embed generates vector embeddings for chunk text. An Ollama
// provider is used when one is reachable; otherwise a deterministic
// hash-based embedder keeps the vector side of search functional
// offline.
package embed

import (
	"context"
	"math"
	"strings"
	"time"
)

const (
	// DefaultBatchSize is the batch size for provider requests.
	DefaultBatchSize = 32

	// DefaultRequestTimeout bounds a single embedding request.
	DefaultRequestTimeout = 60 * time.Second

	// StaticDimensions is the dimension of the hash-based embedder.
	StaticDimensions = 256

	// MaxInputBytes caps the text sent to a provider per chunk. Longer
	// inputs are truncated, never rejected.
	MaxInputBytes = 4000
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available checks if the embedder is ready.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// BuildInput assembles the text embedded for one chunk: the heading path
// for context, the chunk text, and up to two code blocks from the
// section. The result is capped at MaxInputBytes.
func BuildInput(headingPath []string, chunkText string, codeBlocks []string) string {
	var parts []string
	if len(headingPath) > 0 {
		parts = append(parts, strings.Join(headingPath, " > "))
	}
	if chunkText != "" {
		parts = append(parts, chunkText)
	}
	for i, block := range codeBlocks {
		if i >= 2 {
			break
		}
		parts = append(parts, block)
	}

	input := strings.Join(parts, "\n\n")
	if len(input) > MaxInputBytes {
		input = input[:MaxInputBytes]
	}
	return input
}

// normalizeVector returns a unit-length copy of v. Zero vectors are
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
