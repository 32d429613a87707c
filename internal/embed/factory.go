package embed

import (
	"context"
	"log/slog"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

// Options selects and configures an embedding provider.
type Options struct {
	// Provider is "ollama", "static", or "" for auto-detection.
	Provider string

	// Model is the preferred model for provider-backed embedders.
	Model string

	// Host is the Ollama endpoint, empty for the default.
	Host string

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int

	// BatchSize for provider batch requests.
	BatchSize int

	// CacheSize is the embedding LRU size, 0 for the default.
	CacheSize int
}

// New creates an embedder for the given options, wrapped in an LRU
// cache. With an empty provider it auto-detects: Ollama when reachable,
// otherwise the static embedder.
func New(ctx context.Context, opts Options) (Embedder, error) {
	inner, err := newProvider(ctx, opts)
	if err != nil {
		return nil, err
	}

	slog.Info("embedder_ready",
		slog.String("model", inner.ModelName()),
		slog.Int("dimensions", inner.Dimensions()))

	return NewCachedEmbedder(inner, opts.CacheSize), nil
}

func newProvider(ctx context.Context, opts Options) (Embedder, error) {
	cfg := DefaultOllamaConfig()
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Model != "" {
		cfg.Model = opts.Model
	}
	if opts.Dimensions > 0 {
		cfg.Dimensions = opts.Dimensions
	}
	if opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	}

	switch opts.Provider {
	case "ollama":
		return NewOllamaEmbedder(ctx, cfg)

	case "static":
		return NewStaticEmbedder(), nil

	case "":
		embedder, err := NewOllamaEmbedder(ctx, cfg)
		if err == nil {
			return embedder, nil
		}
		slog.Info("ollama_unavailable_using_static",
			slog.String("error", err.Error()))
		return NewStaticEmbedder(), nil

	default:
		return nil, dexerrors.ConfigError("unknown embeddings provider: "+opts.Provider, nil)
	}
}
