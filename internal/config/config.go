// Package config loads docdex runtime settings.
//
// Settings are applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/docdex/config.yaml)
//  3. Project config (docdex.yaml in the working directory)
//  4. Environment variables (DOCDEX_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete docdex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Paths      PathsConfig      `yaml:"paths" json:"paths"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Router     RouterConfig     `yaml:"router" json:"router"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Watcher    WatcherConfig    `yaml:"watcher" json:"watcher"`
}

// PathsConfig locates the docset registry and on-disk state.
type PathsConfig struct {
	// DocsetsFile is the path to the docsets.toml registry.
	DocsetsFile string `yaml:"docsets_file" json:"docsets_file"`
	// DataDir holds snapshots and other engine state.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// AutoIndexOnStartup builds missing indexes when the server starts.
	AutoIndexOnStartup bool `yaml:"auto_index_on_startup" json:"auto_index_on_startup"`
	// SnapshotEnabled persists built indexes to DataDir.
	SnapshotEnabled bool `yaml:"snapshot_enabled" json:"snapshot_enabled"`
}

// ChunkingConfig controls the word-window chunker.
type ChunkingConfig struct {
	// MaxWords is the chunk window size in words.
	MaxWords int `yaml:"max_words" json:"max_words"`
	// OverlapWords is how many words consecutive chunks share.
	OverlapWords int `yaml:"overlap_words" json:"overlap_words"`
}

// SearchConfig configures hybrid retrieval.
// LexicalWeight and VectorWeight must sum to 1.0.
type SearchConfig struct {
	// LexicalWeight is the weight of the BM25 score (0.0-1.0).
	LexicalWeight float64 `yaml:"lexical_weight" json:"lexical_weight"`
	// VectorWeight is the weight of the cosine similarity score (0.0-1.0).
	VectorWeight float64 `yaml:"vector_weight" json:"vector_weight"`
	// BM25TopK is the per-docset lexical over-fetch before merging.
	BM25TopK int `yaml:"bm25_top_k" json:"bm25_top_k"`
	// VectorTopK is the per-docset vector over-fetch before merging.
	VectorTopK int `yaml:"vector_top_k" json:"vector_top_k"`
	// FinalTopK is the default number of merged results returned.
	FinalTopK int `yaml:"final_top_k" json:"final_top_k"`
	// SnippetMaxChars truncates result snippets.
	SnippetMaxChars int `yaml:"snippet_max_chars" json:"snippet_max_chars"`
	// CacheSize is the number of memoized search responses.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or "" for auto-detect.
	Provider string `yaml:"provider" json:"provider"`
	// Model is the embedding model identifier.
	Model string `yaml:"model" json:"model"`
	// Dimensions is the vector width; 0 auto-detects from the provider.
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	// BatchSize is the number of texts per embedding request.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// OllamaHost is the Ollama API endpoint (default http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the number of query embeddings kept in the LRU cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// RouterConfig configures docset routing.
type RouterConfig struct {
	// MaxDocsets caps how many docsets a single query fans out to.
	MaxDocsets int `yaml:"max_docsets" json:"max_docsets"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// WatcherConfig configures the docset file watcher.
type WatcherConfig struct {
	// Enabled turns on automatic reindexing when docset files change.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Debounce is how long to wait after the last change before rebuilding.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// NewConfig creates a Config with the engine defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DocsetsFile:        "docsets.toml",
			DataDir:            defaultDataDir(),
			AutoIndexOnStartup: true,
			SnapshotEnabled:    true,
		},
		Chunking: ChunkingConfig{
			MaxWords:     280,
			OverlapWords: 60,
		},
		Search: SearchConfig{
			LexicalWeight:   0.45,
			VectorWeight:    0.55,
			BM25TopK:        20,
			VectorTopK:      20,
			FinalTopK:       8,
			SnippetMaxChars: 400,
			CacheSize:       128,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // auto-detect: Ollama when reachable, static otherwise
			Model:      "nomic-embed-text",
			Dimensions: 0,
			BatchSize:  32,
			OllamaHost: "",
			CacheSize:  1000,
		},
		Router: RouterConfig{
			MaxDocsets: 3,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Watcher: WatcherConfig{
			Enabled:  false,
			Debounce: "2s",
		},
	}
}

// defaultDataDir returns ~/.docdex/data, falling back to the temp directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".docdex", "data")
	}
	return filepath.Join(home, ".docdex", "data")
}

// GetUserConfigPath returns the path to the user configuration file,
// following the XDG Base Directory convention.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "docdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "docdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "docdex", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration rooted at the given directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// A relative docsets file is resolved against the project directory.
	if !filepath.IsAbs(cfg.Paths.DocsetsFile) {
		cfg.Paths.DocsetsFile = filepath.Join(dir, cfg.Paths.DocsetsFile)
	}

	return cfg, nil
}

// loadFromFile loads docdex.yaml or .docdex.yaml from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{"docdex.yaml", ".docdex.yaml", ".docdex.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DocsetsFile != "" {
		c.Paths.DocsetsFile = other.Paths.DocsetsFile
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	// Booleans default to false in YAML, so a file that sets paths at all
	// takes over the startup flags.
	if other.Paths.DocsetsFile != "" || other.Paths.DataDir != "" {
		c.Paths.AutoIndexOnStartup = other.Paths.AutoIndexOnStartup
		c.Paths.SnapshotEnabled = other.Paths.SnapshotEnabled
	}

	if other.Chunking.MaxWords != 0 {
		c.Chunking.MaxWords = other.Chunking.MaxWords
	}
	if other.Chunking.OverlapWords != 0 {
		c.Chunking.OverlapWords = other.Chunking.OverlapWords
	}

	if other.Search.LexicalWeight != 0 {
		c.Search.LexicalWeight = other.Search.LexicalWeight
	}
	if other.Search.VectorWeight != 0 {
		c.Search.VectorWeight = other.Search.VectorWeight
	}
	if other.Search.BM25TopK != 0 {
		c.Search.BM25TopK = other.Search.BM25TopK
	}
	if other.Search.VectorTopK != 0 {
		c.Search.VectorTopK = other.Search.VectorTopK
	}
	if other.Search.FinalTopK != 0 {
		c.Search.FinalTopK = other.Search.FinalTopK
	}
	if other.Search.SnippetMaxChars != 0 {
		c.Search.SnippetMaxChars = other.Search.SnippetMaxChars
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Router.MaxDocsets != 0 {
		c.Router.MaxDocsets = other.Router.MaxDocsets
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Watcher.Enabled {
		c.Watcher.Enabled = true
	}
	if other.Watcher.Debounce != "" {
		c.Watcher.Debounce = other.Watcher.Debounce
	}
}

// applyEnvOverrides applies DOCDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCDEX_DOCSETS_FILE"); v != "" {
		c.Paths.DocsetsFile = v
	}
	if v := os.Getenv("DOCDEX_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("DOCDEX_AUTO_INDEX"); v != "" {
		c.Paths.AutoIndexOnStartup = parseBool(v)
	}
	if v := os.Getenv("DOCDEX_SNAPSHOT_ENABLED"); v != "" {
		c.Paths.SnapshotEnabled = parseBool(v)
	}

	if v := os.Getenv("DOCDEX_LEXICAL_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.LexicalWeight = w
		}
	}
	if v := os.Getenv("DOCDEX_VECTOR_WEIGHT"); v != "" {
		if w, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && w >= 0 && w <= 1 {
			c.Search.VectorWeight = w
		}
	}

	if v := os.Getenv("DOCDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("DOCDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("DOCDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}

	if v := os.Getenv("DOCDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("DOCDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Chunking.MaxWords <= 0 {
		return fmt.Errorf("chunking.max_words must be positive, got %d", c.Chunking.MaxWords)
	}
	if c.Chunking.OverlapWords < 0 {
		return fmt.Errorf("chunking.overlap_words must be non-negative, got %d", c.Chunking.OverlapWords)
	}
	if c.Chunking.OverlapWords >= c.Chunking.MaxWords {
		return fmt.Errorf("chunking.overlap_words (%d) must be smaller than chunking.max_words (%d)",
			c.Chunking.OverlapWords, c.Chunking.MaxWords)
	}

	if c.Search.LexicalWeight < 0 || c.Search.LexicalWeight > 1 {
		return fmt.Errorf("search.lexical_weight must be between 0 and 1, got %f", c.Search.LexicalWeight)
	}
	if c.Search.VectorWeight < 0 || c.Search.VectorWeight > 1 {
		return fmt.Errorf("search.vector_weight must be between 0 and 1, got %f", c.Search.VectorWeight)
	}
	if sum := c.Search.LexicalWeight + c.Search.VectorWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("search.lexical_weight + search.vector_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.FinalTopK <= 0 {
		return fmt.Errorf("search.final_top_k must be positive, got %d", c.Search.FinalTopK)
	}

	if c.Router.MaxDocsets <= 0 {
		return fmt.Errorf("router.max_docsets must be positive, got %d", c.Router.MaxDocsets)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"ollama": true, "static": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s",
				c.Embeddings.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s",
			c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
