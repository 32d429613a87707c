// Package search implements hybrid retrieval: keyword and vector
// searches run independently per docset, their candidates are unioned,
// and a weighted min-max blend produces the final ranking.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/embed"
	"github.com/docdex/docdex/internal/index"
)

// Defaults for the retrieval fan-out and blend.
const (
	DefaultBM25TopK      = 20
	DefaultVectorTopK    = 20
	DefaultTopK          = 8
	DefaultLexicalWeight = 0.45
	DefaultVectorWeight  = 0.55
	DefaultCacheSize     = 256

	snippetMaxWords  = 90
	snippetCodeChars = 1200
)

// Options configures the hybrid engine.
type Options struct {
	// BM25TopK is the keyword over-fetch per docset.
	BM25TopK int
	// VectorTopK is the vector over-fetch per docset.
	VectorTopK int
	// TopK is the default size of the final result list.
	TopK int
	// LexicalWeight and VectorWeight blend the normalized scores.
	// They should sum to 1.
	LexicalWeight float64
	VectorWeight  float64
	// CacheSize is the result cache capacity.
	CacheSize int
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return Options{
		BM25TopK:      DefaultBM25TopK,
		VectorTopK:    DefaultVectorTopK,
		TopK:          DefaultTopK,
		LexicalWeight: DefaultLexicalWeight,
		VectorWeight:  DefaultVectorWeight,
		CacheSize:     DefaultCacheSize,
	}
}

func (o Options) normalized() Options {
	if o.BM25TopK <= 0 {
		o.BM25TopK = DefaultBM25TopK
	}
	if o.VectorTopK <= 0 {
		o.VectorTopK = DefaultVectorTopK
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.LexicalWeight <= 0 && o.VectorWeight <= 0 {
		o.LexicalWeight = DefaultLexicalWeight
		o.VectorWeight = DefaultVectorWeight
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	return o
}

// Snippet is the preview attached to a result: truncated prose plus the
// section's first code block.
type Snippet struct {
	Text       string   `json:"text"`
	CodeBlocks []string `json:"code_blocks"`
}

// Result is one search hit.
type Result struct {
	DocRef      string   `json:"doc_ref"`
	DocsetID    string   `json:"docset_id"`
	Title       string   `json:"title"`
	HeadingPath []string `json:"heading_path"`
	FilePath    string   `json:"file_path"`
	Anchor      string   `json:"anchor"`
	URL         string   `json:"url"`
	Snippet     Snippet  `json:"snippet"`
	Score       float64  `json:"score"`
	Version     string   `json:"version,omitempty"`
}

// Engine runs hybrid searches over docset indexes. Results are cached
// per (query, indexes revisions, k), so an index swap naturally
// invalidates every cached entry for that docset.
type Engine struct {
	opts     Options
	embedder embed.Embedder
	cache    *lru.Cache[string, []Result]
}

// NewEngine creates a hybrid search engine using the given embedder for
// query vectors.
func NewEngine(embedder embed.Embedder, opts Options) *Engine {
	opts = opts.normalized()
	cache, _ := lru.New[string, []Result](opts.CacheSize)
	return &Engine{
		opts:     opts,
		embedder: embedder,
		cache:    cache,
	}
}

// candidate accumulates the best per-side scores for one doc ref.
type candidate struct {
	ix      *index.DocsetIndex
	docRef  string
	lexical float64
	vector  float64
	blended float64
}

// Search queries the selected docset indexes and returns the blended
// top-k results. k <= 0 uses the configured default.
func (e *Engine) Search(ctx context.Context, indexes []*index.DocsetIndex, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = e.opts.TopK
	}
	if strings.TrimSpace(query) == "" || len(indexes) == 0 {
		return []Result{}, nil
	}

	key := e.cacheKey(indexes, query, k)
	if cached, ok := e.cache.Get(key); ok {
		return cached, nil
	}

	queryVec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := e.gatherCandidates(ctx, indexes, query, queryVec)
	if err != nil {
		return nil, err
	}

	results := e.rerank(candidates, k)
	e.cache.Add(key, results)
	return results, nil
}

// gatherCandidates fans out to every selected index in parallel. Within
// one docset the keyword and vector searches also run independently.
func (e *Engine) gatherCandidates(ctx context.Context, indexes []*index.DocsetIndex, query string, queryVec []float32) (map[string]*candidate, error) {
	var mu sync.Mutex
	candidates := make(map[string]*candidate)

	merge := func(ix *index.DocsetIndex, docRef string, lexical, vector float64) {
		mu.Lock()
		defer mu.Unlock()
		existing, ok := candidates[docRef]
		if !ok {
			candidates[docRef] = &candidate{ix: ix, docRef: docRef, lexical: lexical, vector: vector}
			return
		}
		existing.lexical = max(existing.lexical, lexical)
		existing.vector = max(existing.vector, vector)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, ix := range indexes {
		g.Go(func() error {
			hits, err := ix.BM25.Search(gctx, query, e.opts.BM25TopK)
			if err != nil {
				return fmt.Errorf("keyword search in %s: %w", ix.Docset.ID, err)
			}
			for _, hit := range hits {
				merge(ix, hit.DocID, hit.Score, 0)
			}
			return nil
		})
		g.Go(func() error {
			if len(queryVec) != dimensionsOf(ix) {
				// Model changed under a stale index; the lexical side
				// still answers.
				return nil
			}
			hits, err := ix.Vectors.Search(gctx, queryVec, e.opts.VectorTopK)
			if err != nil {
				return fmt.Errorf("vector search in %s: %w", ix.Docset.ID, err)
			}
			for _, hit := range hits {
				merge(ix, hit.ID, 0, float64(hit.Score))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

func dimensionsOf(ix *index.DocsetIndex) int {
	for _, vec := range ix.Embeddings {
		return len(vec)
	}
	return 0
}

// rerank min-max normalizes each score list over the candidate union,
// blends them, and sorts. Ties break lexical-first, then by doc ref in
// document order so the ordering is stable.
func (e *Engine) rerank(candidates map[string]*candidate, k int) []Result {
	if len(candidates) == 0 {
		return []Result{}
	}

	list := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		list = append(list, c)
	}

	lexical := make([]float64, len(list))
	vector := make([]float64, len(list))
	for i, c := range list {
		lexical[i] = c.lexical
		vector[i] = c.vector
	}
	lexicalN := minMax(lexical)
	vectorN := minMax(vector)

	for i, c := range list {
		c.lexical = lexicalN[i]
		c.vector = vectorN[i]
		c.blended = e.opts.LexicalWeight*lexicalN[i] + e.opts.VectorWeight*vectorN[i]
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].blended != list[j].blended {
			return list[i].blended > list[j].blended
		}
		if list[i].lexical != list[j].lexical {
			return list[i].lexical > list[j].lexical
		}
		return docRefLess(list[i].docRef, list[j].docRef)
	})

	if len(list) > k {
		list = list[:k]
	}

	results := make([]Result, 0, len(list))
	for _, c := range list {
		if r, ok := buildResult(c); ok {
			results = append(results, r)
		}
	}
	return results
}

// docRefLess orders doc refs in document order: within the same section
// the trailing chunk index compares numerically, so chunk 2 comes before
// chunk 10.
func docRefLess(a, b string) bool {
	ai := strings.LastIndexByte(a, '|')
	bi := strings.LastIndexByte(b, '|')
	if ai > 0 && bi > 0 && a[:ai] == b[:bi] {
		an, aerr := strconv.Atoi(a[ai+1:])
		bn, berr := strconv.Atoi(b[bi+1:])
		if aerr == nil && berr == nil {
			return an < bn
		}
	}
	return a < b
}

func buildResult(c *candidate) (Result, bool) {
	chk, ok := c.ix.Chunk(c.docRef)
	if !ok {
		return Result{}, false
	}
	section, ok := c.ix.SectionFor(chk.Ref)
	if !ok {
		return Result{}, false
	}

	title := section.Title()
	if title == "" {
		title = "Untitled"
	}

	absPath := filepath.Join(c.ix.Docset.RootPath, filepath.FromSlash(section.Ref.FilePath))
	snippet := Snippet{
		Text:       truncateWords(chk.Text, snippetMaxWords),
		CodeBlocks: []string{},
	}
	if len(section.CodeBlocks) > 0 {
		snippet.CodeBlocks = []string{truncateCode(section.CodeBlocks[0], snippetCodeChars)}
	}

	return Result{
		DocRef:      c.docRef,
		DocsetID:    c.ix.Docset.ID,
		Title:       title,
		HeadingPath: section.HeadingPath,
		FilePath:    section.Ref.FilePath,
		Anchor:      section.Ref.Anchor,
		URL:         "file://" + absPath + section.Ref.Anchor,
		Snippet:     snippet,
		Score:       c.blended,
		Version:     c.ix.Docset.Version,
	}, true
}

// minMax rescales values into [0, 1]. A flat list (all values within
// epsilon) normalizes to zeros so neither side dominates on noise.
func minMax(values []float64) []float64 {
	if len(values) == 0 {
		return values
	}
	vmin, vmax := values[0], values[0]
	for _, v := range values[1:] {
		vmin = min(vmin, v)
		vmax = max(vmax, v)
	}

	out := make([]float64, len(values))
	if vmax-vmin < 1e-6 {
		return out
	}
	for i, v := range values {
		out[i] = (v - vmin) / (vmax - vmin)
	}
	return out
}

func truncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:maxWords], " ") + "…"
}

func truncateCode(code string, maxChars int) string {
	code = strings.Trim(code, "\n")
	if len(code) <= maxChars {
		return code
	}
	return strings.TrimRight(code[:maxChars], " \t\n") + "\n…"
}

// cacheKey hashes the query, result size, and every selected index
// revision. Rebuilt indexes get fresh revisions, so stale entries are
// never served.
func (e *Engine) cacheKey(indexes []*index.DocsetIndex, query string, k int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d", query, k)
	for _, ix := range indexes {
		fmt.Fprintf(h, "\x00%s", ix.Revision)
	}
	return hex.EncodeToString(h.Sum(nil))
}
