// Package chunk slices section text into overlapping word windows.
package chunk

import (
	"strings"

	"github.com/docdex/docdex/internal/refs"
)

// Default window parameters, tuned for documentation prose.
const (
	DefaultMaxWords     = 280
	DefaultOverlapWords = 60
)

// Chunk is one retrievable window of a section.
type Chunk struct {
	// Ref is the chunk's stable doc ref.
	Ref refs.DocRef
	// Index is the chunk's position within its section.
	Index int
	// Text is the window's text.
	Text string
}

// Options configures the word-window chunker.
type Options struct {
	// MaxWords is the window size.
	MaxWords int
	// OverlapWords is how many words consecutive windows share.
	// Must be smaller than MaxWords.
	OverlapWords int
}

// DefaultOptions returns the default window parameters.
func DefaultOptions() Options {
	return Options{MaxWords: DefaultMaxWords, OverlapWords: DefaultOverlapWords}
}

func (o Options) normalized() Options {
	if o.MaxWords <= 0 {
		o.MaxWords = DefaultMaxWords
	}
	if o.OverlapWords < 0 {
		o.OverlapWords = DefaultOverlapWords
	}
	if o.OverlapWords >= o.MaxWords {
		o.OverlapWords = o.MaxWords / 4
	}
	return o
}

// Split chunks text into overlapping windows. Windows advance by
// MaxWords-OverlapWords; the final window is kept even when it is shorter
// than a full step, so no tail text is ever dropped.
func Split(text string, opts Options) []string {
	opts = opts.normalized()

	words := strings.Fields(text)
	if len(words) <= opts.MaxWords {
		trimmed := strings.TrimSpace(text)
		return []string{trimmed}
	}

	step := opts.MaxWords - opts.OverlapWords
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + opts.MaxWords
		if end > len(words) {
			end = len(words)
		}
		window := strings.TrimSpace(strings.Join(words[start:end], " "))
		if window != "" {
			chunks = append(chunks, window)
		}
		if end >= len(words) {
			break
		}
	}
	return chunks
}

// Section chunks a section's text and assigns stable doc refs.
func Section(sectionRef refs.SectionRef, text string, opts Options) []Chunk {
	windows := Split(text, opts)
	chunks := make([]Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, Chunk{
			Ref:   refs.DocRef{Section: sectionRef, ChunkIndex: i},
			Index: i,
			Text:  w,
		})
	}
	return chunks
}
