package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docdex/docdex/internal/refs"
)

func wordRun(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("just a few words", Options{MaxWords: 10, OverlapWords: 2})
	assert.Equal(t, []string{"just a few words"}, chunks)
}

func TestSplit_EmptyTextYieldsOneEmptyChunk(t *testing.T) {
	// An empty section still produces a chunk so the section stays openable.
	chunks := Split("", Options{MaxWords: 10, OverlapWords: 2})
	assert.Equal(t, []string{""}, chunks)
}

func TestSplit_WindowsAdvanceByStep(t *testing.T) {
	text := wordRun(25)
	chunks := Split(text, Options{MaxWords: 10, OverlapWords: 3})

	// step = 7: windows start at 0, 7, 14, 21
	require.Len(t, chunks, 4)
	assert.True(t, strings.HasPrefix(chunks[0], "w0 "))
	assert.True(t, strings.HasPrefix(chunks[1], "w7 "))
	assert.True(t, strings.HasPrefix(chunks[2], "w14 "))
	assert.True(t, strings.HasPrefix(chunks[3], "w21 "))
}

func TestSplit_ConsecutiveChunksOverlap(t *testing.T) {
	chunks := Split(wordRun(25), Options{MaxWords: 10, OverlapWords: 3})

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Equal(t, first[7:], second[:3])
}

func TestSplit_TailNeverDropped(t *testing.T) {
	for _, n := range []int{11, 17, 20, 21, 99, 100, 101} {
		text := wordRun(n)
		chunks := Split(text, Options{MaxWords: 10, OverlapWords: 3})

		last := chunks[len(chunks)-1]
		assert.True(t, strings.HasSuffix(last, fmt.Sprintf("w%d", n-1)),
			"tail lost for n=%d: %q", n, last)
	}
}

func TestSplit_EveryWordCovered(t *testing.T) {
	text := wordRun(53)
	chunks := Split(text, Options{MaxWords: 10, OverlapWords: 4})

	seen := make(map[string]bool)
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			seen[w] = true
		}
	}
	assert.Len(t, seen, 53)
}

func TestSplit_ExactWindowBoundary(t *testing.T) {
	// Exactly MaxWords: one chunk, no empty trailing window.
	chunks := Split(wordRun(10), Options{MaxWords: 10, OverlapWords: 3})
	assert.Len(t, chunks, 1)
}

func TestOptions_NormalizedGuards(t *testing.T) {
	o := Options{MaxWords: 0, OverlapWords: -1}.normalized()
	assert.Equal(t, DefaultMaxWords, o.MaxWords)
	assert.Equal(t, DefaultOverlapWords, o.OverlapWords)

	// Overlap >= window collapses to a quarter of the window.
	o = Options{MaxWords: 8, OverlapWords: 8}.normalized()
	assert.Equal(t, 2, o.OverlapWords)
}

func TestSection_AssignsSequentialRefs(t *testing.T) {
	ref := refs.SectionRef{DocsetID: "d", FilePath: "f.html", Anchor: "#a"}
	chunks := Section(ref, wordRun(25), Options{MaxWords: 10, OverlapWords: 3})

	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, refs.DocRef{Section: ref, ChunkIndex: i}, c.Ref)
		assert.Equal(t, fmt.Sprintf("d|f.html|#a|%d", i), c.Ref.String())
	}
}
