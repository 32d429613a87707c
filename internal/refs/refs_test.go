package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

func TestSectionRef_RoundTrip(t *testing.T) {
	ref := SectionRef{DocsetID: "python", FilePath: "library/asyncio.html", Anchor: "#event-loop"}

	parsed, err := ParseSectionRef(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestDocRef_RoundTrip(t *testing.T) {
	ref := DocRef{
		Section:    SectionRef{DocsetID: "go", FilePath: "ref/spec.html", Anchor: "#sec-ab12cd34ef"},
		ChunkIndex: 7,
	}

	parsed, err := ParseDocRef(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestParseDocRef_Malformed(t *testing.T) {
	cases := []string{
		"",
		"python",
		"python|file.html",
		"python|file.html|#a",              // section ref, not doc ref
		"python|file.html|#a|notanumber",   // bad index
		"python|file.html|#a|-1",           // negative index
		"python|file.html|#a|0|extra",      // too many parts
		"|file.html|#a|0",                  // empty docset
		"python||#a|0",                     // empty path
		"python|file.html||0",              // empty anchor
	}

	for _, c := range cases {
		t.Run(c, func(t *testing.T) {
			_, err := ParseDocRef(c)
			require.Error(t, err)
			assert.Equal(t, dexerrors.ErrCodeUnknownReference, dexerrors.GetCode(err))
		})
	}
}

func TestParseSectionRef_Malformed(t *testing.T) {
	for _, c := range []string{"", "a|b", "a|b|c|d", "|b|#c"} {
		_, err := ParseSectionRef(c)
		assert.Error(t, err, c)
	}
}

func TestStableAnchor_Deterministic(t *testing.T) {
	a1 := StableAnchor("guide.html", []string{"Install", "Linux"})
	a2 := StableAnchor("guide.html", []string{"Install", "Linux"})
	assert.Equal(t, a1, a2)
	assert.Regexp(t, `^#sec-[0-9a-f]{10}$`, a1)
}

func TestStableAnchor_VariesWithInputs(t *testing.T) {
	base := StableAnchor("guide.html", []string{"Install"})
	assert.NotEqual(t, base, StableAnchor("other.html", []string{"Install"}))
	assert.NotEqual(t, base, StableAnchor("guide.html", []string{"Usage"}))
}

func TestStableAnchor_IndependentOfBodyText(t *testing.T) {
	// The anchor hashes only the path and heading trail; two documents with
	// different prose under identical headings share the anchor.
	assert.Equal(t,
		StableAnchor("guide.html", []string{"Install"}),
		StableAnchor("guide.html", []string{"Install"}))
}
