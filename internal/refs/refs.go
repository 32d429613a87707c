// Package refs defines the stable reference scheme for sections and chunks.
//
// References are content-independent: they are derived from the docset id,
// the document path, and the section anchor, never from body text. A rebuild
// that leaves a section in place (same file, same headings) keeps its
// references valid even when the prose changes.
//
// Wire format:
//
//	section ref: <docset_id>|<file_path>|<anchor>
//	doc ref:     <docset_id>|<file_path>|<anchor>|<chunk_index>
package refs

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

const separator = "|"

// SectionRef identifies one section of one document in one docset.
type SectionRef struct {
	DocsetID string
	FilePath string
	Anchor   string
}

// String renders the section ref in wire format.
func (r SectionRef) String() string {
	return r.DocsetID + separator + r.FilePath + separator + r.Anchor
}

// DocRef identifies one chunk. It is the opaque handle returned in search
// results and accepted by open().
type DocRef struct {
	Section    SectionRef
	ChunkIndex int
}

// String renders the doc ref in wire format.
func (r DocRef) String() string {
	return r.Section.String() + separator + strconv.Itoa(r.ChunkIndex)
}

// ParseSectionRef parses a section ref from wire format.
func ParseSectionRef(s string) (SectionRef, error) {
	parts := strings.Split(s, separator)
	if len(parts) != 3 {
		return SectionRef{}, dexerrors.UnknownReference(s)
	}
	ref := SectionRef{DocsetID: parts[0], FilePath: parts[1], Anchor: parts[2]}
	if ref.DocsetID == "" || ref.FilePath == "" || ref.Anchor == "" {
		return SectionRef{}, dexerrors.UnknownReference(s)
	}
	return ref, nil
}

// ParseDocRef parses a doc ref from wire format.
func ParseDocRef(s string) (DocRef, error) {
	parts := strings.Split(s, separator)
	if len(parts) != 4 {
		return DocRef{}, dexerrors.UnknownReference(s)
	}
	idx, err := strconv.Atoi(parts[3])
	if err != nil || idx < 0 {
		return DocRef{}, dexerrors.UnknownReference(s)
	}
	section := SectionRef{DocsetID: parts[0], FilePath: parts[1], Anchor: parts[2]}
	if section.DocsetID == "" || section.FilePath == "" || section.Anchor == "" {
		return DocRef{}, dexerrors.UnknownReference(s)
	}
	return DocRef{Section: section, ChunkIndex: idx}, nil
}

// StableAnchor derives a deterministic anchor for a heading that carries no
// id attribute. It hashes the file path and heading trail only, so the
// anchor survives body edits.
func StableAnchor(filePath string, headingPath []string) string {
	key := fmt.Sprintf("%s|%s", filePath, strings.Join(headingPath, " > "))
	return "#sec-" + sha1Short(key, 10)
}

// sha1Short returns the first n hex characters of the SHA-1 of s.
func sha1Short(s string, n int) string {
	sum := sha1.Sum([]byte(s))
	h := hex.EncodeToString(sum[:])
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
