// Package normalize turns raw documents into section trees.
//
// HTML is parsed directly; Markdown is rendered to HTML first; plain text is
// wrapped in minimal HTML. All three formats then share the same sectioning
// pass, which splits a document at its h2/h3 headings.
package normalize

import (
	"path"
	"strings"

	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/refs"
)

// Section is one h2/h3-delimited region of a normalized document.
type Section struct {
	// Ref is the stable section reference.
	Ref refs.SectionRef
	// HeadingPath is the heading trail, e.g. ["Install", "Linux"].
	HeadingPath []string
	// Text is the section's prose with code blocks and images removed.
	Text string
	// CodeBlocks are the verbatim contents of the section's pre/code blocks.
	CodeBlocks []string
	// Assets are images referenced by the section.
	Assets []Asset
}

// Title returns the most specific heading of the section.
func (s Section) Title() string {
	if len(s.HeadingPath) == 0 {
		return ""
	}
	return s.HeadingPath[len(s.HeadingPath)-1]
}

// Asset is an image referenced from a section.
type Asset struct {
	// Src is the raw src attribute as written in the document.
	Src string
	// Alt is the alt text, if any.
	Alt string
	// Caption is the figcaption text when the image sits inside a figure.
	Caption string
	// Path is the docset-relative path of the asset, or empty when the src
	// is external (http, data:) or escapes the docset.
	Path string
}

// Document normalizes one document into sections. filePath is the
// docset-relative slash-separated path; its extension selects the format.
func Document(docsetID, filePath string, data []byte) ([]Section, error) {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".html", ".htm":
		return htmlToSections(docsetID, filePath, string(data))
	case ".md", ".markdown":
		html, err := markdownToHTML(data)
		if err != nil {
			return nil, dexerrors.MalformedDocument(filePath, err)
		}
		return htmlToSections(docsetID, filePath, html)
	case ".txt":
		title := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		return htmlToSections(docsetID, filePath, plainTextToHTML(string(data), title))
	default:
		return nil, dexerrors.UnsupportedFormat(filePath)
	}
}
