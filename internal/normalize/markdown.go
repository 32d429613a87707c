package normalize

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders Markdown to HTML. Tables and fenced code blocks are the only
// extensions docsets rely on.
var md = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// markdownToHTML converts a Markdown document to HTML for sectioning.
func markdownToHTML(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(source, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
