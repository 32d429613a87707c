package normalize

import (
	"html"
	"regexp"
	"strings"
)

var paragraphSplitRe = regexp.MustCompile(`\n\s*\n`)

// plainTextToHTML wraps plain text in minimal HTML so it flows through the
// shared sectioning pass. The whole file becomes one section titled after
// the file, with paragraph breaks preserved.
func plainTextToHTML(text, title string) string {
	escapedTitle := html.EscapeString(title)
	if escapedTitle == "" {
		escapedTitle = "Untitled"
	}

	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return "<main><h2>" + escapedTitle + "</h2></main>"
	}

	var parts []string
	for _, para := range paragraphSplitRe.Split(stripped, -1) {
		cleaned := strings.Trim(para, "\n")
		if cleaned == "" {
			continue
		}
		escaped := strings.ReplaceAll(html.EscapeString(cleaned), "\n", "<br />\n")
		parts = append(parts, "<p>"+escaped+"</p>")
	}

	return "<main><h2>" + escapedTitle + "</h2>" + strings.Join(parts, "") + "</main>"
}
