package normalize

import (
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	dexerrors "github.com/docdex/docdex/internal/errors"
	"github.com/docdex/docdex/internal/refs"
)

const headingSelector = "h2, h3"

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankRunsRe     = regexp.MustCompile(`\n{3,}`)
)

// htmlToSections splits an HTML document at its h2/h3 headings.
// Content before the first heading, and documents without headings, fall
// into a single section titled after the document.
func htmlToSections(docsetID, filePath, htmlText string) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return nil, dexerrors.MalformedDocument(filePath, err)
	}

	container := findContainer(doc)
	container.Find("script, style, noscript, nav, header, footer, aside").Remove()

	headings := container.Find(headingSelector)
	if headings.Length() == 0 {
		title := collapseSpaces(doc.Find("title").First().Text())
		if title == "" {
			title = strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		}
		if title == "" {
			title = "Untitled"
		}

		text, codeBlocks, assets := extractFragment(container)
		return []Section{{
			Ref:         refs.SectionRef{DocsetID: docsetID, FilePath: filePath, Anchor: "#"},
			HeadingPath: []string{title},
			Text:        text,
			CodeBlocks:  codeBlocks,
			Assets:      resolveAssets(assets, filePath),
		}}, nil
	}

	var sections []Section
	var currentH2 string

	headings.Each(func(_ int, heading *goquery.Selection) {
		headingText := collapseSpaces(heading.Text())
		if headingText == "" {
			return
		}

		var headingPath []string
		if goquery.NodeName(heading) == "h2" {
			currentH2 = headingText
			headingPath = []string{headingText}
		} else if currentH2 != "" {
			headingPath = []string{currentH2, headingText}
		} else {
			headingPath = []string{headingText}
		}

		anchor := refs.StableAnchor(filePath, headingPath)
		if id, ok := heading.Attr("id"); ok && id != "" {
			anchor = "#" + id
		}

		fragment := heading.NextUntil(headingSelector)
		text, codeBlocks, assets := extractFragment(fragment)

		sections = append(sections, Section{
			Ref:         refs.SectionRef{DocsetID: docsetID, FilePath: filePath, Anchor: anchor},
			HeadingPath: headingPath,
			Text:        text,
			CodeBlocks:  codeBlocks,
			Assets:      resolveAssets(assets, filePath),
		})
	})

	return sections, nil
}

// findContainer picks the main content element: main, article, [role=main],
// then body, then the whole document.
func findContainer(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", "[role=main]", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Selection
}

// extractFragment pulls code blocks and image assets out of the fragment and
// returns the remaining prose.
func extractFragment(fragment *goquery.Selection) (string, []string, []Asset) {
	var codeBlocks []string
	var assets []Asset

	pres := fragment.Filter("pre").AddSelection(fragment.Find("pre"))
	pres.Each(func(_ int, pre *goquery.Selection) {
		text := pre.Text()
		if code := pre.Find("code").First(); code.Length() > 0 {
			text = code.Text()
		}
		text = strings.Trim(text, "\n")
		if strings.TrimSpace(text) != "" {
			codeBlocks = append(codeBlocks, text)
		}
	})
	pres.Remove()

	imgs := fragment.Filter("img").AddSelection(fragment.Find("img"))
	imgs.Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return
		}
		alt, _ := img.Attr("alt")
		var caption string
		if parent := img.Parent(); goquery.NodeName(parent) == "figure" {
			caption = collapseSpaces(parent.Find("figcaption").First().Text())
		}
		assets = append(assets, Asset{Src: src, Alt: alt, Caption: caption})
	})
	imgs.Remove()

	// Remove() detaches nested matches from their parents, but matches that
	// are themselves top-level nodes of the fragment stay in its node list;
	// filter those out so code and image text never leaks into the prose.
	prose := fragment.Not("pre, img")
	return normalizeWhitespace(textWithNewlines(prose)), codeBlocks, assets
}

// textWithNewlines joins the fragment's text nodes with newlines, trimming
// each node.
func textWithNewlines(sel *goquery.Selection) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(parts, "\n")
}

// normalizeWhitespace trims trailing spaces and collapses blank-line runs.
func normalizeWhitespace(text string) string {
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankRunsRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// collapseSpaces flattens all whitespace runs to single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// resolveAssets maps asset srcs to docset-relative paths. External srcs and
// srcs that climb out of the docset keep an empty Path.
func resolveAssets(assets []Asset, filePath string) []Asset {
	baseDir := path.Dir(filePath)
	resolved := make([]Asset, 0, len(assets))
	for _, a := range assets {
		clean := a.Src
		if i := strings.IndexByte(clean, '#'); i >= 0 {
			clean = clean[:i]
		}
		if i := strings.IndexByte(clean, '?'); i >= 0 {
			clean = clean[:i]
		}
		clean = strings.TrimSpace(clean)

		if clean == "" || strings.HasPrefix(clean, "http://") ||
			strings.HasPrefix(clean, "https://") || strings.HasPrefix(clean, "data:") {
			resolved = append(resolved, a)
			continue
		}

		clean = strings.ReplaceAll(clean, "\\", "/")
		var rel string
		if strings.HasPrefix(clean, "/") {
			rel = strings.TrimLeft(clean, "/")
		} else {
			rel = path.Join(baseDir, clean)
		}
		rel = strings.TrimPrefix(rel, "./")

		if rel == "" || rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			resolved = append(resolved, a)
			continue
		}

		a.Path = rel
		resolved = append(resolved, a)
	}
	return resolved
}
