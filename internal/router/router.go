// Package router selects which docsets a query should search.
package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docdex/docdex/internal/docset"
	dexerrors "github.com/docdex/docdex/internal/errors"
)

// DefaultMaxDocsets caps how many docsets one query fans out to.
const DefaultMaxDocsets = 3

// Scoring weights. Deterministic and pinned by tests: an explicit
// source hint dominates, keyword hits outweigh tag hits, and a keyword
// appearing in the caller's declared dependencies lands in between.
const (
	sourceHintScore = 100
	keywordScore    = 10
	dependencyScore = 15
	tagScore        = 3
)

// Request carries the routing inputs for one query.
type Request struct {
	// Query is the raw search query.
	Query string

	// Filter, when non-empty, names the exact docsets to search and
	// bypasses scoring. Unknown ids are an error.
	Filter []string

	// SourceHint is an optional docset id the caller believes is right.
	SourceHint string

	// Dependencies are project dependency names from the caller's
	// context, matched against docset keywords.
	Dependencies []string
}

// Decision is the routing outcome: the selected docset ids in rank
// order, with a human-readable reason per selected docset.
type Decision struct {
	SelectedDocsets []string
	Reasons         map[string]string
}

// Router scores enabled docsets against a query.
type Router struct {
	maxDocsets int
}

// New creates a router. maxDocsets <= 0 uses the default.
func New(maxDocsets int) *Router {
	if maxDocsets <= 0 {
		maxDocsets = DefaultMaxDocsets
	}
	return &Router{maxDocsets: maxDocsets}
}

// Route selects up to maxDocsets docsets for the query. With an
// explicit filter the filter is validated and used as-is. Otherwise
// docsets are scored; when nothing scores above zero the first
// registry docsets are used as a fallback so a query never dead-ends.
func (r *Router) Route(docsets []docset.Docset, req Request) (Decision, error) {
	enabled := make([]docset.Docset, 0, len(docsets))
	for _, ds := range docsets {
		if ds.Enabled {
			enabled = append(enabled, ds)
		}
	}
	if len(enabled) == 0 {
		return Decision{}, dexerrors.RouterNoMatch(strings.Join(req.Filter, ","))
	}

	if len(req.Filter) > 0 {
		return routeExplicit(enabled, req.Filter)
	}

	return r.routeScored(enabled, req), nil
}

func routeExplicit(enabled []docset.Docset, filter []string) (Decision, error) {
	byID := make(map[string]docset.Docset, len(enabled))
	for _, ds := range enabled {
		byID[strings.ToLower(ds.ID)] = ds
	}

	decision := Decision{Reasons: make(map[string]string)}
	for _, id := range filter {
		ds, ok := byID[strings.ToLower(id)]
		if !ok {
			return Decision{}, dexerrors.UnknownDocset(id)
		}
		decision.SelectedDocsets = append(decision.SelectedDocsets, ds.ID)
		decision.Reasons[ds.ID] = "explicit"
	}

	if len(decision.SelectedDocsets) == 0 {
		return Decision{}, dexerrors.RouterNoMatch(strings.Join(filter, ","))
	}
	return decision, nil
}

func (r *Router) routeScored(enabled []docset.Docset, req Request) Decision {
	q := strings.ToLower(req.Query)
	deps := make([]string, 0, len(req.Dependencies))
	for _, d := range req.Dependencies {
		deps = append(deps, strings.ToLower(d))
	}

	scores := make(map[string]int, len(enabled))
	reasons := make(map[string]string, len(enabled))

	for _, ds := range enabled {
		score := 0
		var reasonParts []string

		if req.SourceHint != "" && strings.EqualFold(req.SourceHint, ds.ID) {
			score += sourceHintScore
			reasonParts = append(reasonParts, "source_hint")
		}

		if matches := containedIn(ds.Keywords, q); len(matches) > 0 {
			score += keywordScore * len(matches)
			reasonParts = append(reasonParts, "keywords:"+joinFirst(matches, 3))
		}

		if matches := containedIn(ds.Tags, q); len(matches) > 0 {
			score += tagScore * len(matches)
			reasonParts = append(reasonParts, "tags:"+joinFirst(matches, 3))
		}

		if matches := matchDependencies(ds.Keywords, deps); len(matches) > 0 {
			score += dependencyScore * len(matches)
			reasonParts = append(reasonParts, "deps:"+joinFirst(matches, 3))
		}

		scores[ds.ID] = score
		if len(reasonParts) == 0 {
			reasons[ds.ID] = "fallback"
		} else {
			reasons[ds.ID] = strings.Join(reasonParts, " ")
		}
	}

	// Rank by score, registry order breaking ties.
	ranked := make([]string, 0, len(enabled))
	for _, ds := range enabled {
		if scores[ds.ID] > 0 {
			ranked = append(ranked, ds.ID)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if len(ranked) > r.maxDocsets {
		ranked = ranked[:r.maxDocsets]
	}

	if len(ranked) == 0 {
		for _, ds := range enabled {
			ranked = append(ranked, ds.ID)
			if len(ranked) == r.maxDocsets {
				break
			}
		}
	}

	decision := Decision{
		SelectedDocsets: ranked,
		Reasons:         make(map[string]string, len(ranked)),
	}
	for _, id := range ranked {
		decision.Reasons[id] = reasons[id]
	}
	return decision
}

// containedIn returns the terms that appear as substrings of the query.
func containedIn(terms []string, query string) []string {
	var matches []string
	for _, term := range terms {
		if term != "" && strings.Contains(query, strings.ToLower(term)) {
			matches = append(matches, term)
		}
	}
	return matches
}

// matchDependencies returns the keywords that appear in any declared
// dependency name.
func matchDependencies(keywords, deps []string) []string {
	var matches []string
	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		for _, dep := range deps {
			if lower != "" && strings.Contains(dep, lower) {
				matches = append(matches, kw)
				break
			}
		}
	}
	return matches
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ",")
}

// Describe renders a decision for logs.
func (d Decision) Describe() string {
	parts := make([]string, 0, len(d.SelectedDocsets))
	for _, id := range d.SelectedDocsets {
		parts = append(parts, fmt.Sprintf("%s(%s)", id, d.Reasons[id]))
	}
	return strings.Join(parts, " ")
}
