package store

import (
	"regexp"
	"strings"
	"unicode"
)

var wordRe = regexp.MustCompile(`[a-zA-Z0-9_./:+-]+`)

const pathSeparators = "./:+-"

// TokenizeDocs splits documentation text into lowercase search tokens.
// Path-like runs such as "a/b", "/v1/users", or "pkg.Type" stay together
// as one token (with surrounding punctuation trimmed) so queries for
// routes and dotted names match exactly; their individual segments are
// emitted as well. Embedded API identifiers are additionally split on
// snake_case and camelCase boundaries so a query for "event loop"
// matches "get_event_loop" and "EventLoop" alike. Tokens shorter than
// two characters are dropped.
func TokenizeDocs(text string) []string {
	var tokens []string
	for _, raw := range wordRe.FindAllString(text, -1) {
		word := strings.Trim(raw, pathSeparators)
		if word == "" {
			continue
		}
		if cohesive := strings.ToLower(word); len(cohesive) >= 2 && strings.ContainsAny(cohesive, pathSeparators) {
			tokens = append(tokens, cohesive)
		}
		segments := strings.FieldsFunc(word, func(r rune) bool {
			return strings.ContainsRune(pathSeparators, r)
		})
		for _, segment := range segments {
			for _, part := range SplitIdentifier(segment) {
				lower := strings.ToLower(part)
				if len(lower) >= 2 {
					tokens = append(tokens, lower)
				}
			}
		}
	}
	return tokens
}

// SplitIdentifier splits snake_case and camelCase identifiers into their
// component words.
func SplitIdentifier(token string) []string {
	if !strings.Contains(token, "_") {
		return splitCamel(token)
	}
	var result []string
	for _, part := range strings.Split(token, "_") {
		if part != "" {
			result = append(result, splitCamel(part)...)
		}
	}
	return result
}

// splitCamel splits camelCase and PascalCase, keeping acronym runs
// together: "parseHTTPRequest" -> ["parse", "HTTP", "Request"].
func splitCamel(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// BuildStopWordMap converts a stop word list into a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
