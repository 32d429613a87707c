package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeDocs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain prose",
			text: "The event loop runs callbacks",
			want: []string{"the", "event", "loop", "runs", "callbacks"},
		},
		{
			name: "snake_case identifier",
			text: "call get_event_loop first",
			want: []string{"call", "get", "event", "loop", "first"},
		},
		{
			name: "camelCase identifier",
			text: "use setTimeout here",
			want: []string{"use", "set", "timeout", "here"},
		},
		{
			name: "acronym run kept together",
			text: "parseHTTPRequest",
			want: []string{"parse", "http", "request"},
		},
		{
			name: "dotted call kept cohesive and split",
			text: "asyncio.run(main())",
			want: []string{"asyncio.run", "asyncio", "run", "main"},
		},
		{
			name: "paths kept cohesive with segments",
			text: "mount a/b then GET /v1/users",
			want: []string{"mount", "a/b", "then", "get", "v1/users", "v1", "users"},
		},
		{
			name: "sentence punctuation trimmed from paths",
			text: "see docs/api.",
			want: []string{"see", "docs/api", "docs", "api"},
		},
		{
			name: "short tokens dropped",
			text: "a b of go",
			want: []string{"of", "go"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeDocs(tt.text))
		})
	}
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		token string
		want  []string
	}{
		{"get_event_loop", []string{"get", "event", "loop"}},
		{"EventLoop", []string{"Event", "Loop"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"mixed_caseToken", []string{"mixed", "case", "Token"}},
		{"simple", []string{"simple"}},
		{"__dunder__", []string{"dunder"}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.token))
		})
	}
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "and"})
	assert.Contains(t, m, "the")
	assert.Contains(t, m, "and")
	assert.NotContains(t, m, "loop")
}
