package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocdexError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("parse failure")

	de := New(ErrCodeMalformedDocument, "malformed document: guide.html", originalErr)

	require.NotNil(t, de)
	assert.Equal(t, originalErr, errors.Unwrap(de))
	assert.True(t, errors.Is(de, originalErr))
}

func TestDocdexError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigInvalid,
			message:  "chunk overlap exceeds chunk size",
			expected: "[ERR_101_CONFIG_INVALID] chunk overlap exceeds chunk size",
		},
		{
			name:     "unknown reference",
			code:     ErrCodeUnknownReference,
			message:  "unknown reference: python|api.html#sec-1",
			expected: "[ERR_403_UNKNOWN_REFERENCE] unknown reference: python|api.html#sec-1",
		},
		{
			name:     "provider error",
			code:     ErrCodeEmbeddingProvider,
			message:  "embedding request failed",
			expected: "[ERR_301_EMBEDDING_PROVIDER] embedding request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestDocdexError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeUnknownReference, "ref A", nil)
	err2 := New(ErrCodeUnknownReference, "ref B", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestDocdexError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeUnknownReference, "bad ref", nil)
	err2 := New(ErrCodePathTraversal, "bad path", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestDocdexError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeMalformedDocument, "malformed document", nil).
		WithDetail("path", "docs/api.html").
		WithDetail("docset", "python")

	assert.Equal(t, "docs/api.html", err.Details["path"])
	assert.Equal(t, "python", err.Details["docset"])
}

func TestCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeRegistryInvalid, CategoryConfig},
		{ErrCodeUnsupportedFormat, CategoryIO},
		{ErrCodeSnapshotMismatch, CategoryIO},
		{ErrCodeEmbeddingProvider, CategoryProvider},
		{ErrCodePathTraversal, CategoryValidation},
		{ErrCodeRouterNoMatch, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{"BOGUS", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.category, categoryFromCode(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(ErrCodeEmbeddingProvider, "provider down", nil)))
	assert.True(t, IsRetryable(New(ErrCodeNetworkTimeout, "timed out", nil)))
	assert.False(t, IsRetryable(New(ErrCodeUnknownReference, "bad ref", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestSnapshotMismatch_IsWarningNotError(t *testing.T) {
	err := SnapshotMismatch("abc", "def")

	assert.Equal(t, SeverityWarning, err.Severity)
	assert.Equal(t, "abc", err.Details["want"])
	assert.Equal(t, "def", err.Details["got"])
}

func TestTaxonomyConstructors(t *testing.T) {
	assert.Equal(t, ErrCodeUnsupportedFormat, UnsupportedFormat("x.pdf").Code)
	assert.Equal(t, ErrCodeMalformedDocument, MalformedDocument("x.html", nil).Code)
	assert.Equal(t, ErrCodePathTraversal, PathTraversal("../../etc/passwd").Code)
	assert.Equal(t, ErrCodeUnknownReference, UnknownReference("ref").Code)
	assert.Equal(t, ErrCodeEmbeddingProvider, EmbeddingProvider("m", nil).Code)
	assert.Equal(t, ErrCodeRouterNoMatch, RouterNoMatch("nope").Code)
	assert.Equal(t, ErrCodeUnknownDocset, UnknownDocset("nope").Code)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeRouterNoMatch, GetCode(RouterNoMatch("x")))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
