package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_KnownCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"unknown reference", dexerrors.UnknownReference("x|y|#z|0"), ErrCodeUnknownReference},
		{"embedding provider", dexerrors.EmbeddingProvider("nomic-embed-text", errors.New("down")), ErrCodeEmbeddingFailed},
		{"unknown docset", dexerrors.UnknownDocset("rust"), ErrCodeUnknownDocset},
		{"router no match", dexerrors.RouterNoMatch(""), ErrCodeUnknownDocset},
		{"path traversal", dexerrors.PathTraversal("../etc/passwd"), ErrCodeInvalidParams},
		{"invalid query", dexerrors.ValidationError("query too long", nil), ErrCodeInvalidParams},
		{"internal", dexerrors.InternalError("boom", nil), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			me := MapError(tt.err)
			require.NotNil(t, me)
			assert.Equal(t, tt.code, me.Code)
			assert.NotEmpty(t, me.Message)
		})
	}
}

func TestMapError_WrappedDocdexError(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), dexerrors.UnknownDocset("rust"))
	me := MapError(wrapped)
	assert.Equal(t, ErrCodeUnknownDocset, me.Code)
}

func TestMapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeTimeout, MapError(context.Canceled).Code)
}

func TestMapError_UnknownError(t *testing.T) {
	me := MapError(errors.New("surprise"))
	assert.Equal(t, ErrCodeInternalError, me.Code)
	// Raw internals never leak to the client.
	assert.NotContains(t, me.Message, "surprise")
}
