// Package mcp exposes the retrieval engine over the Model Context
// Protocol: typed tools for searching docsets, opening references, and
// managing indexes, served over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	dexerrors "github.com/docdex/docdex/internal/errors"
)

// Custom MCP error codes for docdex, alongside the standard JSON-RPC set.
const (
	// ErrCodeUnknownReference indicates a doc_ref that no longer resolves.
	ErrCodeUnknownReference = -32001

	// ErrCodeEmbeddingFailed indicates the embedding provider failed.
	ErrCodeEmbeddingFailed = -32002

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// ErrCodeUnknownDocset indicates a docset id absent from the registry.
	ErrCodeUnknownDocset = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// NewInvalidParamsError creates an error for invalid parameters.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// MapError converts engine errors to MCP errors. Known error codes get
// specific MCP codes and keep their messages and suggestions; anything
// else collapses to a generic internal error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var de *dexerrors.DocdexError
	if errors.As(err, &de) {
		return mapDocdexError(de)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

func mapDocdexError(de *dexerrors.DocdexError) *MCPError {
	message := de.Message
	if de.Suggestion != "" {
		message = fmt.Sprintf("%s %s", de.Message, de.Suggestion)
	}

	switch de.Code {
	case dexerrors.ErrCodeUnknownReference:
		return &MCPError{Code: ErrCodeUnknownReference, Message: message}
	case dexerrors.ErrCodeEmbeddingProvider:
		return &MCPError{Code: ErrCodeEmbeddingFailed, Message: message}
	case dexerrors.ErrCodeUnknownDocset, dexerrors.ErrCodeRouterNoMatch:
		return &MCPError{Code: ErrCodeUnknownDocset, Message: message}
	case dexerrors.ErrCodePathTraversal, dexerrors.ErrCodeInvalidQuery:
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: message}
	}
}
