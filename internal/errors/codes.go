// Package errors provides structured error handling for docdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and registry errors
//   - 2XX: Document and snapshot IO errors
//   - 3XX: Embedding provider and network errors
//   - 4XX: Query and reference validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration and registry errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates document and snapshot I/O errors.
	CategoryIO Category = "IO"
	// CategoryProvider indicates embedding provider and network errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates query and reference validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config and registry errors (100-199)
	ErrCodeConfigInvalid   = "ERR_101_CONFIG_INVALID"
	ErrCodeRegistryInvalid = "ERR_102_REGISTRY_INVALID"
	ErrCodeDocsetRoot      = "ERR_103_DOCSET_ROOT"

	// Document and snapshot errors (200-299)
	ErrCodeUnsupportedFormat = "ERR_201_UNSUPPORTED_FORMAT"
	ErrCodeMalformedDocument = "ERR_202_MALFORMED_DOCUMENT"
	ErrCodeSnapshotMismatch  = "ERR_203_SNAPSHOT_MISMATCH"
	ErrCodeSnapshotCorrupt   = "ERR_204_SNAPSHOT_CORRUPT"
	ErrCodeAssetNotFound     = "ERR_205_ASSET_NOT_FOUND"

	// Embedding provider and network errors (300-399)
	ErrCodeEmbeddingProvider = "ERR_301_EMBEDDING_PROVIDER"
	ErrCodeNetworkTimeout    = "ERR_302_NETWORK_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidQuery     = "ERR_401_INVALID_QUERY"
	ErrCodePathTraversal    = "ERR_402_PATH_TRAVERSAL"
	ErrCodeUnknownReference = "ERR_403_UNKNOWN_REFERENCE"
	ErrCodeRouterNoMatch    = "ERR_404_ROUTER_NO_MATCH"
	ErrCodeUnknownDocset    = "ERR_405_UNKNOWN_DOCSET"

	// Internal errors (500-599)
	ErrCodeInternal   = "ERR_501_INTERNAL"
	ErrCodeIndexBuild = "ERR_502_INDEX_BUILD"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "203" from "ERR_203_SNAPSHOT_MISMATCH"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeSnapshotCorrupt:
		return SeverityFatal
	}

	// Snapshot mismatch is a normal rebuild trigger, not a failure.
	if code == ErrCodeSnapshotMismatch {
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeEmbeddingProvider:
		return true
	default:
		return false
	}
}
