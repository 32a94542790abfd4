// Package errors provides structured error handling for grist.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store errors (SQLite, vector index, data directory)
//   - 3XX: Embedding backend errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category classifies errors for handling and presentation.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates persistent store errors.
	CategoryStore Category = "STORE"
	// CategoryEmbedder indicates embedding backend errors.
	CategoryEmbedder Category = "EMBEDDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreIO      = "ERR_201_STORE_IO"
	ErrCodeStoreLocked  = "ERR_202_STORE_LOCKED"
	ErrCodeStoreClosed  = "ERR_203_STORE_CLOSED"
	ErrCodeCorruptStore = "ERR_204_CORRUPT_STORE"

	// Embedder errors (300-399)
	ErrCodeEmbedderUnavailable = "ERR_301_EMBEDDER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_302_EMBEDDING_FAILED"
	ErrCodeModelMissing        = "ERR_303_MODEL_MISSING"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeUnknownSourceType = "ERR_403_UNKNOWN_SOURCE_TYPE"
	ErrCodeQueryEmpty        = "ERR_404_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"
	ErrCodeIngestFailed = "ERR_503_INGEST_FAILED"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryEmbedder
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}
