package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so a wrapped error built from a sentinel still matches that sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CodeOf returns the code of the first DomainError in err's chain, or "".
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeEmptyCorpus      = "EMPTY_CORPUS"
	ErrCodeCorruptIndex     = "CORRUPT_INDEX"
	ErrCodeEmbeddingService = "EMBEDDING_SERVICE"
	ErrCodeGeneration       = "GENERATION"
	ErrCodeVectorSearch     = "VECTOR_SEARCH"
)

// Validation errors
var (
	ErrInvalidChunkConfig   = NewDomainError(ErrCodeValidation, "invalid chunking configuration")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrIndexNotReady        = NewDomainError(ErrCodeValidation, "no folder has been indexed yet")
)

// Not found errors
var (
	ErrFolderNotFound = NewDomainError(ErrCodeNotFound, "document folder not found")
	ErrIndexNotFound  = NewDomainError(ErrCodeNotFound, "persisted index not found")
)

// Authorization errors
var (
	ErrInvalidAPIToken = NewDomainError(ErrCodeUnauthorized, "invalid api token")
)

// Index lifecycle errors
var (
	ErrEmptyCorpus  = NewDomainError(ErrCodeEmptyCorpus, "no chunks produced from the document folder")
	ErrCorruptIndex = NewDomainError(ErrCodeCorruptIndex, "persisted index is unreadable")
)

// Provider and search errors
var (
	ErrEmbeddingService = NewDomainError(ErrCodeEmbeddingService, "embedding service failed")
	ErrGeneration       = NewDomainError(ErrCodeGeneration, "answer generation failed")
	ErrVectorSearch     = NewDomainError(ErrCodeVectorSearch, "vector search failed")
	ErrStorageOperation = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// NewFolderNotFoundError wraps the cause of a missing or unreadable folder.
func NewFolderNotFoundError(path string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeNotFound, ErrFolderNotFound.Message, fmt.Errorf("%s: %w", path, err))
}

// NewCorruptIndexError wraps the reason a persisted index could not be loaded.
func NewCorruptIndexError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeCorruptIndex, ErrCorruptIndex.Message, err)
}

// NewEmbeddingServiceError wraps a failure returned by the embedding provider.
func NewEmbeddingServiceError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingService, ErrEmbeddingService.Message, err)
}

// NewGenerationError wraps a failure returned by the language model.
func NewGenerationError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, ErrGeneration.Message, err)
}

// NewVectorSearchError wraps a failure raised while querying the index.
func NewVectorSearchError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeVectorSearch, ErrVectorSearch.Message, err)
}

// NewStorageError wraps a failure from a persistence backend.
func NewStorageError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeInternalError, ErrStorageOperation.Message, err)
}
