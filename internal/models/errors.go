package models

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable code returned on the tool surface
type ErrorCode string

const (
	CodeAuthRequired         ErrorCode = "AUTH_REQUIRED"
	CodeAdminRequired        ErrorCode = "ADMIN_REQUIRED"
	CodeInvalidSource        ErrorCode = "INVALID_SOURCE"
	CodeSourceNotFound       ErrorCode = "SOURCE_NOT_FOUND"
	CodeWordCountExceeded    ErrorCode = "WORD_COUNT_EXCEEDED"
	CodeValidationError      ErrorCode = "VALIDATION_ERROR"
	CodeDocumentNotFound     ErrorCode = "DOCUMENT_NOT_FOUND"
	CodeAccessDenied         ErrorCode = "ACCESS_DENIED"
	CodeDuplicate            ErrorCode = "DUPLICATE"
	CodeExtractionParseError ErrorCode = "EXTRACTION_PARSE_ERROR"
	CodeIngestError          ErrorCode = "INGEST_ERROR"
	CodeGraphError           ErrorCode = "GRAPH_ERROR"
	CodeVectorError          ErrorCode = "VECTOR_ERROR"
	CodeLLMError             ErrorCode = "LLM_ERROR"
	CodeConfigError          ErrorCode = "CONFIG_ERROR"
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
)

// Sentinel errors used across services; wrapped with context via %w
var (
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrValidation        = errors.New("validation error")
	ErrWordCountExceeded = errors.New("word count exceeded")
	ErrInvalidSource     = errors.New("invalid source")
	ErrAuthRequired      = errors.New("authentication required")
	ErrAdminRequired     = errors.New("admin access required")
	ErrExtractionParse   = errors.New("extraction parse error")
	ErrLLMUnavailable    = errors.New("llm unavailable")
)

// ServiceError carries a stable code, a human-readable message, and a
// recovery hint for conversion into the tool-surface envelope
type ServiceError struct {
	Code             ErrorCode
	Message          string
	RecoveryStrategy string
	Err              error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError builds a ServiceError wrapping err
func NewServiceError(code ErrorCode, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// CodeForError maps a service error to its stable tool-surface code
func CodeForError(err error) ErrorCode {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return CodeDocumentNotFound
	case errors.Is(err, ErrAccessDenied):
		return CodeAccessDenied
	case errors.Is(err, ErrWordCountExceeded):
		return CodeWordCountExceeded
	case errors.Is(err, ErrInvalidSource):
		return CodeInvalidSource
	case errors.Is(err, ErrValidation):
		return CodeValidationError
	case errors.Is(err, ErrAuthRequired):
		return CodeAuthRequired
	case errors.Is(err, ErrAdminRequired):
		return CodeAdminRequired
	case errors.Is(err, ErrExtractionParse):
		return CodeExtractionParseError
	case errors.Is(err, ErrLLMUnavailable):
		return CodeLLMError
	default:
		return CodeInternalError
	}
}

// RecoveryHint returns a caller-facing recovery suggestion for a code
func RecoveryHint(code ErrorCode) string {
	switch code {
	case CodeAuthRequired:
		return "Provide a bearer token in auth_tokens"
	case CodeAdminRequired:
		return "Retry with a token that carries the admin group"
	case CodeInvalidSource, CodeSourceNotFound:
		return "Verify the source_id with list_sources"
	case CodeWordCountExceeded:
		return "Split the document and ingest the parts separately"
	case CodeDocumentNotFound:
		return "Verify the document id; supply a date_hint if known"
	case CodeAccessDenied:
		return "Request access to the owning group"
	case CodeIngestError:
		return "The write was rolled back; the ingest may be retried"
	case CodeLLMError:
		return "Check LLM provider configuration and retry later"
	case CodeConfigError:
		return "Set the missing configuration key and restart"
	default:
		return ""
	}
}
