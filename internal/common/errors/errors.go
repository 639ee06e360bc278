package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeStoreNotReady      ErrorCode = "STORE_NOT_READY"
	ErrCodeNoRelevantPassages ErrorCode = "NO_RELEVANT_PASSAGES"
	ErrCodeSearchFailed       ErrorCode = "SEARCH_FAILED"
	ErrCodeSearchTimeout      ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeEmbeddingFailed    ErrorCode = "EMBEDDING_FAILED"

	ErrCodeLLMTimeout           ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMGenerationFailed  ErrorCode = "LLM_GENERATION_FAILED"
	ErrCodeMalformedRouterReply ErrorCode = "MALFORMED_ROUTER_OUTPUT"

	ErrCodeIngestFailed      ErrorCode = "INGEST_FAILED"
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrCodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"

	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreFailed ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeArchiveFailed      ErrorCode = "ARCHIVE_FAILED"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeWorkflowEngine     ErrorCode = "WORKFLOW_ENGINE_ERROR"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
}

// WithMetadata returns e after attaching key=value.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewStoreNotReadyError() *StandardError {
	return newError(ErrCodeStoreNotReady, "Passage store has not been built", "", false)
}

func NewSearchFailedError(err error) *StandardError {
	return newError(ErrCodeSearchFailed, "Similarity search failed", err.Error(), true)
}

func NewSearchTimeoutError() *StandardError {
	return newError(ErrCodeSearchTimeout, "Similarity search timeout", "search exceeded the configured timeout", true)
}

func NewEmbeddingFailedError(err error) *StandardError {
	return newError(ErrCodeEmbeddingFailed, "Embedding service error", err.Error(), true)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "Language model timeout", "generation exceeded the configured timeout", true)
}

func NewLLMGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeLLMGenerationFailed, "Language model API error", err.Error(), true)
}

func NewIngestFailedError(source string, err error) *StandardError {
	return newError(ErrCodeIngestFailed, "Document ingestion failed", fmt.Sprintf("source: %s, error: %s", source, err.Error()), false).
		WithMetadata("source", source)
}

func NewUnsupportedFormatError(source string) *StandardError {
	return newError(ErrCodeUnsupportedFormat, "Unsupported document format", fmt.Sprintf("source: %s", source), false).
		WithMetadata("source", source)
}

func NewFileTooLargeError(source string, sizeBytes, limitBytes int64) *StandardError {
	return newError(ErrCodeFileTooLarge, "Document exceeds size limit",
		fmt.Sprintf("source: %s, size: %d bytes, limit: %d bytes", source, sizeBytes, limitBytes), false).
		WithMetadata("source", source)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found", fmt.Sprintf("sessionId: %s", sessionID), false)
}

func NewSessionStoreError(err error) *StandardError {
	return newError(ErrCodeSessionStoreFailed, "Session store operation failed", err.Error(), true)
}

func NewArchiveFailedError(err error) *StandardError {
	return newError(ErrCodeArchiveFailed, "Conversation archive failed", err.Error(), true)
}

func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request", details, false)
}

// NewWorkflowEngineError wraps a failure talking to the Zeebe gateway.
func NewWorkflowEngineError(operation string, err error, retryable bool) *StandardError {
	return newError(ErrCodeWorkflowEngine, "Workflow engine error", fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), retryable).
		WithMetadata("operation", operation)
}

// AsStandard reports whether err wraps a *StandardError.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsTimeout covers context deadlines as well as the timeout codes.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code == ErrCodeSearchTimeout || stdErr.Code == ErrCodeLLMTimeout
	}
	return strings.Contains(err.Error(), "TIMEOUT")
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSearchFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeLLMGenerationFailed,
		ErrCodeSessionStoreFailed,
		ErrCodeArchiveFailed,
		ErrCodeWorkflowEngine:
		return 3

	case ErrCodeSearchTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "PASSAGES"):
		return "STORE"
	case strings.Contains(codeStr, "SEARCH") || strings.Contains(codeStr, "EMBEDDING"):
		return "SEARCH"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "ROUTER"):
		return "AI"
	case strings.Contains(codeStr, "INGEST") || strings.Contains(codeStr, "FORMAT") || strings.Contains(codeStr, "FILE"):
		return "INGESTION"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "ARCHIVE"):
		return "SESSION"
	case strings.Contains(codeStr, "WORKFLOW"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
