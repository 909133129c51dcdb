package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryClient   ErrorCategory = "client"
	CategoryServer   ErrorCategory = "server"
	CategoryExternal ErrorCategory = "external"
)

// Error codes returned to clients
const (
	// Client errors (4xx)
	CodeInvalidRequest        = "INVALID_REQUEST"
	CodeEmptyInput            = "EMPTY_INPUT"
	CodeUnsupportedPlatform   = "UNSUPPORTED_PLATFORM"
	CodeInvalidCandidateIndex = "INVALID_CANDIDATE_INDEX"
	CodeNotFound              = "NOT_FOUND"

	// Upstream errors (5xx)
	CodeAllCandidatesFailed = "ALL_CANDIDATES_FAILED"
	CodeExtractionFailed    = "EXTRACTION_FAILED"

	// Server errors (5xx)
	CodeInternalError = "INTERNAL_ERROR"
	CodeCacheError    = "CACHE_ERROR"
)

// Messages shown to users for each resolution outcome.
const (
	MessageEmptyInput            = "please provide a URL"
	MessageUnsupportedPlatform   = "unsupported platform"
	MessageInvalidCandidateIndex = "invalid interface selection"
	MessageAllCandidatesFailed   = "resolution failed, try again later"
	MessageExtractionFailed      = "video extraction failed"
	MessageInternalError         = "an unexpected error occurred"
)

// AppError represents a structured application error
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   ErrorCategory  `json:"-"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause sets the underlying cause of the error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// ErrorResponse is the JSON structure returned to clients
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// New creates a new AppError
func New(code string, message string, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Category:   category,
		HTTPStatus: httpStatus,
	}
}

// Client error constructors

func BadRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, CategoryClient, http.StatusBadRequest)
}

func EmptyInput() *AppError {
	return New(CodeEmptyInput, MessageEmptyInput, CategoryClient, http.StatusBadRequest)
}

func UnsupportedPlatform() *AppError {
	return New(CodeUnsupportedPlatform, MessageUnsupportedPlatform, CategoryClient, http.StatusBadRequest)
}

func InvalidCandidateIndex() *AppError {
	return New(CodeInvalidCandidateIndex, MessageInvalidCandidateIndex, CategoryClient, http.StatusBadRequest)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), CategoryClient, http.StatusNotFound)
}

// External service error constructors

func AllCandidatesFailed() *AppError {
	return New(CodeAllCandidatesFailed, MessageAllCandidatesFailed, CategoryExternal, http.StatusBadGateway)
}

func ExtractionFailed() *AppError {
	return New(CodeExtractionFailed, MessageExtractionFailed, CategoryExternal, http.StatusBadGateway)
}

// Server error constructors

func InternalError(message string) *AppError {
	return New(CodeInternalError, message, CategoryServer, http.StatusInternalServerError)
}

func CacheError(message string) *AppError {
	return New(CodeCacheError, message, CategoryServer, http.StatusInternalServerError)
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, requestID string, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = InternalError(MessageInternalError).WithCause(err)
	}

	WriteJSON(w, requestID, appErr.HTTPStatus, ErrorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: requestID,
		Details:   appErr.Details,
	})
}

// WriteJSON writes a JSON response with the request ID header
func WriteJSON(w http.ResponseWriter, requestID string, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set(RequestIDHeader, requestID)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func categoryOf(err error) ErrorCategory {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category
	}
	return ""
}

// IsClientError reports whether err was caused by the request itself
func IsClientError(err error) bool { return categoryOf(err) == CategoryClient }

// IsServerError reports whether err is a fault of this service
func IsServerError(err error) bool { return categoryOf(err) == CategoryServer }

// IsExternalError reports whether err comes from parse services or yt-dlp
func IsExternalError(err error) bool { return categoryOf(err) == CategoryExternal }
