package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorType represents different types of application errors
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeUnavailable    ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	StatusCode int                    `json:"status_code"`
	Internal   error                  `json:"-"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Internal.Error())
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// WithDetail returns the error with one more detail entry.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, StatusCode: http.StatusBadRequest, Details: details}
}

func NewAuthenticationError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeAuthentication, Message: message, StatusCode: http.StatusUnauthorized, Internal: internal}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message, StatusCode: http.StatusNotFound}
}

func NewConflictError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message, StatusCode: http.StatusConflict, Internal: internal}
}

func NewInternalError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, StatusCode: http.StatusInternalServerError, Internal: internal}
}

// NewExternalError is used for failures reported by the hosted provider or store.
func NewExternalError(message string, internal error) *AppError {
	return &AppError{Type: ErrorTypeExternal, Message: message, StatusCode: http.StatusBadGateway, Internal: internal}
}

func NewRateLimitError(message string) *AppError {
	return &AppError{Type: ErrorTypeRateLimit, Message: message, StatusCode: http.StatusTooManyRequests}
}

func NewUnavailableError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnavailable, Message: message, StatusCode: http.StatusServiceUnavailable}
}

// ErrorResponse represents the JSON error response
type ErrorResponse struct {
	Error struct {
		Type      ErrorType              `json:"type"`
		Message   string                 `json:"message"`
		Details   map[string]interface{} `json:"details,omitempty"`
		RequestID string                 `json:"request_id,omitempty"`
		Timestamp string                 `json:"timestamp"`
	} `json:"error"`
}

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// As extracts an *AppError from err, wrapping unknown errors as internal.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return NewInternalError("internal error", err)
}

// Write renders err as the JSON error body and aborts the request.
func Write(c *gin.Context, err error) {
	ae := As(err)
	var resp ErrorResponse
	resp.Error.Type = ae.Type
	resp.Error.Message = ae.Message
	resp.Error.Details = ae.Details
	resp.Error.RequestID = c.GetString(RequestIDKey)
	resp.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)
	c.AbortWithStatusJSON(ae.StatusCode, resp)
}
