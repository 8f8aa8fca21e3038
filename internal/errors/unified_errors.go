// Package errors provides the single error type used across the graph
// service. Every error that crosses a package boundary is a *UnifiedError so
// callers can branch on Type instead of parsing messages.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ============================================================================
// ERROR TYPES AND CLASSIFICATION
// ============================================================================

// ErrorType defines the category of error for proper handling and response.
type ErrorType string

const (
	// Business conditions, surfaced to callers as typed errors
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypeEndpointNotFound ErrorType = "ENDPOINT_NOT_FOUND"

	// System conditions, surfaced generically
	ErrorTypeQueryFailed     ErrorType = "QUERY_FAILED"
	ErrorTypeInvalidDuration ErrorType = "INVALID_DURATION"
	ErrorTypeInternal        ErrorType = "INTERNAL"
	ErrorTypeTimeout         ErrorType = "TIMEOUT"
	ErrorTypeUnavailable     ErrorType = "UNAVAILABLE"

	// Internal only; never leaves the graph service
	ErrorTypeCacheUnavailable ErrorType = "CACHE_UNAVAILABLE"
)

// ErrorSeverity defines the severity level for logging and monitoring.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// ============================================================================
// UNIFIED ERROR STRUCTURE
// ============================================================================

// UnifiedError is the error type returned by the service layer.
type UnifiedError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`

	Operation  string `json:"operation,omitempty"`
	Resource   string `json:"resource,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`

	Severity  ErrorSeverity `json:"severity"`
	Retryable bool          `json:"retryable"`
	Cause     error         `json:"-"`

	File string `json:"-"`
	Line int    `json:"-"`
}

// Error implements the error interface.
func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the underlying cause.
func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// PublicMessage is the message safe to show to an API client. System errors
// collapse to a generic sentence so query text and driver output never leak.
func (e *UnifiedError) PublicMessage() string {
	switch e.Type {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeEndpointNotFound:
		if e.Details != "" {
			return e.Message + ": " + e.Details
		}
		return e.Message
	case ErrorTypeTimeout:
		return "the operation timed out"
	case ErrorTypeUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}

// ============================================================================
// ERROR BUILDER FOR FLUENT CONSTRUCTION
// ============================================================================

// ErrorBuilder provides a fluent interface for constructing UnifiedError instances.
type ErrorBuilder struct {
	error *UnifiedError
}

// NewError creates a new error builder with the specified type and message.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(2)

	return &ErrorBuilder{
		error: &UnifiedError{
			Type:     errType,
			Code:     code,
			Message:  message,
			Severity: SeverityMedium,
			File:     file,
			Line:     line,
		},
	}
}

// WithDetails adds additional details to the error.
func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.error.Details = details
	return b
}

// WithOperation specifies the operation that failed.
func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.error.Operation = operation
	return b
}

// WithResource names the entity kind and id the error refers to.
func (b *ErrorBuilder) WithResource(resource, id string) *ErrorBuilder {
	b.error.Resource = resource
	b.error.ResourceID = id
	return b
}

// WithSeverity sets the error severity.
func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.error.Severity = severity
	return b
}

// WithRetryable marks the error as retryable.
func (b *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	b.error.Retryable = retryable
	return b
}

// WithCause adds the underlying cause error.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.error.Cause = cause
	return b
}

// Build returns the constructed UnifiedError.
func (b *ErrorBuilder) Build() *UnifiedError {
	return b.error
}

// ============================================================================
// CONVENIENCE CONSTRUCTORS
// ============================================================================

// Validation creates an InvalidInput error.
func Validation(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeValidation, code, message).
		WithSeverity(SeverityLow)
}

// NotFound creates a not found error.
func NotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeNotFound, code, message).
		WithSeverity(SeverityLow)
}

// EndpointNotFound creates an error for a relationship whose source or
// target node does not exist.
func EndpointNotFound(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeEndpointNotFound, code, message).
		WithSeverity(SeverityLow)
}

// QueryFailed creates an error for a failed or malformed graph store response.
// Callers mark it retryable when the store reported a transient failure.
func QueryFailed(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeQueryFailed, code, message).
		WithSeverity(SeverityHigh)
}

// InvalidDuration creates an error for a TTL that is non-positive or too large.
func InvalidDuration(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInvalidDuration, code, message).
		WithSeverity(SeverityCritical)
}

// CacheUnavailable creates an error for a failed cache operation.
func CacheUnavailable(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeCacheUnavailable, code, message).
		WithSeverity(SeverityLow).
		WithRetryable(true)
}

// Internal creates an internal error.
func Internal(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeInternal, code, message).
		WithSeverity(SeverityHigh)
}

// Timeout creates a timeout error.
func Timeout(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeTimeout, code, message).
		WithSeverity(SeverityMedium).
		WithRetryable(true)
}

// Unavailable creates an error for an unreachable dependency.
func Unavailable(code, message string) *ErrorBuilder {
	return NewError(ErrorTypeUnavailable, code, message).
		WithSeverity(SeverityHigh).
		WithRetryable(true)
}

// ============================================================================
// ERROR CLASSIFICATION AND CHECKING
// ============================================================================

// As extracts a *UnifiedError from an error chain.
func As(err error) (*UnifiedError, bool) {
	var unifiedErr *UnifiedError
	if errors.As(err, &unifiedErr) {
		return unifiedErr, true
	}
	return nil, false
}

// IsType checks if an error is of a specific type.
func IsType(err error, errType ErrorType) bool {
	unifiedErr, ok := As(err)
	return ok && unifiedErr.Type == errType
}

// IsValidation checks if an error is an InvalidInput error.
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsEndpointNotFound checks if an error is an EndpointNotFound error.
func IsEndpointNotFound(err error) bool {
	return IsType(err, ErrorTypeEndpointNotFound)
}

// IsQueryFailed checks if an error is a QueryFailed error.
func IsQueryFailed(err error) bool {
	return IsType(err, ErrorTypeQueryFailed)
}

// IsInvalidDuration checks if an error is an InvalidDuration error.
func IsInvalidDuration(err error) bool {
	return IsType(err, ErrorTypeInvalidDuration)
}

// IsCacheUnavailable checks if an error is a CacheUnavailable error.
func IsCacheUnavailable(err error) bool {
	return IsType(err, ErrorTypeCacheUnavailable)
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	unifiedErr, ok := As(err)
	return ok && unifiedErr.Retryable
}

// GetSeverity returns the severity of an error.
func GetSeverity(err error) ErrorSeverity {
	if unifiedErr, ok := As(err); ok {
		return unifiedErr.Severity
	}
	return SeverityMedium
}

// ============================================================================
// ERROR WRAPPING
// ============================================================================

// Wrap attaches operation context to err. A *UnifiedError keeps its type and
// code; any other error becomes an internal error.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}

	if existing, ok := As(err); ok {
		return &UnifiedError{
			Type:       existing.Type,
			Code:       existing.Code,
			Message:    message,
			Details:    existing.Message,
			Operation:  operation,
			Resource:   existing.Resource,
			ResourceID: existing.ResourceID,
			Severity:   existing.Severity,
			Retryable:  existing.Retryable,
			Cause:      err,
			File:       existing.File,
			Line:       existing.Line,
		}
	}

	_, file, line, _ := runtime.Caller(1)
	return &UnifiedError{
		Type:      ErrorTypeInternal,
		Code:      CodeInternal,
		Message:   message,
		Details:   err.Error(),
		Operation: operation,
		Severity:  SeverityMedium,
		Cause:     err,
		File:      file,
		Line:      line,
	}
}
