// Package errors defines the service error taxonomy surfaced to API clients.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure in API responses.
type ErrorCode string

const (
	CodePackageNotFound   ErrorCode = "package_not_found"
	CodeSnippetNotFound   ErrorCode = "snippet_not_found"
	CodeReleaseNotFound   ErrorCode = "release_not_found"
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeBuildNotFound     ErrorCode = "build_not_found"
	CodeAccountNotFound   ErrorCode = "account_not_found"
	CodeOrgNotFound       ErrorCode = "org_not_found"
	CodeOrderNotFound     ErrorCode = "order_not_found"
	CodeLoginPageNotFound ErrorCode = "login_page_not_found"
	CodeForbidden         ErrorCode = "forbidden"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeSessionExpired    ErrorCode = "session_expired"
	CodeInvalidToken      ErrorCode = "invalid_token"
	CodeInvalidRequest    ErrorCode = "invalid_request"
	CodeUpdateFailed      ErrorCode = "update_failed"
	CodeRateLimited       ErrorCode = "rate_limit_exceeded"
	CodeInternal          ErrorCode = "internal_error"
)

// ServiceError is the structured error returned by services and rendered by
// the HTTP layer as {error_code, message}.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	cause      error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.cause }

// WithDetails attaches a detail entry and returns the error for chaining.
func (e *ServiceError) WithDetails(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NotFound builds a 404 error with an entity-specific code.
func NotFound(code ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message, HTTPStatus: http.StatusNotFound}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *ServiceError {
	if message == "" {
		message = "You do not have permission to perform this action"
	}
	return &ServiceError{Code: CodeForbidden, Message: message, HTTPStatus: http.StatusForbidden}
}

// Unauthorized builds a 401 error.
func Unauthorized(message string) *ServiceError {
	if message == "" {
		message = "Authentication required"
	}
	return &ServiceError{Code: CodeUnauthorized, Message: message, HTTPStatus: http.StatusUnauthorized}
}

// SessionExpired builds a 401 error for expired sessions.
func SessionExpired() *ServiceError {
	return &ServiceError{
		Code:       CodeSessionExpired,
		Message:    "Session has expired, please log in again",
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidToken builds a 401 error for malformed or unverifiable tokens.
func InvalidToken(cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeInvalidToken,
		Message:    "Invalid authentication token",
		HTTPStatus: http.StatusUnauthorized,
		cause:      cause,
	}
}

// InvalidRequest builds a 400 error for validation failures.
func InvalidRequest(message string) *ServiceError {
	return &ServiceError{Code: CodeInvalidRequest, Message: message, HTTPStatus: http.StatusBadRequest}
}

// UpdateFailed builds a 400 error for rejected mutations.
func UpdateFailed(message string, cause error) *ServiceError {
	return &ServiceError{
		Code:       CodeUpdateFailed,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		cause:      cause,
	}
}

// RateLimitExceeded builds a 429 error.
func RateLimitExceeded(limit int, window string) *ServiceError {
	e := &ServiceError{
		Code:       CodeRateLimited,
		Message:    "Too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
	return e.WithDetails("limit", limit).WithDetails("window", window)
}

// Internal builds a 500 error wrapping an unexpected cause.
func Internal(message string, cause error) *ServiceError {
	if message == "" {
		message = "Internal server error"
	}
	return &ServiceError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		cause:      cause,
	}
}

// GetServiceError extracts a *ServiceError from an error chain, or nil.
func GetServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}
