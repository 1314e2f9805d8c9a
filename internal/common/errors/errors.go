// Package errors provides the structured error type shared by the HTTP API and
// the lead workers, plus its mapping onto HTTP statuses and BPMN error codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	ErrCodeSessionInvalid ErrorCode = "SESSION_INVALID"

	ErrCodeApplicationValidationFailed ErrorCode = "APPLICATION_VALIDATION_FAILED"
	ErrCodeRateLimitExceeded           ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeSubmissionFailed            ErrorCode = "SUBMISSION_FAILED"

	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeCRMAPIError            ErrorCode = "CRM_API_ERROR"
	ErrCodeCRMNotConfigured       ErrorCode = "CRM_NOT_CONFIGURED"

	ErrCodeWorkflowUnavailable ErrorCode = "WORKFLOW_UNAVAILABLE"
	ErrCodeWorkflowTimeout     ErrorCode = "WORKFLOW_TIMEOUT"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError is the shape thrown to the Zeebe engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the variables set on a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
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

func NewSessionInvalidError(reason string) *StandardError {
	return newError(ErrCodeSessionInvalid, "Session is not valid for this step", reason, false)
}

// NewApplicationValidationFailedError carries the per-field messages in Metadata["errors"].
func NewApplicationValidationFailedError(fieldErrors []string) *StandardError {
	e := newError(ErrCodeApplicationValidationFailed, "Invalid application data",
		strings.Join(fieldErrors, "; "), false)
	return e.WithMetadata("errors", fieldErrors)
}

func NewRateLimitExceededError() *StandardError {
	return newError(ErrCodeRateLimitExceeded,
		"Daily submission limit reached. Please try again tomorrow or contact us directly.",
		"", false)
}

func NewSubmissionFailedError(err error) *StandardError {
	return newError(ErrCodeSubmissionFailed, "Application submission failed", err.Error(), true)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Access denied", details, false)
}

func NewForbiddenError(details string) *StandardError {
	return newError(ErrCodeForbidden, "Insufficient permissions", details, false)
}

func NewResourceNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("id: %s", id), false)
}

func NewInvalidRequestError(message string) *StandardError {
	return newError(ErrCodeInvalidRequest, message, "", false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", err.Error(), true)
}

func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Elasticsearch query error", err.Error(), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", channel, err.Error()), true)
}

func NewCRMAPIError(err error) *StandardError {
	return newError(ErrCodeCRMAPIError, "Failed to create CRM lead", err.Error(), true)
}

func NewCRMNotConfiguredError() *StandardError {
	return newError(ErrCodeCRMNotConfigured, "Zoho CRM client not configured",
		"Missing API key or OAuth token", false)
}

func NewWorkflowUnavailableError(err error) *StandardError {
	return newError(ErrCodeWorkflowUnavailable, "Workflow engine unavailable", err.Error(), true)
}

func NewWorkflowTimeoutError(err error) *StandardError {
	return newError(ErrCodeWorkflowTimeout, "Workflow engine timed out", err.Error(), true)
}

// AsStandard unwraps err into a *StandardError, or wraps it as INTERNAL_ERROR.
func AsStandard(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// HTTPStatus maps an error code onto the status the API answers with.
// Rate limiting answers 400, matching what landing clients already handle.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeApplicationValidationFailed, ErrCodeRateLimitExceeded, ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeResourceNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns how many job retries a code deserves.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMAPIError,
		ErrCodeWorkflowUnavailable,
		ErrCodeWorkflowTimeout:
		return 3
	case ErrCodeSubmissionFailed:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError maps a StandardError onto the engine's error shape.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// GetErrorCategory groups codes for log aggregation.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY_EXECUTION"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "CRM") ||
		strings.Contains(codeStr, "WORKFLOW"):
		return "INTEGRATION"
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "FORBIDDEN"):
		return "AUTH"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID") ||
		strings.Contains(codeStr, "RATE_LIMIT"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
