package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeApplicationValidationFailed, http.StatusBadRequest},
		{ErrCodeRateLimitExceeded, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeResourceNotFound, http.StatusNotFound},
		{ErrCodeDatabaseInsertFailed, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestAsStandard(t *testing.T) {
	wrapped := fmt.Errorf("create: %w", NewRateLimitExceededError())
	stdErr := AsStandard(wrapped)
	assert.Equal(t, ErrCodeRateLimitExceeded, stdErr.Code)

	plain := AsStandard(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
}

func TestValidationErrorCarriesFieldList(t *testing.T) {
	err := NewApplicationValidationFailedError([]string{"email is required", "Invalid phone number format"})
	require.NotNil(t, err.Metadata)
	assert.Equal(t, []string{"email is required", "Invalid phone number format"}, err.Metadata["errors"])
	assert.Contains(t, err.Details, "email is required")
	assert.False(t, err.Retryable)
}

func TestConvertToBPMNError(t *testing.T) {
	bpmn := ConvertToBPMNError(NewNotificationSendFailedError("email", stderrors.New("ses down")))
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", bpmn.Code)
	assert.Equal(t, 3, bpmn.Retries)
	assert.True(t, bpmn.Retryable)

	vars := bpmn.ToErrorVariables()
	assert.Equal(t, "NOTIFICATION_SEND_FAILED", vars["originalErrorCode"])

	nonRetryable := ConvertToBPMNError(NewCRMNotConfiguredError())
	assert.Equal(t, 0, nonRetryable.Retries)
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "SESSION", GetErrorCategory(ErrCodeSessionInvalid))
	assert.Equal(t, "DATABASE", GetErrorCategory(ErrCodeDatabaseInsertFailed))
	assert.Equal(t, "INTEGRATION", GetErrorCategory(ErrCodeCRMAPIError))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeForbidden))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeRateLimitExceeded))
	assert.Equal(t, "OTHER", GetErrorCategory(ErrCodeInternal))
}
