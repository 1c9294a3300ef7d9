package dto

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeTokenInvalid, http.StatusUnauthorized},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeInvalidState, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeUpstreamUnavailable, http.StatusServiceUnavailable},
		{ErrCodePersistence, http.StatusInternalServerError},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{shared.CodeValidation, ErrCodeValidation},
		{shared.CodeForbidden, ErrCodeForbidden},
		{shared.CodeNotFound, ErrCodeNotFound},
		{shared.CodeInvalidState, ErrCodeInvalidState},
		{shared.CodeConflict, ErrCodeConcurrencyConflict},
		{shared.CodeUpstream, ErrCodeUpstreamUnavailable},
		{shared.CodePersistence, ErrCodePersistence},
		{shared.CodeRateLimited, ErrCodeRateLimited},
		{"", ErrCodeInternal},
		{"SOMETHING_ELSE", ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeValidation))
	assert.True(t, IsClientError(ErrCodeForbidden))
	assert.True(t, IsClientError(ErrCodeConcurrencyConflict))
	assert.True(t, IsClientError(ErrCodeRateLimited))
	assert.False(t, IsClientError(ErrCodeUpstreamUnavailable))
	assert.False(t, IsClientError(ErrCodePersistence))
	assert.False(t, IsClientError(ErrCodeInternal))
}

func TestErrorCodeFormat(t *testing.T) {
	for code := range ErrorCodeHTTPStatus {
		assert.True(t, strings.HasPrefix(code, "ERR_"), "code %s must start with ERR_", code)
		assert.Equal(t, strings.ToUpper(code), code)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Order not found", "req-123")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Order not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestErrorResponseJSON(t *testing.T) {
	b, err := json.Marshal(NewErrorResponse(ErrCodeForbidden, "nope"))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, false, m["success"])
	_, hasData := m["data"]
	assert.False(t, hasData)
	errInfo := m["error"].(map[string]any)
	assert.Equal(t, ErrCodeForbidden, errInfo["code"])
	_, hasRequestID := errInfo["request_id"]
	assert.False(t, hasRequestID)
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"id": "X_1"})

	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]string{"id": "X_1"}, resp.Data)
}
