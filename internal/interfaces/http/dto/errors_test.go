package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeJobAlreadyRunning, http.StatusConflict},
		{ErrCodeCycleDetected, http.StatusUnprocessableEntity},
		{ErrCodeComponentUnavailable, http.StatusUnprocessableEntity},
		{ErrCodeStockNotManaged, http.StatusUnprocessableEntity},
		{ErrCodeExternalSyncFailure, http.StatusBadGateway},
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
		{"VALIDATION_ERROR", ErrCodeValidation},
		{"CYCLE_DETECTED", ErrCodeCycleDetected},
		{"COMPONENT_UNAVAILABLE", ErrCodeComponentUnavailable},
		{"EXTERNAL_SYNC_FAILURE", ErrCodeExternalSyncFailure},
		{"JOB_ALREADY_RUNNING", ErrCodeJobAlreadyRunning},
		{"NOT_FOUND", ErrCodeNotFound},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_ERROR", "CUSTOM_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input))
		})
	}
}

func TestDomainCodesHaveStatus(t *testing.T) {
	for domainCode, apiCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "%s maps to %s which has no HTTP status", domainCode, apiCode)
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "limit", Message: "must be at most 500"},
	})

	body, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeValidation, errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.Len(t, errInfo["details"], 1)
}

func TestSuccessResponseJSON(t *testing.T) {
	body, err := json.Marshal(NewSuccessResponse(map[string]int{"total": 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"total":3}}`, string(body))
}
