package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used for request and BOM validation failures
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed path or query parameters
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeJobAlreadyRunning is used when a bulk sync is already pending
	ErrCodeJobAlreadyRunning = "ERR_JOB_ALREADY_RUNNING"
)

// Computation error codes
const (
	// ErrCodeCycleDetected is used when a BOM references one of its ancestors
	ErrCodeCycleDetected = "ERR_CYCLE_DETECTED"
	// ErrCodeComponentUnavailable is used when a BOM line points at a missing component
	ErrCodeComponentUnavailable = "ERR_COMPONENT_UNAVAILABLE"
	// ErrCodeStockNotManaged is used when forecasting a product without stock tracking
	ErrCodeStockNotManaged = "ERR_STOCK_NOT_MANAGED"
)

// Upstream error codes
const (
	// ErrCodeExternalSyncFailure is used when the storefront rejects or drops a stock update
	ErrCodeExternalSyncFailure = "ERR_EXTERNAL_SYNC_FAILURE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeBadRequest: http.StatusBadRequest,

	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeJobAlreadyRunning: http.StatusConflict,

	ErrCodeCycleDetected:        http.StatusUnprocessableEntity,
	ErrCodeComponentUnavailable: http.StatusUnprocessableEntity,
	ErrCodeStockNotManaged:      http.StatusUnprocessableEntity,

	ErrCodeExternalSyncFailure: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps the stable codes carried by domain errors to API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeBadRequest,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"CYCLE_DETECTED":        ErrCodeCycleDetected,
	"COMPONENT_UNAVAILABLE": ErrCodeComponentUnavailable,
	"EXTERNAL_SYNC_FAILURE": ErrCodeExternalSyncFailure,
	"JOB_ALREADY_RUNNING":   ErrCodeJobAlreadyRunning,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
