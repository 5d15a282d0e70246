package bom

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes shared with the HTTP layer
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeCycleDetected        = "CYCLE_DETECTED"
	CodeComponentUnavailable = "COMPONENT_UNAVAILABLE"
)

var (
	// ErrProductNotFound is returned when a product key does not resolve to a product
	ErrProductNotFound = errors.New("bom: product not found")
	// ErrBOMNotFound is returned when a product has no bill of materials
	ErrBOMNotFound = errors.New("bom: bill of materials not found")
	// ErrDuplicateBOM is returned when a graph snapshot holds two BOMs for the same key
	ErrDuplicateBOM = errors.New("bom: duplicate bill of materials for product")
)

// ValidationError reports a BOM or line that violates a structural invariant.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "bom: validation failed: " + e.Message
	}
	return fmt.Sprintf("bom: invalid %s: %s", e.Field, e.Message)
}

// Code returns the stable error code
func (e *ValidationError) Code() string { return CodeValidation }

// CycleDetectedError is returned when BOM traversal revisits one of its ancestors.
// Path lists the keys from the first occurrence of the repeated key back to itself.
type CycleDetectedError struct {
	Path []ProductKey
}

func (e *CycleDetectedError) Error() string {
	parts := make([]string, len(e.Path))
	for i, k := range e.Path {
		parts[i] = k.String()
	}
	return "bom: cycle detected: " + strings.Join(parts, " -> ")
}

// Code returns the stable error code
func (e *CycleDetectedError) Code() string { return CodeCycleDetected }

// ComponentUnavailableError is returned when a BOM line references a component
// that no longer exists in the catalog.
type ComponentUnavailableError struct {
	Component ComponentReference
}

func (e *ComponentUnavailableError) Error() string {
	return "bom: component unavailable: " + e.Component.String()
}

// Code returns the stable error code
func (e *ComponentUnavailableError) Code() string { return CodeComponentUnavailable }

// IsCycle reports whether err is, or wraps, a CycleDetectedError
func IsCycle(err error) bool {
	var cycleErr *CycleDetectedError
	return errors.As(err, &cycleErr)
}

// IsComponentUnavailable reports whether err is, or wraps, a ComponentUnavailableError
func IsComponentUnavailable(err error) bool {
	var unavailable *ComponentUnavailableError
	return errors.As(err, &unavailable)
}

// IsValidation reports whether err is, or wraps, a ValidationError
func IsValidation(err error) bool {
	var validation *ValidationError
	return errors.As(err, &validation)
}
