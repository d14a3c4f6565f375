package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard sentinel errors for common cases.
var (
	ErrNotFound                  = errors.New("resource not found")
	ErrConflict                  = errors.New("resource already exists")
	ErrInvalidInput              = errors.New("invalid input")
	ErrForbidden                 = errors.New("forbidden")
	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrInsufficientReservedStock = errors.New("insufficient reserved stock")
	ErrPersistence               = errors.New("persistence failure")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Status  int               `json:"-"`
	Err     error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// Conflict creates a 409 error for a duplicate value on a unique field.
func Conflict(resource, field, value string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: fmt.Sprintf("%s with %s %q already exists", resource, field, value),
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// InvalidFields creates a 400 error carrying per-field detail.
func InvalidFields(fields map[string]string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: "request validation failed",
		Fields:  fields,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Forbidden creates a 403 error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     ErrForbidden,
	}
}

// InsufficientStock creates a 409 error for a failed stock reservation.
func InsufficientStock(variantID string, requested, available int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock for variant %s: requested %d, available %d", variantID, requested, available),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// InsufficientReservedStock creates a 409 error for a fulfillment exceeding
// the reserved amount.
func InsufficientReservedStock(variantID string, requested, reserved int) *AppError {
	return &AppError{
		Code:    "INSUFFICIENT_RESERVED_STOCK",
		Message: fmt.Sprintf("insufficient reserved stock for variant %s: requested %d, reserved %d", variantID, requested, reserved),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientReservedStock,
	}
}

// Persistence creates a 500 error wrapping an underlying store failure.
func Persistence(operation string, err error) *AppError {
	return &AppError{
		Code:    "PERSISTENCE_ERROR",
		Message: fmt.Sprintf("%s failed", operation),
		Status:  http.StatusInternalServerError,
		Err:     fmt.Errorf("%w: %s: %w", ErrPersistence, operation, err),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInsufficientReservedStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
