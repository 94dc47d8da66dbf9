package model

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the scheduler. Match them with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrEmptyInput = errors.New("no processes to schedule")
)

// ValidationError describes a rejected process definition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrorCode represents a structured API error code.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// APIError is a structured error returned by the dsviz API.
type APIError struct {
	Code    ErrorCode    `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FieldError describes a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates an APIError with validation details.
func NewValidationError(msg string, details ...FieldError) *APIError {
	return &APIError{Code: ErrCodeValidation, Message: msg, Details: details}
}

// NewNotFoundError creates a NOT_FOUND APIError.
func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s '%s' not found", resource, id),
	}
}

// ToAPIError maps a scheduler error to its API representation.
func ToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return NewValidationError(vErr.Error(), FieldError{Field: vErr.Field, Message: vErr.Message})
	}
	if errors.Is(err, ErrEmptyInput) {
		return &APIError{Code: ErrCodeEmptyInput, Message: err.Error()}
	}
	return &APIError{Code: ErrCodeInternal, Message: err.Error()}
}
