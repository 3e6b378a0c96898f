package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced in the API error envelope.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeForbiddenField  = "FORBIDDEN_FIELD"
	CodeInvalidAssignee = "INVALID_ASSIGNEE"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeConflict        = "CONFLICT"
	CodeInternal        = "INTERNAL_ERROR"
)

// Sentinels for errors.Is comparisons. Matching is by code, so an error built
// with details still matches its sentinel.
var (
	ErrValidation      = NewDomainError(CodeValidation, "validation failed", http.StatusBadRequest, nil)
	ErrForbiddenField  = NewDomainError(CodeForbiddenField, "forbidden field", http.StatusForbidden, nil)
	ErrInvalidAssignee = NewDomainError(CodeInvalidAssignee, "invalid assignee", http.StatusBadRequest, nil)
	ErrNotFound        = NewDomainError(CodeNotFound, "not found", http.StatusNotFound, nil)
	ErrUnauthorized    = NewDomainError(CodeUnauthorized, "unauthorized", http.StatusUnauthorized, nil)
	ErrForbidden       = NewDomainError(CodeForbidden, "forbidden", http.StatusForbidden, nil)
	ErrConflict        = NewDomainError(CodeConflict, "conflict", http.StatusConflict, nil)
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

// NewForbiddenField rejects a change to a field the actor may not mutate.
func NewForbiddenField(field string) error {
	return NewDomainError(CodeForbiddenField, "forbidden field", http.StatusForbidden, map[string]any{"field": field})
}

// NewInvalidAssignee rejects an assignee reference that is not a technician.
func NewInvalidAssignee(userID string) error {
	return NewDomainError(CodeInvalidAssignee, "invalid assignee", http.StatusBadRequest, map[string]any{"assignee_id": userID})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsValidation reports whether err belongs to the validation family: generic
// validation failures, forbidden field edits and invalid assignee references.
func IsValidation(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	switch domainErr.Code {
	case CodeValidation, CodeForbiddenField, CodeInvalidAssignee:
		return true
	default:
		return false
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewDomainError(CodeNotFound, "resource not found", http.StatusNotFound, map[string]any{})
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// FromStatus wraps a transport level status (for example a router 404) in a
// DomainError so it renders through the same envelope.
func FromStatus(status int, message string) *DomainError {
	return NewDomainError(codeForStatus(status), message, status, nil)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}
