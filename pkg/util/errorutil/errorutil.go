package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by the access core, the API client and the gateway.
const (
	CodeValidation     = "VALIDATION_FAILED"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeAuthentication = "UNAUTHORIZED"
	CodeAuthorization  = "FORBIDDEN"
	CodeSyncDelivery   = "SYNC_DELIVERY_FAILED"
	CodeNetwork        = "NETWORK_ERROR"
	CodeInternal       = "INTERNAL_ERROR"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
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

// NewAuthenticationError reports a missing, bad or expired credential.
// Callers holding a session must tear it down when they see one.
func NewAuthenticationError(message string) error {
	return NewDomainError(CodeAuthentication, message, http.StatusUnauthorized, nil)
}

// NewAuthorizationError reports an authenticated caller lacking privileges.
// The message must not name the capability that was missing.
func NewAuthorizationError(message string) error {
	return NewDomainError(CodeAuthorization, message, http.StatusForbidden, nil)
}

// NewUnauthorized is kept for HTTP handlers; it is an authentication error.
func NewUnauthorized(message string) error {
	return NewAuthenticationError(message)
}

// NewForbidden is kept for HTTP handlers; it is an authorization error.
func NewForbidden(message string) error {
	return NewAuthorizationError(message)
}

// NewSyncDeliveryError wraps a failed subscriber or remote forward.
func NewSyncDeliveryError(message string, err error) error {
	return &DomainError{
		Code:       CodeSyncDelivery,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewTransientNetworkError wraps a failed call to an external collaborator.
func NewTransientNetworkError(message string, err error) error {
	return &DomainError{
		Code:       CodeNetwork,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
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

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

func IsAuthentication(err error) bool {
	return HasCode(err, CodeAuthentication)
}

func IsAuthorization(err error) bool {
	return HasCode(err, CodeAuthorization)
}

func IsTransient(err error) bool {
	if HasCode(err, CodeNetwork) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
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
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}
