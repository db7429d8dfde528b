package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError into one of the failure families surfaced by the API.
type Kind string

const (
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindExternalService Kind = "external_service"
	KindInternal        Kind = "internal"
)

// StatusCode returns the HTTP status associated with the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Kind       Kind   `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a different client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Kind:       KindUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Kind:       KindUnauthorized,
		Code:       "FORBIDDEN",
		Message:    "Insufficient permissions",
		StatusCode: http.StatusForbidden,
	}

	ErrInvalidCredentials = &AppError{
		Kind:       KindUnauthorized,
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid credentials",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountLocked = &AppError{
		Kind:       KindUnauthorized,
		Code:       "ACCOUNT_LOCKED",
		Message:    "Account is locked",
		StatusCode: http.StatusUnauthorized,
	}

	ErrEmailNotVerified = &AppError{
		Kind:       KindUnauthorized,
		Code:       "EMAIL_NOT_VERIFIED",
		Message:    "Email not verified",
		StatusCode: http.StatusUnauthorized,
	}

	ErrInvalidRefreshToken = &AppError{
		Kind:       KindUnauthorized,
		Code:       "INVALID_REFRESH_TOKEN",
		Message:    "Invalid refresh token",
		StatusCode: http.StatusUnauthorized,
	}

	ErrConflict = &AppError{
		Kind:       KindConflict,
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrNotFound = &AppError{
		Kind:       KindNotFound,
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Kind:       KindValidation,
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInvalidOTP = &AppError{
		Kind:       KindValidation,
		Code:       "INVALID_OTP",
		Message:    "Invalid or expired OTP",
		StatusCode: http.StatusBadRequest,
	}

	ErrExternalService = &AppError{
		Kind:       KindExternalService,
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    "An upstream service is unavailable",
		StatusCode: http.StatusBadGateway,
	}

	ErrInternalServer = &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	ErrRateLimit = &AppError{
		Kind:       KindValidation,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}
)

// New builds a new application error with the provided metadata.
func New(kind Kind, code, message string) *AppError {
	return &AppError{
		Kind:       kind,
		Code:       code,
		Message:    message,
		StatusCode: kind.StatusCode(),
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Kind:       KindInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// KindOf reports the failure family of err. Errors that are not AppErrors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return FromError(err).Kind
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// NewConflict reports a duplicate resource.
func NewConflict(message string) *AppError {
	return ErrConflict.WithMessage(message)
}

// NewNotFound reports a missing resource.
func NewNotFound(message string) *AppError {
	return ErrNotFound.WithMessage(message)
}

// NewUnauthorized reports rejected credentials or tokens.
func NewUnauthorized(message string) *AppError {
	return ErrUnauthorized.WithMessage(message)
}

// NewExternalService wraps a failure of an upstream dependency. The cause is kept for logs only.
func NewExternalService(message string, cause error) *AppError {
	return ErrExternalService.WithMessage(message).WithInternal(cause)
}
