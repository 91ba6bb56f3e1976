package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the closed set of provider error kinds.
type Kind string

const (
	BadParameters           Kind = "BAD_PARAMETERS"
	DuplicatePost           Kind = "DUPLICATE_POST"
	InvalidToken            Kind = "INVALID_TOKEN"
	InsufficientPermissions Kind = "INSUFFICIENT_PERMISSIONS"
	NotFound                Kind = "NOT_FOUND"
	InvalidRedirect         Kind = "INVALID_REDIRECT"
	RefreshToken            Kind = "REFRESH_TOKEN"
	OverCapacity            Kind = "OVER_CAPACITY"
	RateLimited             Kind = "RATE_LIMITED"
	UnknownResponse         Kind = "UNKNOWN_RESPONSE"
)

var httpStatus = map[Kind]int{
	BadParameters:           http.StatusBadRequest,
	DuplicatePost:           http.StatusBadRequest,
	InvalidToken:            http.StatusUnauthorized,
	InsufficientPermissions: http.StatusForbidden,
	NotFound:                http.StatusNotFound,
	InvalidRedirect:         http.StatusNotAcceptable,
	RefreshToken:            http.StatusRequestTimeout,
	OverCapacity:            http.StatusBadGateway,
	RateLimited:             http.StatusServiceUnavailable,
	UnknownResponse:         http.StatusBadGateway,
}

// Error is a provider error with its fixed HTTP mapping. RetryAt is an epoch
// timestamp set only for RateLimited responses that announce one.
type Error struct {
	Kind    Kind   `json:"-"`
	Message string `json:"message"`
	RetryAt int64  `json:"retry_at,omitempty"`
	Service string `json:"service,omitempty"`
}

func (e *Error) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Service, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus returns the status code fixed for the error kind. Unknown kinds
// map to 500 so a miswired provider cannot smuggle a success code through.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithService tags the error with the provider it came from.
func (e *Error) WithService(service string) *Error {
	e.Service = service
	return e
}

// WithRetryAt records the provider-announced epoch after which a retry may
// succeed. Consumed by the scheduler's re-enqueue policy.
func (e *Error) WithRetryAt(epoch int64) *Error {
	e.RetryAt = epoch
	return e
}

// As unwraps err into an *Error when possible.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
