package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds. Services wrap these with context via the constructors
// below; handlers map them to HTTP status codes with HTTPStatus.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("invalid state")
	ErrConflict      = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// Validation returns a ValidationError-kind error for malformed or out-of-range input.
func Validation(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Authorization returns an AuthorizationError-kind error for actors lacking a
// capability or not being the designated party.
func Authorization(format string, args ...interface{}) error {
	return &kindError{kind: ErrAuthorization, msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a NotFoundError-kind error for unresolvable references.
func NotFound(format string, args ...interface{}) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// InvalidState returns an InvalidStateError-kind error for operations that are
// not legal in the entity's current lifecycle state.
func InvalidState(format string, args ...interface{}) error {
	return &kindError{kind: ErrInvalidState, msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a ConflictError-kind error for concurrent double writes.
func Conflict(format string, args ...interface{}) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps an error kind to the HTTP status the handlers should return.
// Unclassified errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidState):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the error was caused by the caller rather than
// the system. Useful for deciding log severity.
func IsClientError(err error) bool {
	return HTTPStatus(err) < http.StatusInternalServerError
}
