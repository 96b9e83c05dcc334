// Package errors defines the service error taxonomy shared by every HTTP
// surface. Services classify failures into a Category; transports map the
// category to a status code without inspecting the underlying error.
package errors

import (
	"errors"
	"net/http"
)

// Category classifies a service failure.
type Category int

const (
	// CategoryInternal is an unexpected service failure. The underlying
	// error is for logs only and never reaches the client.
	CategoryInternal Category = iota
	// CategoryBadRequest is invalid client input: malformed payloads,
	// unparsable amounts, undecodable settlement messages.
	CategoryBadRequest
	// CategoryUnauthorized is a missing or invalid credential.
	CategoryUnauthorized
	// CategoryForbidden is a valid credential attempting something the
	// whitelist or role does not allow.
	CategoryForbidden
	// CategoryNotFound is a request for a resource that does not exist.
	CategoryNotFound
	// CategoryConflict is a request that collides with current state, such
	// as re-entering a custody-bearing operation.
	CategoryConflict
)

func (c Category) String() string {
	switch c {
	case CategoryBadRequest:
		return "CategoryBadRequest"
	case CategoryUnauthorized:
		return "CategoryUnauthorized"
	case CategoryForbidden:
		return "CategoryForbidden"
	case CategoryNotFound:
		return "CategoryNotFound"
	case CategoryConflict:
		return "CategoryConflict"
	default:
		return "CategoryInternal"
	}
}

// ServiceError carries a category, a client-safe message and the underlying
// error. The message is what the client sees; Err is what gets logged.
type ServiceError struct {
	Category Category
	Message  string
	Err      error
}

func (err ServiceError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message
}

// Unwrap returns the underlying error.
func (err ServiceError) Unwrap() error {
	return err.Err
}

// Is checks that err is a ServiceError with the given category.
func Is(err error, cat Category) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Category == cat
}

// IsInternalError reports whether err should be treated as a service fault
// rather than a client fault.
func IsInternalError(err error) bool {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) && svcErr.Category != CategoryInternal {
		return false
	}
	return true
}

// GeneralError wraps an unexpected failure. The client only ever sees
// "Internal Server Error".
func GeneralError(err error) error {
	if err == nil {
		err = errors.New("internal server error")
	}
	return &ServiceError{
		Category: CategoryInternal,
		Message:  "Internal Server Error",
		Err:      err,
	}
}

// BadRequestError classifies invalid client input. message is returned to
// the client; err is logged.
func BadRequestError(err error, message string) error {
	if err == nil {
		err = errors.New("bad request: " + message)
	}
	return &ServiceError{
		Category: CategoryBadRequest,
		Message:  message,
		Err:      err,
	}
}

// NotFoundError classifies a request for a missing resource.
func NotFoundError(err error, message string) error {
	if err == nil {
		err = errors.New("not found: " + message)
	}
	return &ServiceError{
		Category: CategoryNotFound,
		Message:  message,
		Err:      err,
	}
}

// ForbiddenError classifies a request the whitelist or role does not allow.
func ForbiddenError(err error, message string) error {
	if err == nil {
		err = errors.New("request forbidden")
	}
	return &ServiceError{
		Category: CategoryForbidden,
		Message:  message,
		Err:      err,
	}
}

// UnAuthorizedError classifies a missing or invalid credential.
func UnAuthorizedError(err error, message string) error {
	if err == nil {
		err = errors.New("unauthorized")
	}
	return &ServiceError{
		Category: CategoryUnauthorized,
		Message:  message,
		Err:      err,
	}
}

// ConflictError classifies a request colliding with current state.
func ConflictError(err error, message string) error {
	if err == nil {
		err = errors.New("conflict")
	}
	return &ServiceError{
		Category: CategoryConflict,
		Message:  message,
		Err:      err,
	}
}

// StatusCode maps the error category to an HTTP status code.
func (err ServiceError) StatusCode() int {
	switch err.Category {
	case CategoryBadRequest:
		return http.StatusBadRequest
	case CategoryUnauthorized:
		return http.StatusUnauthorized
	case CategoryForbidden:
		return http.StatusForbidden
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
