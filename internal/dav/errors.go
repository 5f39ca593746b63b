package dav

import (
	"errors"
	"fmt"
	"net/http"
)

// Request outcomes. Handlers return these (possibly wrapped) and the router
// turns them into status codes.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrForbidden          = errors.New("forbidden")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrBadRequest         = errors.New("bad request")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
)

// ErrParentNotFound is returned by ResolveParent when an intermediate
// segment of a write target does not exist.
var ErrParentNotFound = fmt.Errorf("parent folder not found: %w", ErrConflict)

// ErrBlobNotFound is wrapped by BlobStore implementations for missing keys.
var ErrBlobNotFound = errors.New("blob not found")

// ErrSizeMismatch is wrapped by BlobStore.Put when the body is shorter or
// longer than announced.
var ErrSizeMismatch = fmt.Errorf("blob size mismatch: %w", ErrBadRequest)

// ErrInvalidCredentials is wrapped by Authenticator implementations when the
// identifier is unknown or the secret does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// statusFor maps an error returned by a method handler to an HTTP status.
// Anything unrecognised is an internal failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBlobNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
