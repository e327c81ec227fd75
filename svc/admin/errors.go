package admin

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated  = errors.New("admin: user must be authenticated")
	ErrPermissionDenied = errors.New("admin: only administrators can set admin status")
	ErrCannotRevokeSelf = errors.New("admin: you cannot remove your own admin status")
	ErrInvalidArgument  = errors.New("admin: user id is required")
	ErrUserNotFound     = errors.New("admin: user not found")
	ErrInternal         = errors.New("admin: failed to set admin status")
)

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrCannotRevokeSelf):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
