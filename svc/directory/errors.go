package directory

import "errors"

var (
	ErrNotFound       = errors.New("directory: user not found")
	ErrUnknownBackend = errors.New("directory: unknown backend")
)
