package files

import "errors"

var (
	ErrForbidden       = errors.New("files: forbidden")
	ErrNotFound        = errors.New("files: not found")
	ErrUpstream        = errors.New("files: object store unavailable")
	ErrInvalidKey      = errors.New("files: invalid storage key")
	ErrInvalidFilename = errors.New("files: invalid filename")
)
