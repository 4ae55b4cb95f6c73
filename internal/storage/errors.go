package storage

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrIO               = errors.New("storage I/O failure")
	ErrInvalidPath      = errors.New("invalid path component")
)
