package tree

import "errors"

// Error kinds returned by tree operations. Operations wrap them with context,
// so callers should match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrValidation       = errors.New("invalid path")
	ErrStale            = errors.New("changed since it was read")
)
