package catalog

import (
	"errors"
	"fmt"
)

// Error kinds shared by every backend. Callers branch with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

// NotFound returns an ErrNotFound error naming the missing id.
func NotFound(id ID) error {
	return fmt.Errorf("%w: movie %s", ErrNotFound, id)
}

// InvalidArgument returns an ErrInvalidArgument error with a formatted detail.
func InvalidArgument(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Internal wraps err as an ErrInternal error. The detail is meant for logs,
// not for clients.
func Internal(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrInternal, op)
	}
	return fmt.Errorf("%w: %s: %w", ErrInternal, op, err)
}

// IsNotFound reports whether err is an ErrNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
