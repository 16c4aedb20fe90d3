package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is a generic sentinel for ownership failures.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState is a generic sentinel for invalid input state.
	ErrInvalidState = errors.New("invalid state")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
