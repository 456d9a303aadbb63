// Package apperr defines the error kinds shared by the content, rotation and progress packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a caller bug such as a non-positive day or a malformed subject ID.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmptyContentBank reports a track configured without content.
	ErrEmptyContentBank = errors.New("empty content bank")
	// ErrIndexOutOfRange reports a bank lookup outside [1, N].
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrNotFound reports a missing record.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a conditional write that lost a race.
	ErrConflict = errors.New("conflict")
)

// Invalid returns an ErrInvalidArgument carrying a formatted detail.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether err is a lost conditional write that can be re-evaluated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
