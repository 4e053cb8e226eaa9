package warranty

import (
	"errors"
	"fmt"
	"strings"

	"aftersales/pkg/platform/sentinel"
)

var (
	// ErrDuplicateSerial is returned when registration would reuse the
	// serial number of a live (non-revoked) warranty.
	ErrDuplicateSerial = fmt.Errorf("serial number already registered: %w", sentinel.ErrConflict)

	// ErrInvalidTransition is returned when a requested status change is
	// not in the allowed transition set.
	ErrInvalidTransition = fmt.Errorf("status transition not allowed: %w", sentinel.ErrInvalidState)
)

// ValidationError lists the registration fields that are missing or invalid.
// It is surfaced to the caller before any write happens.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// AsValidation unwraps err into a ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}
