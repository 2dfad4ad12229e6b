package fnsku

import (
	"errors"
	"strings"
)

var (
	ErrInvalidFormat    = errors.New("invalid FNSKU format")
	ErrConversionFailed = errors.New("FNSKU conversion failed")
)

// FormatError is returned when the validator rejects an FNSKU. It carries
// the full diagnostics so callers can surface them.
type FormatError struct {
	Validation ValidationResult
}

func (e *FormatError) Error() string {
	if len(e.Validation.Errors) == 0 {
		return ErrInvalidFormat.Error()
	}
	return ErrInvalidFormat.Error() + ": " + strings.Join(e.Validation.Errors, "; ")
}

func (e *FormatError) Unwrap() error {
	return ErrInvalidFormat
}
