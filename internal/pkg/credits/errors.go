package credits

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInvalidAmount          = errors.New("invalid credit amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrUnknownOperation       = errors.New("unknown operation")
	ErrUserNotFound           = errors.New("user not found")
)

// InsufficientCreditsError is returned by Deduct when the balance does not
// cover the cost. No mutation happened when it is returned.
type InsufficientCreditsError struct {
	UserID    uint
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return ErrInsufficientCredits
}
