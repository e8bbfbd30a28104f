package credits

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCredits matches any *InsufficientCreditsError via errors.Is.
	ErrInsufficientCredits = errors.New("credits: insufficient credits or account not found")
	ErrInvalidAmount       = errors.New("credits: amount must be positive")
	ErrAccountNotFound     = errors.New("credits: account not found")
)

// InsufficientCreditsError reports a deduction whose conditional update
// matched no row: the balance was too low or the account does not exist.
// Callers must not run the paid action and must not retry.
type InsufficientCreditsError struct {
	AccountID string
	Operation string
	Required  int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("credits: account %s needs %d credits for %s", e.AccountID, e.Required, e.Operation)
}

func (e *InsufficientCreditsError) Is(target error) bool {
	return target == ErrInsufficientCredits
}

// PersistenceUnavailableError wraps a storage fault. It is transient: the
// caller decides whether to retry the whole request.
type PersistenceUnavailableError struct {
	Op  string
	Err error
}

func (e *PersistenceUnavailableError) Error() string {
	return fmt.Sprintf("credits: %s: storage unavailable: %v", e.Op, e.Err)
}

func (e *PersistenceUnavailableError) Unwrap() error {
	return e.Err
}

func unavailable(op string, err error) error {
	return &PersistenceUnavailableError{Op: op, Err: err}
}

// IsRetryable reports whether err is a storage fault worth retrying.
func IsRetryable(err error) bool {
	var pe *PersistenceUnavailableError
	return errors.As(err, &pe)
}
