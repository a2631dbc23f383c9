package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a transaction, rule or card does not exist for the user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidDeleteMode is returned for a delete mode other than single or all.
	ErrInvalidDeleteMode = errors.New("invalid delete mode")

	// ErrEmptyField is returned when a required text field is blank.
	ErrEmptyField = errors.New("required field is empty")

	// ErrMissingUser is returned when an operation is called without a user ID.
	ErrMissingUser = errors.New("missing user id")
)

// OpError wraps a failure with the ledger operation that produced it.
type OpError struct {
	// Op is the operation that failed (e.g. "AddTransaction").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context, such as the entity ID.
	Details string
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ledger: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is reports whether the underlying error matches target.
func (e *OpError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var opErr *OpError
	if errors.As(err, &opErr) {
		return err
	}

	return &OpError{Op: op, Err: err, Details: details}
}
