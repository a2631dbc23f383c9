package billing

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Validation failures reported by the engine.
var (
	// ErrInvalidDay is returned when a day-of-month is outside 1-31.
	ErrInvalidDay = errors.New("day of month out of range")

	// ErrInvalidDate is returned for unparseable or impossible calendar dates.
	ErrInvalidDate = errors.New("invalid date")

	// ErrNegativeValue is returned when a monetary value is below zero.
	ErrNegativeValue = errors.New("negative value")

	// ErrInvalidType is returned for an unknown transaction type.
	ErrInvalidType = errors.New("unknown transaction type")

	// ErrCardInvariant is returned when card_id is set on a non card transaction
	// or missing on a credit_card one.
	ErrCardInvariant = errors.New("card id must be set iff type is credit_card")

	// ErrInvalidMonth is returned when a month is outside 1-12 (or 0-11 for 0-indexed input).
	ErrInvalidMonth = errors.New("month out of range")

	// ErrInvalidRange is returned when a date window ends before it starts.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidInstallment is returned for an installment index outside its count.
	ErrInvalidInstallment = errors.New("installment out of range")

	// ErrInvalidMode is returned for an unknown balance mode.
	ErrInvalidMode = errors.New("unknown balance mode")

	// ErrInvalidYear is returned when a period's year is outside MinYear-MaxYear.
	ErrInvalidYear = errors.New("year out of range")

	// ErrInvalidHorizon is returned when a number of months to look ahead is negative or above MaxHorizonMonths.
	ErrInvalidHorizon = errors.New("horizon out of range")
)

// Bounds on the calendar the engine walks.
const (
	MinYear = 1900
	MaxYear = 2999

	// MaxHorizonMonths caps how many months ahead bills and projections are computed.
	MaxHorizonMonths = 120
)

// ErrCardNotFound is returned by commands that need a card present in the snapshot.
var ErrCardNotFound = errors.New("card not found")

// ValidationError describes malformed engine input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap returns the sentinel the failure belongs to.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field string, value interface{}, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
		Err:     err,
	}
}

// ValidateDay checks that day is a day-of-month in 1-31.
func ValidateDay(field string, day int) error {
	if day < 1 || day > 31 {
		return NewValidationError(field, day, "must be between 1 and 31", ErrInvalidDay)
	}
	return nil
}

// ValidateHorizon checks that n is a number of months in 0-MaxHorizonMonths.
func ValidateHorizon(field string, n int) error {
	if n < 0 || n > MaxHorizonMonths {
		return NewValidationError(field, n, fmt.Sprintf("must be between 0 and %d", MaxHorizonMonths), ErrInvalidHorizon)
	}
	return nil
}

// ValidateDate checks that d is a real calendar date.
func ValidateDate(field string, d civil.Date) error {
	if !d.IsValid() {
		return NewValidationError(field, d, "not a valid calendar date", ErrInvalidDate)
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(field, s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, NewValidationError(field, s, "expected YYYY-MM-DD", ErrInvalidDate)
	}
	return d, nil
}

// ValidateValue checks that v is not negative.
func ValidateValue(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return NewValidationError(field, v.String(), "must not be negative", ErrNegativeValue)
	}
	return nil
}
