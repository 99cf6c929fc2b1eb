// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrTradeNotFound  = errors.New("trade not found")
	ErrInvalidTrade   = errors.New("invalid trade")
	ErrStoreClosed    = errors.New("store is closed")
	ErrDatabaseError  = errors.New("database error")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrEmptyDateRange = errors.New("empty date range")
)

// StoreError represents an error from the trade repository.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error [%s]: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// MatchError represents an error while applying a match during reconciliation.
type MatchError struct {
	Symbol string
	BuyID  int64
	SellID int64
	Err    error
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("match error [%s] buy=%d sell=%d: %v", e.Symbol, e.BuyID, e.SellID, e.Err)
}

func (e *MatchError) Unwrap() error {
	return e.Err
}

// NewMatchError creates a new MatchError.
func NewMatchError(symbol string, buyID, sellID int64, err error) *MatchError {
	return &MatchError{Symbol: symbol, BuyID: buyID, SellID: sellID, Err: err}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
