// Package errors defines the error taxonomy shared by the metastore packages
// and the retry policy used by transport implementations.
//
// Generation errors (configuration and argument validation) are permanent:
// they describe caller mistakes and never succeed on retry. Transport errors
// are categorized so the transport can decide whether to back off and retry.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for schema binding and statement generation.
var (
	// ErrInvalidConfiguration indicates a builder or manager was constructed
	// with an unusable schema, key layout, or TTL.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidArgument indicates an operation was called with an unusable
	// argument (empty job key, absent timestamp, non-positive limit).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMissingKeyColumn indicates a row or predicate does not cover a
	// required partition or clustering key column.
	ErrMissingKeyColumn = errors.New("missing key column")
)

// ValidationError describes a rejected configuration value or argument.
// It unwraps to one of the sentinel errors above.
type ValidationError struct {
	// Op is the operation that rejected the input (e.g. "insert", "new builder").
	Op string
	// Field names the offending column, key, or option.
	Field string
	// Message describes what is wrong with it.
	Message string
	// Err is the sentinel classifying the failure.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
}

// Unwrap returns the sentinel for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InvalidConfiguration returns a ValidationError wrapping ErrInvalidConfiguration.
func InvalidConfiguration(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Message: message, Err: ErrInvalidConfiguration}
}

// InvalidArgument returns a ValidationError wrapping ErrInvalidArgument.
func InvalidArgument(op, field, message string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Message: message, Err: ErrInvalidArgument}
}

// MissingKeyColumn returns a ValidationError wrapping ErrMissingKeyColumn.
func MissingKeyColumn(op, column string) *ValidationError {
	return &ValidationError{Op: op, Field: column, Message: "key column not supplied", Err: ErrMissingKeyColumn}
}

// IsValidation reports whether err is a configuration or argument error.
func IsValidation(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
