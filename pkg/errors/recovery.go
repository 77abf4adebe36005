// Package errors provides comprehensive error handling utilities.
//
// This file contains panic recovery utilities. The search engine runs every
// trial through SafeExecute so that a panicking trainer turns into a failed
// trial instead of taking the whole experiment down.

package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// PanicError represents an error that was created from a recovered panic.
// It includes the original panic value and stack trace information.
type PanicError struct {
	// PanicValue is the original value passed to panic()
	PanicValue interface{}

	// StackTrace contains the stack trace at the time of panic
	StackTrace string

	// Operation identifies where the panic was recovered
	Operation string
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String provides detailed information including stack trace.
func (e *PanicError) String() string {
	return fmt.Sprintf("panic in %s: %v\nStack trace:\n%s",
		e.Operation, e.PanicValue, e.StackTrace)
}

// MarshalZerologObject adds the panic details to a zerolog event.
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Str("panic", fmt.Sprint(e.PanicValue)).
		Str("type", "PanicError")
}

// NewPanicError creates a new PanicError with the given operation context and panic value.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover is a utility function to be used with defer to recover from panics
// and convert them into errors.
//
// Usage:
//
//	func fitTrial() (err error) {
//	    defer Recover(&err, "fit MultinomialNB")
//	    // ...
//	    return nil
//	}
//
// If the function already has an error, the panic information wraps it.
func Recover(err *error, operation string) {
	if r := recover(); r != nil {
		if *err != nil {
			*err = fmt.Errorf("panic in %s: %v (original error: %w)",
				operation, r, *err)
			return
		}
		*err = NewPanicError(operation, r)
	}
}

// SafeExecute executes a function and recovers from any panic, converting it to an error.
//
// Example:
//
//	err := SafeExecute("trial LogisticRegression", func() error {
//	    return pipeline.Fit(train)
//	})
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
