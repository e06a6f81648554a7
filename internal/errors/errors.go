// Package errors provides error handling for shortly.
//
// It re-exports github.com/cockroachdb/errors so callers get stack traces,
// wrapping and hints from one import, and defines the sentinel conditions the
// link lifecycle reports.
//
//	if err := svc.UpdateClickLimit(code, user, 0); errors.IsInvalidInput(err) {
//	    fmt.Println(errors.FlattenHints(err))
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New   = crdb.New
	Newf  = crdb.Newf
	Wrap  = crdb.Wrap
	Wrapf = crdb.Wrapf
)

// User-facing messages and details
var (
	WithHint  = crdb.WithHint
	WithHintf = crdb.WithHintf
)

// Error inspection
var (
	Is           = crdb.Is
	FlattenHints = crdb.FlattenHints
)

// Sentinel conditions. Wrap them to add context while keeping errors.Is working.
var (
	// ErrInvalidInput marks malformed URLs, non-positive limits or lengths,
	// and unset identifiers. Always returned synchronously, never retried.
	ErrInvalidInput = New("invalid input")

	// ErrRateLimited indicates the caller exceeded its creation budget
	ErrRateLimited = New("rate limited")
)

// IsInvalidInput checks if an error is or wraps ErrInvalidInput
func IsInvalidInput(err error) bool {
	return err != nil && Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is or wraps ErrRateLimited
func IsRateLimited(err error) bool {
	return err != nil && Is(err, ErrRateLimited)
}

// NewInvalidInputError creates an invalid-input error with a formatted message
func NewInvalidInputError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidInput, Newf(format, args...).Error())
}
