// Package errors provides error handling for avbindgen.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints ("set FFMPEG_DIR", "check the include roots")
//
// Every error that reaches the top of the pipeline fails the build. The
// sentinels below classify where it came from:
//
//	if errors.IsConfigError(err) {
//	    // a required environment input is missing or malformed
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is             = crdb.Is
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Mark tags err so that Is(err, reference) holds without changing its message.
var Mark = crdb.Mark

// Build failure classes. Use these with errors.Is() or the Is*Error helpers.
var (
	// ErrConfig indicates a required environment input is missing or invalid
	ErrConfig = New("configuration error")

	// ErrTranslation indicates the translation engine could not produce declarations
	ErrTranslation = New("translation failed")

	// ErrWrite indicates the output artifact could not be written
	ErrWrite = New("write failed")
)

// IsConfigError checks if an error is or wraps ErrConfig
func IsConfigError(err error) bool {
	return err != nil && Is(err, ErrConfig)
}

// IsTranslationError checks if an error is or wraps ErrTranslation
func IsTranslationError(err error) bool {
	return err != nil && Is(err, ErrTranslation)
}

// IsWriteError checks if an error is or wraps ErrWrite
func IsWriteError(err error) bool {
	return err != nil && Is(err, ErrWrite)
}

// NewConfigError creates a configuration error with a formatted message
func NewConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfig)
}

// NewTranslationError creates a translation error with a formatted message
func NewTranslationError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrTranslation)
}

// WrapTranslation marks err as a translation failure, keeping its message verbatim
func WrapTranslation(err error) error {
	if err == nil {
		return nil
	}
	return Mark(err, ErrTranslation)
}

// WrapWrite marks err as a write failure with context
func WrapWrite(err error, context string) error {
	if err == nil {
		return nil
	}
	return Mark(Wrap(err, context), ErrWrite)
}
