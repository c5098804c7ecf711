// Package errs classifies why a suite run failed, so the CLI can pick an exit
// code and the report can say which stage broke.
package errs

import (
	"errors"
)

// Code is a run failure class.
type Code string

const (
	// InvalidConfig: the run could not start with the given settings.
	InvalidConfig Code = "invalid_config"
	// Unavailable: the storefront, catalog API or browser could not be reached.
	Unavailable Code = "unavailable"
	// DataFault: the backend answered but its data is unusable.
	DataFault Code = "data_fault"
	// Mismatch: the UI disagrees with the backend.
	Mismatch Code = "mismatch"
	// Internal: anything else.
	Internal Code = "internal"
)

// Error is a coded error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a coded error with message and cause. A nil cause yields nil.
func Wrap(code Code, message string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: cause}
}

// CodeOf returns the outermost error code, defaulting to Internal.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) && coded.Code != "" {
		return coded.Code
	}
	return Internal
}

// ExitCode maps a failed run to a process exit status. Nil is success.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CodeOf(err) {
	case Mismatch, DataFault:
		return 1
	case InvalidConfig:
		return 2
	case Unavailable:
		return 3
	default:
		return 4
	}
}
