// Package errors defines the sentinel errors shared across the reordering
// pipeline and maps them to process exit codes. Structural input errors are
// fatal: the run terminates without writing partial output, and retrying
// without changing the input cannot help.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedCollection = errors.New("malformed binary collection")
	ErrSnapshotMismatch    = errors.New("forward index snapshot mismatch")
	ErrInvalidConfig       = errors.New("invalid configuration")
	ErrInternal            = errors.New("internal error")
)

// Exit codes reported by the CLI drivers.
const (
	ExitOK              = 0
	ExitInternal        = 1
	ExitMalformedInput  = 2
	ExitSnapshotInvalid = 3
	ExitConfigInvalid   = 4
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, exitCode int, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Newf(sentinel error, exitCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCode,
	}
}

// ExitCode resolves the process status for an error. A nil error is ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrMalformedCollection):
		return ExitMalformedInput
	case errors.Is(err, ErrSnapshotMismatch):
		return ExitSnapshotInvalid
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigInvalid
	default:
		return ExitInternal
	}
}
