package main

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/wasmrun/errors"
)

// Process exit statuses, one per failure class.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitLoad        = 2
	ExitInstantiate = 3
	ExitInvoke      = 4
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps an error to the process exit status by the phase it failed in.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if stderrors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch errors.PhaseOf(err) {
	case errors.PhaseLoad:
		return ExitLoad
	case errors.PhaseLinking, errors.PhaseInstantiate:
		return ExitInstantiate
	case errors.PhaseConvert, errors.PhaseInvoke:
		return ExitInvoke
	default:
		return ExitUsage
	}
}
