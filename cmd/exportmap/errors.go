package main

import "fmt"

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1

	// exitNotFound means the query ran but the answer is negative.
	exitNotFound = 2
)

// exitError carries a specific process exit code. A nil Err exits silently.
type exitError struct {
	Code int
	Err  error
}

func (e *exitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error { return e.Err }

func notFound(format string, args ...any) error {
	return &exitError{Code: exitNotFound, Err: fmt.Errorf(format, args...)}
}
