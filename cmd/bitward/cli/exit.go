// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command handler returns an ExitError, the CLI
// framework exits with the specified code without printing the error
// string — the command is expected to have already written its own
// output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. The CLI framework's main function
// checks for this interface on returned errors to distinguish
// "handled non-zero exit" from "unexpected error to display".
func (e *ExitError) ExitCode() int {
	return e.Code
}

// UsageError indicates the caller invoked the CLI incorrectly: unknown
// command or flag, wrong argument count, unparseable values. Usage
// errors exit with code 2, distinguishing caller mistakes from
// operational failures (code 1).
type UsageError struct {
	message string
}

func (e *UsageError) Error() string { return e.message }

// ExitCode returns 2, the conventional exit code for incorrect usage.
func (e *UsageError) ExitCode() int { return 2 }

// Usagef creates a usage error from a format string.
func Usagef(format string, args ...any) *UsageError {
	return &UsageError{message: fmt.Sprintf(format, args...)}
}
