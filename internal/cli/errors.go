// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Exit codes and error display for all CLI commands.
//
// STANDARDIZED PATTERN:
//   - Handlers always return errors and never print them
//   - main prints "Error: <message>" and exits with GetExitCode(err)

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/routerchat/internal/config"
	"github.com/jeranaias/routerchat/internal/model"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a config file or settings error
	ExitConfigError = 3
	// ExitKeyError indicates a missing, invalid or unusable API key
	ExitKeyError = 4
	// ExitNetworkError indicates the completion request failed
	ExitNetworkError = 5
	// ExitNotFoundError indicates a key or chat was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Reason string
	// Usage is an example invocation shown under the reason
	Usage string
}

func (e *UsageError) Error() string {
	if e.Usage != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Usage)
	}
	return e.Reason
}

// ErrMissingArgument returns a UsageError for a required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Reason: "missing required argument: " + argName, Usage: usage}
}

// ErrUnknownSubcommand returns a UsageError for an unknown subcommand.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &UsageError{Reason: fmt.Sprintf("unknown %s subcommand: %s", command, sub), Usage: usage}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error onto the exit codes above.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	var cfgErrs config.ValidateErrors
	switch {
	case errors.As(err, &usage), errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrValidation):
		return ExitUsageError
	case errors.As(err, &cfgErrs), errors.Is(err, config.ErrConfigExists):
		return ExitConfigError
	case errors.Is(err, model.ErrPrecondition):
		return ExitKeyError
	case errors.Is(err, model.ErrCompletionFailed):
		return ExitNetworkError
	case errors.Is(err, model.ErrNotFound):
		return ExitNotFoundError
	}
	return ExitGeneralError
}

// DisplayError prints err the way main reports fatal errors. In JSON mode
// it writes an error envelope instead.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		_ = NewJSONErrorResponse(command, err).Write(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
}
