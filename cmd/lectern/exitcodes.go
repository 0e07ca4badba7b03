package main

import (
	"context"
	"errors"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// Exit codes for the lectern command.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitConfigError = 2
	ExitInterrupted = 130
)

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, domain.ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitError
	}
}
