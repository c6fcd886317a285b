// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Exit codes and error types shared by all commands.
//
// Commands always return errors and let Execute decide how to show them
// and which status to exit with.

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/rigchat/internal/chatsync"
	"github.com/jeranaias/rigchat/internal/gateway"
	"github.com/jeranaias/rigchat/internal/model"
	"github.com/jeranaias/rigchat/internal/session"
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
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates authentication failure
	ExitAuthError = 4
	// ExitNetworkError indicates the chat service could not be reached
	ExitNetworkError = 5
	// ExitQuotaError indicates the account ran out of tokens
	ExitQuotaError = 6
	// ExitNotFoundError indicates a conversation was not found
	ExitNotFoundError = 7
	// ExitTimeoutError indicates an operation timed out or was interrupted
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError wraps a configuration loading or validation failure.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports bad arguments.
type UsageError struct {
	Arg    string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Reason)
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	var (
		cfgErr   *ConfigError
		usageErr *UsageError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr):
		return ExitConfigError
	case errors.As(err, &usageErr),
		errors.Is(err, chatsync.ErrEmptyContent),
		errors.Is(err, model.ErrEmailInvalid):
		return ExitUsageError
	case errors.Is(err, gateway.ErrUnauthorized),
		errors.Is(err, chatsync.ErrNoIdentity),
		errors.Is(err, session.ErrNotLoggedIn),
		errors.Is(err, errNoCredentials):
		return ExitAuthError
	case errors.Is(err, gateway.ErrQuotaExceeded):
		return ExitQuotaError
	case errors.Is(err, gateway.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, gateway.ErrTransport):
		return ExitNetworkError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ExitTimeoutError
	default:
		return ExitGeneralError
	}
}

// describe turns an error into the line shown in interactive mode.
func describe(err error) string {
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, gateway.ErrQuotaExceeded):
		return "token quota exceeded"
	case errors.Is(err, gateway.ErrNotFound):
		return "conversation no longer exists"
	case errors.Is(err, gateway.ErrTransport):
		return "chat service unreachable"
	case errors.Is(err, gateway.ErrUnauthorized), errors.Is(err, chatsync.ErrNoIdentity):
		return "not logged in"
	case errors.As(err, &apiErr):
		return apiErr.Message()
	default:
		return err.Error()
	}
}
