package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/elee1766/chatportal/src/chat"
	"github.com/elee1766/chatportal/src/config"
	"github.com/elee1766/chatportal/src/portalapi"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error
	ExitUsage       = 2 // Usage error
	ExitConfig      = 3 // Configuration error
	ExitAuth        = 4 // Authentication error
	ExitNetwork     = 6 // Network error
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
)

// ConfigError marks a failure to load or validate configuration
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrorHandler handles different types of errors and exits with appropriate codes
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError handles an error and exits with the appropriate code
func (h *ErrorHandler) HandleError(err error) {
	if err == nil {
		return
	}

	h.logger.Debug("Command failed", "error", err)

	fmt.Fprintf(os.Stderr, "Error: %s\n", describeError(err))
	os.Exit(exitCode(err))
}

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var (
		configErr    *ConfigError
		cfgValidErr  config.ValidationError
		chatValidErr *chat.ValidationError
		apiValidErr  *portalapi.ValidationError
		netErr       net.Error
	)

	switch {
	case errors.As(err, &configErr), errors.As(err, &cfgValidErr):
		return ExitConfig
	case errors.As(err, &chatValidErr), errors.As(err, &apiValidErr):
		return ExitUsage
	case chat.IsAuthError(err), portalapi.IsAuthError(err):
		return ExitAuth
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return ExitTimeout
		}
		return ExitNetwork
	default:
		return ExitError
	}
}

// describeError adds a hint for errors a user can act on
func describeError(err error) string {
	switch {
	case chat.IsAuthError(err), portalapi.IsAuthError(err):
		return fmt.Sprintf("%v (sign in with 'chatportal login')", err)
	case errors.Is(err, chat.ErrSendInFlight):
		return "a message is still being sent"
	default:
		return err.Error()
	}
}
