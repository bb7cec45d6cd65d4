package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/insightdash/internal/api"
	"github.com/roach88/insightdash/internal/query"
	"github.com/roach88/insightdash/internal/store"
)

// Process exit codes.
const (
	ExitSuccess = 0
	// ExitFailure covers everything the API or a job reported: HTTP errors,
	// rejected uploads, failed analyses.
	ExitFailure = 1
	// ExitCommandError means the command never reached the API: bad flags
	// or arguments, invalid configuration, unreadable local state.
	ExitCommandError = 2
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode is the code of the first ExitError in err's chain, or
// ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ErrorCode maps err onto the code reported as "Error [CODE]" in text mode
// and error.code in JSON mode.
func ErrorCode(err error) string {
	var (
		uploadErr  *api.UploadError
		payloadErr *query.PayloadError
	)
	if errors.As(err, &uploadErr) {
		return string(uploadErr.Kind)
	}
	if errors.As(err, &payloadErr) {
		return "INVALID_PAYLOAD"
	}
	if errors.Is(err, store.ErrNotAuthenticated) {
		return "NOT_AUTHENTICATED"
	}
	if te, ok := api.IsTransportError(err); ok {
		if te.Status > 0 {
			return fmt.Sprintf("HTTP_%d", te.Status)
		}
		return "NETWORK"
	}
	if GetExitCode(err) == ExitCommandError {
		return "COMMAND"
	}
	return "ERROR"
}
