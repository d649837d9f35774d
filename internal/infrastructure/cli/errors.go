package cli

import (
	"errors"
	"fmt"

	"github.com/eitatech/gatomia/internal/application"
	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/correlator"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/storage"
)

// Exit codes beyond the generic failure.
const (
	ExitBlocked = 3
	ExitTimeout = 4
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var blocked *review.ArchivalBlockedError
	if errors.As(err, &blocked) {
		e := NewCLIError(
			fmt.Sprintf("specification %s is not archivable", blocked.SpecID),
			fmt.Sprintf("Resolve %s, then retry", review.BlockerSummary(blocked.Blockers)),
			err,
		)
		e.ExitCode = ExitBlocked
		return e
	}

	var transErr *review.TransitionError
	if errors.As(err, &transErr) {
		return NewCLIError(
			transErr.Error(),
			fmt.Sprintf("Run 'gatomia review list --lane %s' to see where '%s' is", transErr.From, transErr.SpecID),
			err,
		)
	}

	var timeoutErr *correlator.TimeoutError
	if errors.As(err, &timeoutErr) {
		e := NewCLIError(
			fmt.Sprintf("no reply to %s within %s", timeoutErr.MessageType, timeoutErr.After),
			"Raise request_timeout in .gatomia/config.yaml or GATOMIA_REQUEST_TIMEOUT",
			err,
		)
		e.ExitCode = ExitTimeout
		return e
	}

	switch {
	case errors.Is(err, application.ErrSpecNotFound):
		return NewCLIError("specification not found", "Run 'gatomia review list' to see available specifications", err)
	case errors.Is(err, bridge.ErrEmptySubmission):
		return NewCLIError("nothing to submit", "Pass at least one field flag, e.g. --title", err)
	case errors.Is(err, storage.ErrConflict):
		return NewCLIError("specs file changed while saving", "Retry the command", err)
	case errors.Is(err, storage.ErrInvalidLanes):
		return NewCLIError("specs file is invalid", "Fix "+storage.DataDir+"/"+storage.SpecsFile+" and retry", err)
	case errors.Is(err, bridge.ErrHostFailure):
		return NewCLIError("the review host rejected the request", "", err)
	}

	return err
}

// errSpecNotListed is reported when the view's store has no such specification.
var errSpecNotListed = fmt.Errorf("%w in either lane", application.ErrSpecNotFound)
