package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/eitatech/gatomia/internal/application"
	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/correlator"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/storage"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		message  string
		hint     string
		exitCode int
	}{
		{
			name:     "archival blocked",
			err:      &review.ArchivalBlockedError{SpecID: "a", Blockers: []string{"1 pending task", "2 open change requests"}},
			message:  "specification a is not archivable",
			hint:     "Resolve 1 pending task, 2 open change requests, then retry",
			exitCode: ExitBlocked,
		},
		{
			name:     "transition",
			err:      &review.TransitionError{SpecID: "a", From: review.LaneArchived, Event: review.EventArchive},
			hint:     "--lane archived",
			exitCode: 1,
		},
		{
			name:     "timeout",
			err:      fmt.Errorf("wrapped: %w", &correlator.TimeoutError{RequestID: "r", MessageType: bridge.TypeArchive, After: 10 * time.Second}),
			message:  "no reply to spec/archive within 10s",
			exitCode: ExitTimeout,
		},
		{
			name:     "not found",
			err:      fmt.Errorf("%w: a", application.ErrSpecNotFound),
			message:  "specification not found",
			exitCode: 1,
		},
		{
			name:     "empty submission",
			err:      bridge.ErrEmptySubmission,
			message:  "nothing to submit",
			exitCode: 1,
		},
		{
			name:     "conflict",
			err:      &storage.ConflictError{Expected: 1, Actual: 2},
			message:  "specs file changed while saving",
			exitCode: 1,
		},
		{
			name:     "invalid specs file",
			err:      fmt.Errorf("sync: %w", storage.ErrInvalidLanes),
			message:  "specs file is invalid",
			hint:     "specs.yaml",
			exitCode: 1,
		},
		{
			name:     "host failure",
			err:      &bridge.ReplyError{RequestID: "r", Message: "boom"},
			message:  "the review host rejected the request",
			exitCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cliErr *CLIError
			if !errors.As(MapError(tt.err), &cliErr) {
				t.Fatalf("expected *CLIError for %v", tt.err)
			}
			if tt.message != "" && cliErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", cliErr.Message, tt.message)
			}
			if tt.hint != "" && !strings.Contains(cliErr.Hint, tt.hint) {
				t.Errorf("Hint = %q, want it to contain %q", cliErr.Hint, tt.hint)
			}
			if cliErr.ExitCode != tt.exitCode {
				t.Errorf("ExitCode = %d, want %d", cliErr.ExitCode, tt.exitCode)
			}
			if !errors.Is(cliErr, tt.err) {
				t.Error("mapped error should wrap the original")
			}
		})
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if MapError(nil) != nil {
		t.Error("nil should stay nil")
	}
	plain := errors.New("plain")
	if MapError(plain) != plain {
		t.Error("unknown errors should be returned as-is")
	}
	existing := NewCLIError("x", "y", nil)
	if MapError(existing) != existing {
		t.Error("CLIErrors should not be wrapped twice")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil error should exit 0")
	}
	if ExitCode(errors.New("x")) != 1 {
		t.Error("plain error should exit 1")
	}
	e := NewCLIError("x", "", nil)
	e.ExitCode = ExitTimeout
	if ExitCode(fmt.Errorf("w: %w", e)) != ExitTimeout {
		t.Error("wrapped CLIError exit code lost")
	}
}
