package review

import (
	"errors"
	"fmt"
)

// Domain errors for review lifecycle transitions.
var (
	// ErrNotArchivable indicates the specification still has archival blockers.
	ErrNotArchivable = errors.New("specification is not archivable")

	// ErrInvalidTransition indicates the requested lane move is not allowed.
	ErrInvalidTransition = errors.New("invalid lane transition")
)

// ArchivalBlockedError carries the blockers that prevented archiving.
type ArchivalBlockedError struct {
	SpecID   string
	Blockers []string
}

func (e *ArchivalBlockedError) Error() string {
	return fmt.Sprintf("cannot archive specification %s: %s", e.SpecID, BlockerSummary(e.Blockers))
}

// Is allows errors.Is to work with ArchivalBlockedError.
func (e *ArchivalBlockedError) Is(target error) bool {
	return target == ErrNotArchivable
}

// TransitionError provides details about a refused lane transition.
type TransitionError struct {
	SpecID string
	From   Lane
	Event  string
}

func (e *TransitionError) Error() string {
	return "the action '" + e.Event + "' is not allowed while specification " + e.SpecID + " is in the '" + string(e.From) + "' lane"
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
