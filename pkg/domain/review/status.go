package review

import (
	"encoding/json"
	"fmt"
)

// ChangeRequestStatus is the review state of a change request.
type ChangeRequestStatus string

const (
	ChangeRequestOpen      ChangeRequestStatus = "open"
	ChangeRequestAddressed ChangeRequestStatus = "addressed"
)

// AllChangeRequestStatuses returns all valid change request statuses.
func AllChangeRequestStatuses() []ChangeRequestStatus {
	return []ChangeRequestStatus{ChangeRequestOpen, ChangeRequestAddressed}
}

// IsValid returns true if the status is a known change request status.
func (s ChangeRequestStatus) IsValid() bool {
	switch s {
	case ChangeRequestOpen, ChangeRequestAddressed:
		return true
	default:
		return false
	}
}

func (s ChangeRequestStatus) String() string {
	return string(s)
}

// IsAddressed returns true once the change request has been addressed.
func (s ChangeRequestStatus) IsAddressed() bool {
	return s == ChangeRequestAddressed
}

// CanTransitionTo reports whether the status may move to target.
// Change requests only move forward; reopening is not modeled.
func (s ChangeRequestStatus) CanTransitionTo(target ChangeRequestStatus) bool {
	return s == ChangeRequestOpen && target == ChangeRequestAddressed
}

// ParseChangeRequestStatus parses a string into a ChangeRequestStatus.
func ParseChangeRequestStatus(s string) (ChangeRequestStatus, error) {
	status := ChangeRequestStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid change request status: %s", s)
	}
	return status, nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (s *ChangeRequestStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Missing status means the request was never addressed
	if str == "" {
		*s = ChangeRequestOpen
		return nil
	}

	status, err := ParseChangeRequestStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// TaskStatus is the completion state of a task inside a change request.
// Only "done" counts as complete; every other value is treated as not done.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// IsDone returns true if the task is complete.
func (s TaskStatus) IsDone() bool {
	return s == TaskDone
}

func (s TaskStatus) String() string {
	return string(s)
}

// DisplayName returns a human-readable display name for the status.
func (s TaskStatus) DisplayName() string {
	if s.IsDone() {
		return "Done"
	}
	return "Not done"
}
