// Package review models specifications under review and the rules that
// govern moving them between the review and archived lanes.
package review

import (
	"fmt"
	"time"
)

// Task is a unit of work attached to a change request.
type Task struct {
	ID     string     `json:"id" yaml:"id"`
	Title  string     `json:"title,omitempty" yaml:"title,omitempty"`
	Status TaskStatus `json:"status" yaml:"status"`
}

// ChangeRequest is a reviewer's request for changes to a specification.
type ChangeRequest struct {
	ID     string              `json:"id" yaml:"id"`
	Title  string              `json:"title,omitempty" yaml:"title,omitempty"`
	Status ChangeRequestStatus `json:"status" yaml:"status"`
	Tasks  []Task              `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// HasIncompleteTasks reports whether any task of the request is not done.
// This holds regardless of the request's own status.
func (cr ChangeRequest) HasIncompleteTasks() bool {
	for _, t := range cr.Tasks {
		if !t.Status.IsDone() {
			return true
		}
	}
	return false
}

// Links holds opaque external references for a specification.
type Links struct {
	DocURL string `json:"docUrl,omitempty" yaml:"doc_url,omitempty"`
}

// Specification is a unit of review work.
type Specification struct {
	ID                    string          `json:"id" yaml:"id"`
	Title                 string          `json:"title" yaml:"title"`
	Owner                 string          `json:"owner,omitempty" yaml:"owner,omitempty"`
	CompletedAt           *time.Time      `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
	ArchivedAt            *time.Time      `json:"archivedAt,omitempty" yaml:"archived_at,omitempty"`
	PendingTasks          int             `json:"pendingTasks" yaml:"pending_tasks"`
	PendingChecklistItems int             `json:"pendingChecklistItems" yaml:"pending_checklist_items"`
	ChangeRequests        []ChangeRequest `json:"changeRequests,omitempty" yaml:"change_requests,omitempty"`
	Links                 Links           `json:"links" yaml:"links,omitempty"`
}

// OpenChangeRequests counts change requests that are not yet addressed.
func (s Specification) OpenChangeRequests() int {
	n := 0
	for _, cr := range s.ChangeRequests {
		if !cr.Status.IsAddressed() {
			n++
		}
	}
	return n
}

// HasIncompleteChangeRequestTasks reports whether any change request still
// carries a task that is not done.
func (s Specification) HasIncompleteChangeRequestTasks() bool {
	for _, cr := range s.ChangeRequests {
		if cr.HasIncompleteTasks() {
			return true
		}
	}
	return false
}

// IsArchived returns true if the specification carries an archive timestamp.
func (s Specification) IsArchived() bool {
	return s.ArchivedAt != nil
}

// Clone returns a deep copy so callers never share nested slices.
func (s Specification) Clone() Specification {
	out := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	if s.ArchivedAt != nil {
		t := *s.ArchivedAt
		out.ArchivedAt = &t
	}
	if s.ChangeRequests != nil {
		out.ChangeRequests = make([]ChangeRequest, len(s.ChangeRequests))
		for i, cr := range s.ChangeRequests {
			out.ChangeRequests[i] = cr
			if cr.Tasks != nil {
				out.ChangeRequests[i].Tasks = append([]Task(nil), cr.Tasks...)
			}
		}
	}
	return out
}

// Validate checks the specification for structural integrity.
func (s Specification) Validate() []error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, fmt.Errorf("specification ID is required"))
	}
	if s.PendingTasks < 0 {
		errs = append(errs, fmt.Errorf("specification '%s' has negative pending tasks", s.ID))
	}
	if s.PendingChecklistItems < 0 {
		errs = append(errs, fmt.Errorf("specification '%s' has negative pending checklist items", s.ID))
	}
	if s.CompletedAt != nil && s.ArchivedAt != nil && s.ArchivedAt.Before(*s.CompletedAt) {
		errs = append(errs, fmt.Errorf("specification '%s' archived before it was completed", s.ID))
	}

	seen := make(map[string]bool)
	for i, cr := range s.ChangeRequests {
		if cr.ID == "" {
			errs = append(errs, fmt.Errorf("specification '%s' change request at index %d missing ID", s.ID, i))
		}
		if seen[cr.ID] {
			errs = append(errs, fmt.Errorf("duplicate change request ID: %s", cr.ID))
		}
		seen[cr.ID] = true
		if !cr.Status.IsValid() {
			errs = append(errs, fmt.Errorf("change request '%s' has invalid status %q", cr.ID, cr.Status))
		}
		for j, t := range cr.Tasks {
			if t.ID == "" {
				errs = append(errs, fmt.Errorf("change request '%s' task at index %d missing ID", cr.ID, j))
			}
		}
	}
	return errs
}

// ValidateUpdate checks that moving from s to next only advances change
// request statuses. Requests added or removed by next are not checked.
func (s Specification) ValidateUpdate(next Specification) []error {
	prev := make(map[string]ChangeRequestStatus, len(s.ChangeRequests))
	for _, cr := range s.ChangeRequests {
		prev[cr.ID] = cr.Status
	}
	var errs []error
	for _, cr := range next.ChangeRequests {
		from, ok := prev[cr.ID]
		if !ok || from == cr.Status {
			continue
		}
		if !from.CanTransitionTo(cr.Status) {
			errs = append(errs, fmt.Errorf("change request '%s' cannot move from %s to %s", cr.ID, from, cr.Status))
		}
	}
	return errs
}
