package review

import (
	"encoding/json"
	"time"
)

// SpecPatch names the fields of a Specification to overwrite. Nil fields are
// left untouched.
type SpecPatch struct {
	Title                 *string          `json:"title,omitempty"`
	Owner                 *string          `json:"owner,omitempty"`
	CompletedAt           *time.Time       `json:"completedAt,omitempty"`
	ArchivedAt            *time.Time       `json:"archivedAt,omitempty"`
	ClearArchivedAt       bool             `json:"clearArchivedAt,omitempty"`
	PendingTasks          *int             `json:"pendingTasks,omitempty"`
	PendingChecklistItems *int             `json:"pendingChecklistItems,omitempty"`
	ChangeRequests        *[]ChangeRequest `json:"changeRequests,omitempty"`
	DocURL                *string          `json:"docUrl,omitempty"`
}

// MarshalJSON encodes a set but nil ChangeRequests as an empty list so the
// field survives the wire.
func (p SpecPatch) MarshalJSON() ([]byte, error) {
	type wire SpecPatch
	if p.ChangeRequests != nil && *p.ChangeRequests == nil {
		empty := []ChangeRequest{}
		p.ChangeRequests = &empty
	}
	return json.Marshal(wire(p))
}

// IsEmpty returns true when the patch would change nothing.
func (p SpecPatch) IsEmpty() bool {
	return p.Title == nil &&
		p.Owner == nil &&
		p.CompletedAt == nil &&
		p.ArchivedAt == nil &&
		!p.ClearArchivedAt &&
		p.PendingTasks == nil &&
		p.PendingChecklistItems == nil &&
		p.ChangeRequests == nil &&
		p.DocURL == nil
}

// Fields returns the JSON names of the fields the patch sets.
func (p SpecPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Owner != nil {
		fields = append(fields, "owner")
	}
	if p.CompletedAt != nil {
		fields = append(fields, "completedAt")
	}
	if p.ArchivedAt != nil || p.ClearArchivedAt {
		fields = append(fields, "archivedAt")
	}
	if p.PendingTasks != nil {
		fields = append(fields, "pendingTasks")
	}
	if p.PendingChecklistItems != nil {
		fields = append(fields, "pendingChecklistItems")
	}
	if p.ChangeRequests != nil {
		fields = append(fields, "changeRequests")
	}
	if p.DocURL != nil {
		fields = append(fields, "docUrl")
	}
	return fields
}

// Apply returns a copy of s with the patch applied. s itself is not modified.
func (p SpecPatch) Apply(s Specification) Specification {
	out := s.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Owner != nil {
		out.Owner = *p.Owner
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		out.CompletedAt = &t
	}
	if p.ClearArchivedAt {
		out.ArchivedAt = nil
	} else if p.ArchivedAt != nil {
		t := *p.ArchivedAt
		out.ArchivedAt = &t
	}
	if p.PendingTasks != nil {
		out.PendingTasks = *p.PendingTasks
	}
	if p.PendingChecklistItems != nil {
		out.PendingChecklistItems = *p.PendingChecklistItems
	}
	if p.ChangeRequests != nil {
		out.ChangeRequests = append([]ChangeRequest(nil), (*p.ChangeRequests)...)
	}
	if p.DocURL != nil {
		out.Links.DocURL = *p.DocURL
	}
	return out
}
