// Package bridge carries typed messages between the review view and its host
// over an ordered, serialized, in-process channel.
package bridge

import (
	"fmt"

	"github.com/eitatech/gatomia/pkg/domain/review"
)

// Message types exchanged between view and host.
const (
	TypeSubmitChanges = "spec/submitChanges"
	TypeArchive       = "spec/archive"
	TypeUnarchive     = "spec/unarchive"
	TypeRefresh       = "review/refresh"

	TypeResult        = "spec/result"
	TypeReviewSpecs   = "review/specs"
	TypeArchivedSpecs = "review/archivedSpecs"
	TypeSpecUpdated   = "spec/updated"
	TypeReset         = "review/reset"
)

// Message is the closed set of payloads the channel can carry. Only types in
// this package implement it.
type Message interface {
	MessageType() string
	isMessage()
}

// CorrelatedRequest is an outbound message that expects a Reply carrying the
// same request id.
type CorrelatedRequest interface {
	Message
	// WithRequestID returns a copy of the request tagged with id.
	WithRequestID(id string) CorrelatedRequest
	// Validate rejects requests that would be a no-op for the host.
	Validate() error
}

// CorrelatedReply is an inbound message answering a CorrelatedRequest.
type CorrelatedReply interface {
	Message
	CorrelationID() string
}

// SubmitChangesRequest asks the host to apply a patch to a specification.
type SubmitChangesRequest struct {
	RequestID string           `json:"requestId"`
	SpecID    string           `json:"specId"`
	Changes   review.SpecPatch `json:"changes"`
}

func (SubmitChangesRequest) MessageType() string { return TypeSubmitChanges }
func (SubmitChangesRequest) isMessage()          {}

func (r SubmitChangesRequest) WithRequestID(id string) CorrelatedRequest {
	r.RequestID = id
	return r
}

// Validate rejects submissions with no changed fields.
func (r SubmitChangesRequest) Validate() error {
	if r.SpecID == "" {
		return fmt.Errorf("submit changes: %w", ErrMissingSpecID)
	}
	if r.Changes.IsEmpty() {
		return fmt.Errorf("submit changes to %s: %w", r.SpecID, ErrEmptySubmission)
	}
	return nil
}

// ArchiveRequest asks the host to move a specification to the archived lane.
type ArchiveRequest struct {
	RequestID string `json:"requestId"`
	SpecID    string `json:"specId"`
}

func (ArchiveRequest) MessageType() string { return TypeArchive }
func (ArchiveRequest) isMessage()          {}

func (r ArchiveRequest) WithRequestID(id string) CorrelatedRequest {
	r.RequestID = id
	return r
}

func (r ArchiveRequest) Validate() error {
	if r.SpecID == "" {
		return fmt.Errorf("archive: %w", ErrMissingSpecID)
	}
	return nil
}

// UnarchiveRequest asks the host to move a specification back to review.
type UnarchiveRequest struct {
	RequestID string `json:"requestId"`
	SpecID    string `json:"specId"`
}

func (UnarchiveRequest) MessageType() string { return TypeUnarchive }
func (UnarchiveRequest) isMessage()          {}

func (r UnarchiveRequest) WithRequestID(id string) CorrelatedRequest {
	r.RequestID = id
	return r
}

func (r UnarchiveRequest) Validate() error {
	if r.SpecID == "" {
		return fmt.Errorf("unarchive: %w", ErrMissingSpecID)
	}
	return nil
}

// RefreshRequest asks the host to push both lanes again. It is not correlated.
type RefreshRequest struct{}

func (RefreshRequest) MessageType() string { return TypeRefresh }
func (RefreshRequest) isMessage()          {}

// ReplyStatus is the outcome a host reports for a correlated request.
type ReplyStatus string

const (
	ReplyStatusSuccess ReplyStatus = "success"
	ReplyStatusError   ReplyStatus = "error"
)

// Reply answers a correlated request.
type Reply struct {
	RequestID string                `json:"requestId"`
	Status    ReplyStatus           `json:"status"`
	Message   string                `json:"message,omitempty"`
	Spec      *review.Specification `json:"spec,omitempty"`
	Lane      review.Lane           `json:"lane,omitempty"`
}

func (Reply) MessageType() string { return TypeResult }
func (Reply) isMessage()          {}

func (r Reply) CorrelationID() string { return r.RequestID }

// Err returns a *ReplyError when the host reported a failure.
func (r Reply) Err() error {
	if r.Status == ReplyStatusSuccess {
		return nil
	}
	return &ReplyError{RequestID: r.RequestID, Message: r.Message}
}

// ReviewSpecsUpdate replaces the review lane.
type ReviewSpecsUpdate struct {
	Specs []review.Specification `json:"specs"`
}

func (ReviewSpecsUpdate) MessageType() string { return TypeReviewSpecs }
func (ReviewSpecsUpdate) isMessage()          {}

// ArchivedSpecsUpdate replaces the archived lane.
type ArchivedSpecsUpdate struct {
	Specs []review.Specification `json:"specs"`
}

func (ArchivedSpecsUpdate) MessageType() string { return TypeArchivedSpecs }
func (ArchivedSpecsUpdate) isMessage()          {}

// SpecPatched patches a single specification wherever it lives.
type SpecPatched struct {
	SpecID string           `json:"specId"`
	Patch  review.SpecPatch `json:"patch"`
}

func (SpecPatched) MessageType() string { return TypeSpecUpdated }
func (SpecPatched) isMessage()          {}

// ResetNotice clears the view's state.
type ResetNotice struct{}

func (ResetNotice) MessageType() string { return TypeReset }
func (ResetNotice) isMessage()          {}
