package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptySubmission indicates a correlated submission carried no changes.
	ErrEmptySubmission = errors.New("submission has no changed fields")

	// ErrMissingSpecID indicates a request did not name a specification.
	ErrMissingSpecID = errors.New("specification id is required")

	// ErrChannelClosed indicates the channel no longer accepts messages.
	ErrChannelClosed = errors.New("channel closed")

	// ErrUnknownType indicates an envelope type outside the message set.
	ErrUnknownType = errors.New("unknown message type")

	// ErrHostFailure matches every *ReplyError.
	ErrHostFailure = errors.New("host reported failure")
)

// ReplyError is a failure reported by the host in a Reply.
type ReplyError struct {
	RequestID string
	Message   string
}

func (e *ReplyError) Error() string {
	if e.Message == "" {
		return "host reported failure for request " + e.RequestID
	}
	return e.Message
}

// Is allows errors.Is to work with ReplyError.
func (e *ReplyError) Is(target error) bool {
	return target == ErrHostFailure
}

// SchemaError lists the schema violations of a rejected payload.
type SchemaError struct {
	Type       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.Type, strings.Join(e.Violations, "; "))
}
