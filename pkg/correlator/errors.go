package correlator

import (
	"errors"
	"fmt"
	"time"

	"github.com/eitatech/gatomia/pkg/bridge"
)

var (
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("correlated request timed out")

	// ErrClosed indicates the correlator was closed with the request in flight.
	ErrClosed = errors.New("correlator closed")

	// ErrEmptySubmission is returned before sending when a submission carries
	// no changed fields.
	ErrEmptySubmission = bridge.ErrEmptySubmission
)

// TimeoutError reports a request that received no reply in time.
type TimeoutError struct {
	RequestID   string
	MessageType string
	After       time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request %s got no reply within %s", e.MessageType, e.RequestID, e.After)
}

// Is allows errors.Is to work with TimeoutError.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
