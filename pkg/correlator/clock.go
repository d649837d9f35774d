package correlator

import "time"

// Timer is the cancellation handle of a scheduled timeout.
type Timer interface {
	Stop() bool
}

// Clock schedules timeouts. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
