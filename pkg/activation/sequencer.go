// Package activation runs the one-shot startup synchronization of a session.
package activation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// SyncFunc performs the startup synchronization with the host.
type SyncFunc func(ctx context.Context) error

// Sequencer isolates startup failures: a failed sync is logged and absorbed
// so the rest of the session still comes up.
type Sequencer struct {
	refresh func()
	logger  *slog.Logger
	once    sync.Once
}

// NewSequencer creates a Sequencer that calls refresh after a successful sync.
func NewSequencer(refresh func(), logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	if refresh == nil {
		refresh = func() {}
	}
	return &Sequencer{refresh: refresh, logger: logger}
}

// Run invokes syncFn once. On success it triggers the refresh and logs; on
// failure, including a panic, it logs the failure and returns normally.
// Calls after the first are ignored.
func (s *Sequencer) Run(ctx context.Context, syncFn SyncFunc) {
	ran := false
	s.once.Do(func() {
		ran = true
		if err := safeSync(ctx, syncFn); err != nil {
			s.logger.Error("startup sync failed", "error", err.Error())
			return
		}
		s.refresh()
		s.logger.Info("startup sync completed")
	})
	if !ran {
		s.logger.Debug("startup sync already ran; ignoring")
	}
}

// Run is a convenience for a single activation with its own Sequencer.
func Run(ctx context.Context, syncFn SyncFunc, refresh func(), logger *slog.Logger) {
	NewSequencer(refresh, logger).Run(ctx, syncFn)
}

func safeSync(ctx context.Context, syncFn SyncFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during sync: %v", r)
		}
	}()
	return syncFn(ctx)
}
