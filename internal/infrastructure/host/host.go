// Package host answers the review view's requests and keeps it supplied
// with the current lanes.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eitatech/gatomia/internal/application"
	"github.com/eitatech/gatomia/internal/infrastructure/watch"
	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/storage"
)

// Host serves one view over ch.
type Host struct {
	svc        *application.ReviewService
	ch         bridge.Channel
	dispatcher *bridge.Dispatcher
	logger     *slog.Logger
	detach     func()
}

func New(svc *application.ReviewService, ch bridge.Channel, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		svc:        svc,
		ch:         ch,
		dispatcher: bridge.NewDispatcher(),
		logger:     logger,
	}
	h.dispatcher.ContinueOnError = true
	h.dispatcher.RegisterHandler("archive", h.handleArchive, bridge.TypeArchive)
	h.dispatcher.RegisterHandler("unarchive", h.handleUnarchive, bridge.TypeUnarchive)
	h.dispatcher.RegisterHandler("submit-changes", h.handleSubmitChanges, bridge.TypeSubmitChanges)
	h.dispatcher.RegisterHandler("refresh", h.handleRefresh, bridge.TypeRefresh)
	h.dispatcher.RegisterWildcard("trace", h.trace)
	return h
}

func (h *Host) trace(_ context.Context, msg bridge.Message) error {
	attrs := []any{"type", msg.MessageType()}
	if req, ok := msg.(bridge.CorrelatedRequest); ok {
		attrs = append(attrs, "request", fmt.Sprintf("%+v", req))
	}
	h.logger.Debug("view message handled", attrs...)
	return nil
}

// Start begins answering messages from the view.
func (h *Host) Start(ctx context.Context) {
	if h.detach != nil {
		return
	}
	h.detach = h.dispatcher.Attach(ctx, h.ch, h.logger)
}

// Stop detaches the host from the channel.
func (h *Host) Stop() {
	if h.detach != nil {
		h.detach()
		h.detach = nil
	}
}

// Sync reloads the lanes and pushes them to the view.
func (h *Host) Sync(ctx context.Context) error {
	if err := h.svc.Sync(ctx); err != nil {
		return err
	}
	return h.PushLanes(ctx)
}

// PushLanes sends both lanes to the view.
func (h *Host) PushLanes(ctx context.Context) error {
	reviewLane, archivedLane := h.svc.Lanes()
	if err := h.ch.Send(ctx, bridge.ReviewSpecsUpdate{Specs: reviewLane}); err != nil {
		return fmt.Errorf("push review lane: %w", err)
	}
	if err := h.ch.Send(ctx, bridge.ArchivedSpecsUpdate{Specs: archivedLane}); err != nil {
		return fmt.Errorf("push archived lane: %w", err)
	}
	return nil
}

// WatchData re-syncs and re-pushes the lanes whenever the workspace data file
// changes on disk. It blocks until ctx is cancelled.
func (h *Host) WatchData(ctx context.Context, dataDir string, debounce time.Duration) error {
	w, err := watch.NewDirWatcher(dataDir, watch.FileFilter(storage.SpecsFile), debounce, func(ev watch.ChangeEvent) {
		h.logger.Debug("data file changed", "path", ev.Path, "op", ev.Op)
		if err := h.Sync(ctx); err != nil {
			h.logger.Warn("re-sync after data change failed", "error", err)
		}
	}, h.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

func (h *Host) handleArchive(ctx context.Context, msg bridge.Message) error {
	req := msg.(bridge.ArchiveRequest)
	spec, err := h.svc.Archive(ctx, req.SpecID)
	return h.finish(ctx, req.RequestID, spec, review.LaneArchived, err)
}

func (h *Host) handleUnarchive(ctx context.Context, msg bridge.Message) error {
	req := msg.(bridge.UnarchiveRequest)
	spec, err := h.svc.Unarchive(ctx, req.SpecID)
	return h.finish(ctx, req.RequestID, spec, review.LaneReview, err)
}

func (h *Host) handleSubmitChanges(ctx context.Context, msg bridge.Message) error {
	req := msg.(bridge.SubmitChangesRequest)
	spec, lane, err := h.svc.SubmitChanges(ctx, req.SpecID, req.Changes)
	return h.finish(ctx, req.RequestID, spec, lane, err)
}

func (h *Host) handleRefresh(ctx context.Context, _ bridge.Message) error {
	if err := h.svc.Sync(ctx); err != nil {
		// Serve the last good lanes rather than nothing.
		h.logger.Warn("refresh sync failed", "error", err)
	}
	return h.PushLanes(ctx)
}

// finish replies to a correlated request and, on success, pushes the lanes.
func (h *Host) finish(ctx context.Context, requestID string, spec review.Specification, lane review.Lane, opErr error) error {
	reply := bridge.Reply{RequestID: requestID, Status: bridge.ReplyStatusSuccess}
	if opErr != nil {
		reply.Status = bridge.ReplyStatusError
		reply.Message = opErr.Error()
	} else {
		reply.Spec = &spec
		reply.Lane = lane
	}

	if err := h.ch.Send(ctx, reply); err != nil {
		return fmt.Errorf("reply to %s: %w", requestID, err)
	}
	if opErr != nil {
		return nil
	}
	return h.PushLanes(ctx)
}
