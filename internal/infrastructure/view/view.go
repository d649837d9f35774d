// Package view binds the review panel's store to the host channel and
// exposes the panel's actions as awaitable calls.
package view

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/correlator"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/store"
)

// ReviewView is the view-side controller of one review panel.
type ReviewView struct {
	ch         bridge.Channel
	store      *store.Store
	corr       *correlator.Correlator
	dispatcher *bridge.Dispatcher
	logger     *slog.Logger
	detach     func()
}

func New(ch bridge.Channel, st *store.Store, corr *correlator.Correlator, logger *slog.Logger) *ReviewView {
	if logger == nil {
		logger = slog.Default()
	}
	v := &ReviewView{
		ch:         ch,
		store:      st,
		corr:       corr,
		dispatcher: bridge.NewDispatcher(),
		logger:     logger,
	}
	v.dispatcher.RegisterHandler("review-lane", v.onReviewSpecs, bridge.TypeReviewSpecs)
	v.dispatcher.RegisterHandler("archived-lane", v.onArchivedSpecs, bridge.TypeArchivedSpecs)
	v.dispatcher.RegisterHandler("spec-patch", v.onSpecPatched, bridge.TypeSpecUpdated)
	v.dispatcher.RegisterHandler("reset", v.onReset, bridge.TypeReset)
	return v
}

// Bind starts applying host pushes to the store.
func (v *ReviewView) Bind(ctx context.Context) {
	if v.detach != nil {
		return
	}
	v.detach = v.dispatcher.Attach(ctx, v.ch, v.logger)
}

// Unbind stops applying host pushes.
func (v *ReviewView) Unbind() {
	if v.detach != nil {
		v.detach()
		v.detach = nil
	}
}

// Store returns the store this view feeds.
func (v *ReviewView) Store() *store.Store {
	return v.store
}

// Refresh asks the host to push both lanes again.
func (v *ReviewView) Refresh(ctx context.Context) error {
	if err := v.ch.Send(ctx, bridge.RefreshRequest{}); err != nil {
		return fmt.Errorf("request refresh: %w", err)
	}
	return nil
}

// Archive asks the host to archive a specification. A specification the
// store already knows to be blocked is refused locally with a
// *review.ArchivalBlockedError and nothing is sent.
func (v *ReviewView) Archive(ctx context.Context, specID string) (*bridge.Reply, error) {
	if spec, lane, ok := v.store.Find(specID); ok && lane == review.LaneReview {
		if blockers := review.ComputeArchivalBlockers(*spec); len(blockers) > 0 {
			return nil, &review.ArchivalBlockedError{SpecID: specID, Blockers: blockers}
		}
	}
	return v.move(ctx, bridge.ArchiveRequest{SpecID: specID})
}

// Unarchive asks the host to move a specification back to review.
func (v *ReviewView) Unarchive(ctx context.Context, specID string) (*bridge.Reply, error) {
	return v.move(ctx, bridge.UnarchiveRequest{SpecID: specID})
}

func (v *ReviewView) move(ctx context.Context, req bridge.CorrelatedRequest) (*bridge.Reply, error) {
	reply, err := v.corr.Correlate(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := reply.Err(); err != nil {
		return reply, err
	}
	v.applyReply(reply)
	return reply, nil
}

// SubmitChanges applies patch to the store immediately and sends it to the
// host. The store is rolled back when the host does not confirm.
func (v *ReviewView) SubmitChanges(ctx context.Context, specID string, patch review.SpecPatch) (*bridge.Reply, error) {
	req := bridge.SubmitChangesRequest{SpecID: specID, Changes: patch}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prev, lane, known := v.store.Find(specID)
	var before review.Specification
	var optimistic *review.Specification
	if known {
		before = prev.Clone()
		optimistic = v.store.PatchSpec(specID, patch)
	}

	reply, err := v.corr.Correlate(ctx, req)
	if err == nil {
		err = reply.Err()
	}
	if err != nil {
		// A push that landed meanwhile is newer than our snapshot.
		if optimistic != nil && !v.store.PlaceIfCurrent(optimistic, lane, before) {
			v.logger.Debug("host state replaced optimistic update; skipping rollback", "spec_id", specID)
		}
		v.logger.Warn("submit changes failed", "spec_id", specID, "fields", patch.Fields(), "error", err)
		return reply, err
	}

	v.applyReply(reply)
	return reply, nil
}

func (v *ReviewView) applyReply(reply *bridge.Reply) {
	if reply.Spec == nil {
		return
	}
	lane := reply.Lane
	if !lane.IsValid() {
		lane = review.LaneOf(*reply.Spec)
	}
	v.store.Place(lane, *reply.Spec)
}

func (v *ReviewView) onReviewSpecs(_ context.Context, msg bridge.Message) error {
	v.store.SetReviewSpecs(pointers(msg.(bridge.ReviewSpecsUpdate).Specs))
	return nil
}

func (v *ReviewView) onArchivedSpecs(_ context.Context, msg bridge.Message) error {
	v.store.SetArchivedSpecs(pointers(msg.(bridge.ArchivedSpecsUpdate).Specs))
	return nil
}

func (v *ReviewView) onSpecPatched(_ context.Context, msg bridge.Message) error {
	m := msg.(bridge.SpecPatched)
	if !v.store.UpdateSpec(m.SpecID, m.Patch) {
		v.logger.Debug("patch for unknown specification", "spec_id", m.SpecID)
	}
	return nil
}

func (v *ReviewView) onReset(context.Context, bridge.Message) error {
	v.store.Reset()
	return nil
}

func pointers(specs []review.Specification) []*review.Specification {
	out := make([]*review.Specification, len(specs))
	for i := range specs {
		out[i] = &specs[i]
	}
	return out
}
