package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"

	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/domain/review"
	"github.com/eitatech/gatomia/pkg/storage"
)

var (
	// ErrSpecNotFound indicates no lane holds the requested specification.
	ErrSpecNotFound = errors.New("specification not found")

	// ErrEmptySubmission is shared with the bridge so both sides match the same sentinel.
	ErrEmptySubmission = bridge.ErrEmptySubmission
)

// DefaultSyncTimeout bounds a single lane load.
const DefaultSyncTimeout = 5 * time.Second

// LaneRepository persists both specification lanes.
type LaneRepository interface {
	LoadLanes(ctx context.Context) (*storage.Lanes, error)
	SaveLanes(lanes *storage.Lanes) error
}

// HistoryRecorder receives an entry for every applied change.
type HistoryRecorder interface {
	Append(entry *review.HistoryEntry) error
}

// ReviewService owns the host's copy of the lanes and applies lane moves and
// submitted changes to it.
type ReviewService struct {
	repo        LaneRepository
	history     HistoryRecorder
	logger      *slog.Logger
	now         func() time.Time
	syncTimeout time.Duration

	mu    sync.Mutex
	lanes *storage.Lanes
}

// ReviewOption configures a ReviewService.
type ReviewOption func(*ReviewService)

// WithSyncTimeout overrides DefaultSyncTimeout.
func WithSyncTimeout(d time.Duration) ReviewOption {
	return func(s *ReviewService) {
		if d > 0 {
			s.syncTimeout = d
		}
	}
}

// WithNow injects the clock used to stamp archive times.
func WithNow(now func() time.Time) ReviewOption {
	return func(s *ReviewService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithHistory records applied changes to h. Recording failures are logged
// and never fail the change itself.
func WithHistory(h HistoryRecorder) ReviewOption {
	return func(s *ReviewService) {
		s.history = h
	}
}

// WithServiceLogger sets the logger. Nil keeps slog.Default().
func WithServiceLogger(logger *slog.Logger) ReviewOption {
	return func(s *ReviewService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewReviewService(repo LaneRepository, opts ...ReviewOption) *ReviewService {
	s := &ReviewService{
		repo:        repo,
		logger:      slog.Default(),
		now:         time.Now,
		syncTimeout: DefaultSyncTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync reloads the lanes from the repository.
func (s *ReviewService) Sync(ctx context.Context) error {
	tm := timeout.New[*storage.Lanes](timeout.Config{DefaultTimeout: s.syncTimeout})
	lanes, err := tm.Execute(ctx, s.syncTimeout, func(ctx context.Context) (*storage.Lanes, error) {
		return s.repo.LoadLanes(ctx)
	})
	if err != nil {
		return fmt.Errorf("sync lanes: %w", err)
	}

	s.mu.Lock()
	s.lanes = lanes
	s.mu.Unlock()

	s.logger.Debug("lanes synced", "review", len(lanes.Review), "archived", len(lanes.Archived), "version", lanes.Version)
	return nil
}

// Lanes returns copies of the review and archived lanes.
func (s *ReviewService) Lanes() (reviewLane, archivedLane []review.Specification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lanes == nil {
		return []review.Specification{}, []review.Specification{}
	}
	return cloneSpecs(s.lanes.Review), cloneSpecs(s.lanes.Archived)
}

// Archive moves a specification to the archived lane. Specifications with
// blockers are refused with a *review.ArchivalBlockedError.
func (s *ReviewService) Archive(ctx context.Context, specID string) (review.Specification, error) {
	return s.move(ctx, specID, review.EventArchive)
}

// Unarchive moves a specification back to the review lane.
func (s *ReviewService) Unarchive(ctx context.Context, specID string) (review.Specification, error) {
	return s.move(ctx, specID, review.EventUnarchive)
}

func (s *ReviewService) move(ctx context.Context, specID, event string) (review.Specification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return review.Specification{}, err
	}

	spec, lane, ok := s.find(specID)
	if !ok {
		return review.Specification{}, fmt.Errorf("%w: %s", ErrSpecNotFound, specID)
	}

	machine, err := review.NewLifecycleMachine(spec)
	if err != nil {
		return review.Specification{}, err
	}
	if err := machine.Transition(event); err != nil {
		s.logger.Info("lane move refused", "spec_id", specID, "lane", lane, "event", event, "error", err)
		return review.Specification{}, err
	}

	var moved review.Specification
	if event == review.EventArchive {
		moved, err = review.Archive(spec, s.now())
		if err != nil {
			return review.Specification{}, err
		}
	} else {
		moved = review.Unarchive(spec)
	}

	if err := s.commit(moved); err != nil {
		return review.Specification{}, err
	}

	historyType := review.HistoryArchived
	if event == review.EventUnarchive {
		historyType = review.HistoryUnarchived
	}
	s.record(&review.HistoryEntry{Type: historyType, SpecID: specID, From: lane, To: machine.Current()})

	s.logger.Info("lane move applied", "spec_id", specID, "from", lane, "to", machine.Current())
	return moved.Clone(), nil
}

// SubmitChanges applies patch to a specification. A patch that sets or
// clears archivedAt also moves the specification between lanes.
func (s *ReviewService) SubmitChanges(ctx context.Context, specID string, patch review.SpecPatch) (review.Specification, review.Lane, error) {
	if patch.IsEmpty() {
		return review.Specification{}, "", fmt.Errorf("submit changes to %s: %w", specID, ErrEmptySubmission)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return review.Specification{}, "", err
	}

	spec, from, ok := s.find(specID)
	if !ok {
		return review.Specification{}, "", fmt.Errorf("%w: %s", ErrSpecNotFound, specID)
	}

	updated := patch.Apply(spec)
	if errs := append(updated.Validate(), spec.ValidateUpdate(updated)...); len(errs) > 0 {
		return review.Specification{}, "", fmt.Errorf("invalid changes to %s: %w", specID, errors.Join(errs...))
	}

	if err := s.commit(updated); err != nil {
		return review.Specification{}, "", err
	}

	to := review.LaneOf(updated)
	s.record(&review.HistoryEntry{Type: review.HistoryChanged, SpecID: specID, From: from, To: to, Fields: patch.Fields()})

	s.logger.Info("changes submitted", "spec_id", specID, "fields", patch.Fields())
	return updated.Clone(), to, nil
}

func (s *ReviewService) record(entry *review.HistoryEntry) {
	if s.history == nil {
		return
	}
	entry.Timestamp = s.now().UTC()
	if err := s.history.Append(entry); err != nil {
		s.logger.Warn("failed to record history", "spec_id", entry.SpecID, "type", entry.Type, "error", err)
	}
}

// commit writes spec into the lane its timestamps select and persists the
// result. A spec that stays in its lane keeps its position. The cached lanes
// change only when the save succeeds. Must be called with s.mu held.
func (s *ReviewService) commit(spec review.Specification) error {
	target := review.LaneOf(spec)
	next := &storage.Lanes{
		Version:  s.lanes.Version,
		Review:   placeSpec(s.lanes.Review, spec, target == review.LaneReview),
		Archived: placeSpec(s.lanes.Archived, spec, target == review.LaneArchived),
	}

	if err := s.repo.SaveLanes(next); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Force a reload before the next operation.
			s.lanes = nil
		}
		return fmt.Errorf("save lanes: %w", err)
	}
	s.lanes = next
	return nil
}

// Must be called with s.mu held.
func (s *ReviewService) ensureLoaded(ctx context.Context) error {
	if s.lanes != nil {
		return nil
	}
	lanes, err := s.repo.LoadLanes(ctx)
	if err != nil {
		return fmt.Errorf("load lanes: %w", err)
	}
	s.lanes = lanes
	return nil
}

// Must be called with s.mu held.
func (s *ReviewService) find(specID string) (review.Specification, review.Lane, bool) {
	for _, spec := range s.lanes.Review {
		if spec.ID == specID {
			return spec, review.LaneReview, true
		}
	}
	for _, spec := range s.lanes.Archived {
		if spec.ID == specID {
			return spec, review.LaneArchived, true
		}
	}
	return review.Specification{}, "", false
}

// placeSpec copies lane with spec replaced in place, appended when keep is
// set and it was absent, or removed when keep is unset.
func placeSpec(lane []review.Specification, spec review.Specification, keep bool) []review.Specification {
	out := make([]review.Specification, 0, len(lane)+1)
	found := false
	for _, cur := range lane {
		if cur.ID != spec.ID {
			out = append(out, cur)
			continue
		}
		found = true
		if keep {
			out = append(out, spec)
		}
	}
	if keep && !found {
		out = append(out, spec)
	}
	return out
}

func cloneSpecs(specs []review.Specification) []review.Specification {
	out := make([]review.Specification, len(specs))
	for i, spec := range specs {
		out[i] = spec.Clone()
	}
	return out
}
