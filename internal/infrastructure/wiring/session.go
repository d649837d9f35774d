// Package wiring assembles a review session: the host and view halves joined
// by an in-process pipe.
package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eitatech/gatomia/internal/application"
	"github.com/eitatech/gatomia/internal/infrastructure/config"
	"github.com/eitatech/gatomia/internal/infrastructure/host"
	"github.com/eitatech/gatomia/internal/infrastructure/view"
	"github.com/eitatech/gatomia/pkg/activation"
	"github.com/eitatech/gatomia/pkg/bridge"
	"github.com/eitatech/gatomia/pkg/correlator"
	"github.com/eitatech/gatomia/pkg/storage"
	"github.com/eitatech/gatomia/pkg/store"
)

// Session bundles one host and one view over a workspace.
type Session struct {
	Config  *config.Config
	Repo    *storage.FilesystemRepository
	History *storage.FileHistory
	Service *application.ReviewService
	Host    *host.Host
	View    *view.ReviewView
	Store   *store.Store

	logger  *slog.Logger
	viewEnd *bridge.Endpoint
	hostEnd *bridge.Endpoint
	corr    *correlator.Correlator
	cancel  context.CancelFunc

	startupErr error
}

// NewSession wires a session for the workspace at root. Nothing is sent
// until Activate.
func NewSession(root string, cfg *config.Config, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	repo := storage.NewFilesystemRepository(root)
	history, err := storage.NewFileHistory(repo.DataPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	svc := application.NewReviewService(repo,
		application.WithHistory(history),
		application.WithSyncTimeout(cfg.SyncTimeout),
		application.WithServiceLogger(logger.With("component", "review-service")),
	)

	viewEnd, hostEnd := bridge.NewPipe(logger)
	corr := correlator.New(viewEnd,
		correlator.WithDefaultTimeout(cfg.RequestTimeout),
		correlator.WithLogger(logger.With("component", "correlator")),
	)
	st := store.New()

	return &Session{
		Config:  cfg,
		Repo:    repo,
		History: history,
		Service: svc,
		Host:    host.New(svc, hostEnd, logger.With("component", "host")),
		View:    view.New(viewEnd, st, corr, logger.With("component", "view")),
		Store:   st,
		logger:  logger,
		viewEnd: viewEnd,
		hostEnd: hostEnd,
		corr:    corr,
	}, nil
}

// Activate starts both halves and runs the startup sequence: sync the
// workspace, then ask for a review refresh. A failed sync is logged and the
// session stays usable.
func (s *Session) Activate(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.Host.Start(ctx)
	s.View.Bind(ctx)

	refresh := func() {
		if err := s.View.Refresh(ctx); err != nil {
			s.logger.Warn("review refresh failed", "error", err)
		}
	}
	syncFn := func(ctx context.Context) error {
		s.startupErr = s.Service.Sync(ctx)
		return s.startupErr
	}
	activation.Run(ctx, syncFn, refresh, s.logger.With("component", "activation"))
}

// Open activates the session and waits up to wait for the first lane push
// from the host to reach the store. Unlike Activate it reports a failed
// startup sync to the caller.
func (s *Session) Open(ctx context.Context, wait time.Duration) error {
	pushes := make(chan struct{}, 2)
	unsubscribe := s.Store.Subscribe(func() {
		select {
		case pushes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	s.Activate(ctx)
	if s.startupErr != nil {
		return s.startupErr
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	// One push per lane.
	for i := 0; i < 2; i++ {
		select {
		case <-pushes:
		case <-timer.C:
			return fmt.Errorf("no lanes received from the host within %s", wait)
		case <-ctx.Done():
			return fmt.Errorf("waiting for lanes: %w", ctx.Err())
		}
	}
	return nil
}

// Watch pushes fresh lanes whenever the workspace data file changes. It
// blocks until ctx is cancelled.
func (s *Session) Watch(ctx context.Context) error {
	if !s.Repo.IsInitialized() {
		if err := s.Repo.Initialize(); err != nil {
			return err
		}
	}
	return s.Host.WatchData(ctx, s.Repo.DataPath(), s.Config.WatchDebounce)
}

// Close stops both halves. In-flight requests fail with correlator.ErrClosed.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.View.Unbind()
	s.Host.Stop()
	_ = s.corr.Close()
	_ = s.viewEnd.Close()
	return s.hostEnd.Close()
}
