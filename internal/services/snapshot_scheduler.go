package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/qrmenu/backend/domain"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// SnapshotPublisher is the slice of the snapshot service the scheduler uses.
type SnapshotPublisher interface {
	CreateSnapshot(ctx context.Context, organizationID string) (*domain.MenuSnapshot, error)
}

// OrganizationSource lists the organizations due for a periodic capture.
type OrganizationSource interface {
	ListActiveOrganizationIDs(ctx context.Context) ([]string, error)
}

// SchedulerConfig controls when and how snapshot runs happen.
type SchedulerConfig struct {
	Schedule   string
	RunTimeout time.Duration
}

// SnapshotScheduler publishes a menu snapshot for every active organization
// on a cron schedule, giving each tenant a regular audited capture even when
// nobody edits the menu.
type SnapshotScheduler struct {
	publisher SnapshotPublisher
	orgs      OrganizationSource
	monitor   ConnectionHealth
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       SchedulerConfig
}

func NewSnapshotScheduler(
	publisher SnapshotPublisher,
	orgs OrganizationSource,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg SchedulerConfig,
) *SnapshotScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "0 3 * * *"
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SnapshotScheduler{
		publisher: publisher,
		orgs:      orgs,
		monitor:   monitor,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(),
	}

	_, _ = s.cron.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RunTimeout)
		defer cancel()
		s.PublishAll(ctx)
	})

	return s
}

func (s *SnapshotScheduler) Start() {
	s.cron.Start()
	s.logger.Info("snapshot scheduler started", zap.String("schedule", s.cfg.Schedule))
}

// Stop halts the cron and waits for an in-flight run, bounded by ctx.
func (s *SnapshotScheduler) Stop(ctx context.Context) {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		s.logger.Warn("snapshot scheduler stop timed out")
	}
}

// PublishAll creates one snapshot per active organization. A version
// conflict means another publisher won the race for that organization; the
// publish is retried once and otherwise treated as already done.
func (s *SnapshotScheduler) PublishAll(ctx context.Context) {
	if s.monitor != nil && !s.monitor.IsOnline() {
		s.logger.Warn("skipping snapshot run, store offline")
		return
	}

	ids, err := s.orgs.ListActiveOrganizationIDs(ctx)
	if err != nil {
		s.logger.Error("failed to list organizations for snapshot run", zap.Error(err))
		return
	}

	published := 0
	for _, orgID := range ids {
		if ctx.Err() != nil {
			s.logger.Warn("snapshot run interrupted", zap.Int("published", published))
			return
		}
		if err := s.publishOne(ctx, orgID); err != nil {
			s.logger.Error("failed to publish snapshot",
				zap.String("organization_id", orgID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	s.logger.Info("snapshot run complete",
		zap.Int("organizations", len(ids)),
		zap.Int("published", published),
	)
}

func (s *SnapshotScheduler) publishOne(ctx context.Context, organizationID string) error {
	_, err := s.publisher.CreateSnapshot(ctx, organizationID)
	if errors.Is(err, domain.ErrVersionConflict) {
		_, err = s.publisher.CreateSnapshot(ctx, organizationID)
		if errors.Is(err, domain.ErrVersionConflict) {
			// Lost the race twice; a concurrent publisher has captured
			// this organization moments ago.
			return nil
		}
	}
	return err
}
