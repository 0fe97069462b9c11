package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"merchant-settlement/internal/clock"
	"merchant-settlement/internal/model"
	"merchant-settlement/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatsService keeps the per-user dashboard counters. The Record* methods run
// inside the caller's transaction so counters commit together with the money
// movement that produced them.
type StatsService interface {
	Windows(now time.Time) repository.Windows
	RecordSale(ctx context.Context, tx *gorm.DB, userID string, gross, net int64, now time.Time) error
	RecordPayoutRequested(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error
	RecordPayoutSettled(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error
	RecordPayoutDropped(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error
	Refresh(ctx context.Context, userID string) (*model.UserStats, error)
}

type statsServiceImpl struct {
	db          *gorm.DB
	statsRepo   repository.StatsRepository
	productRepo repository.ProductRepository
	location    *time.Location
	clock       clock.Clock
	log         *zap.Logger
}

func NewStatsService(
	db *gorm.DB,
	statsRepo repository.StatsRepository,
	productRepo repository.ProductRepository,
	location *time.Location,
	clk clock.Clock,
	log *zap.Logger,
) StatsService {
	if location == nil {
		location = time.UTC
	}
	return &statsServiceImpl{
		db:          db,
		statsRepo:   statsRepo,
		productRepo: productRepo,
		location:    location,
		clock:       clk,
		log:         log.Named("stats"),
	}
}

// Windows computes the day and month boundaries containing now in the
// configured timezone, expressed in UTC.
func (s *statsServiceImpl) Windows(now time.Time) repository.Windows {
	local := now.In(s.location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.location)
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	return repository.Windows{
		Now:            now.UTC(),
		DayStart:       dayStart.UTC(),
		MonthStart:     monthStart.UTC(),
		PrevMonthStart: prevMonthStart.UTC(),
	}
}

func (s *statsServiceImpl) prepare(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	if err := s.statsRepo.Ensure(ctx, tx, userID, now); err != nil {
		return fmt.Errorf("ensure stats row: %w", err)
	}
	if err := s.statsRepo.RollWindows(ctx, tx, userID, s.Windows(now)); err != nil {
		return fmt.Errorf("roll stats windows: %w", err)
	}
	return nil
}

func (s *statsServiceImpl) RecordSale(ctx context.Context, tx *gorm.DB, userID string, gross, net int64, now time.Time) error {
	if err := s.prepare(ctx, tx, userID, now); err != nil {
		return err
	}
	if err := s.statsRepo.AddSale(ctx, tx, userID, gross, net, now); err != nil {
		return fmt.Errorf("add sale: %w", err)
	}
	if err := s.statsRepo.RecomputeGrowth(ctx, tx, userID); err != nil {
		return fmt.Errorf("recompute growth: %w", err)
	}
	return nil
}

func (s *statsServiceImpl) RecordPayoutRequested(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	if err := s.prepare(ctx, tx, userID, now); err != nil {
		return err
	}
	if err := s.statsRepo.AddPayoutRequest(ctx, tx, userID, now); err != nil {
		return fmt.Errorf("add payout request: %w", err)
	}
	return nil
}

func (s *statsServiceImpl) RecordPayoutSettled(ctx context.Context, tx *gorm.DB, userID string, amount int64, now time.Time) error {
	if err := s.prepare(ctx, tx, userID, now); err != nil {
		return err
	}
	if err := s.statsRepo.SettlePayoutRequest(ctx, tx, userID, amount, now); err != nil {
		return fmt.Errorf("settle payout request: %w", err)
	}
	return nil
}

func (s *statsServiceImpl) RecordPayoutDropped(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	if err := s.prepare(ctx, tx, userID, now); err != nil {
		return err
	}
	if err := s.statsRepo.DropPayoutRequest(ctx, tx, userID, now); err != nil {
		return fmt.Errorf("drop payout request: %w", err)
	}
	return nil
}

// Refresh rolls the windows forward to the current time and recounts the
// catalog, so a dashboard read after a quiet period shows zeroed day and
// month figures.
func (s *statsServiceImpl) Refresh(ctx context.Context, userID string) (*model.UserStats, error) {
	total, visible, err := s.productRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.prepare(ctx, tx, userID, now); err != nil {
			return err
		}
		if err := s.statsRepo.SetProductCounts(ctx, tx, userID, total, visible, now); err != nil {
			return fmt.Errorf("set product counts: %w", err)
		}
		return s.statsRepo.RecomputeGrowth(ctx, tx, userID)
	})
	if err != nil {
		s.log.Error("Failed to refresh stats", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	stats, err := s.statsRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.UserStats{UserID: userID}, nil
		}
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
