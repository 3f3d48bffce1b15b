package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/dto"
	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

const librarianDashboardCacheKey = "dashboard:librarian"

type dashboardBorrowReader interface {
	CountByStatus(ctx context.Context, status models.BorrowStatus) (int, error)
	CountOverdue(ctx context.Context, today time.Time) (int, error)
	SumUnpaidFines(ctx context.Context) (int64, error)
	ListPending(ctx context.Context, limit int) ([]models.BorrowDetail, error)
	ListDueSoon(ctx context.Context, today time.Time, window time.Duration, limit int) ([]models.BorrowDetail, error)
	ListOverdue(ctx context.Context, today time.Time, limit int) ([]models.BorrowDetail, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DashboardConfig tunes the librarian work queue view.
type DashboardConfig struct {
	DueSoonWindowDays int
	ListLimit         int
	CacheTTL          time.Duration
}

// DashboardService assembles the librarian landing view: pending approvals,
// current and overdue loans, unpaid fines, and the short action lists.
type DashboardService struct {
	borrows dashboardBorrowReader
	cache   dashboardCache
	metrics *MetricsService
	logger  *zap.Logger
	config  DashboardConfig
	now     func() time.Time
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(borrows dashboardBorrowReader, cache dashboardCache, metrics *MetricsService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		borrows: borrows,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		config:  config,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LibrarianDashboard returns the work queue snapshot, served from cache when
// fresh. Ledger transitions invalidate the key, so a cold read always sees
// current numbers.
func (s *DashboardService) LibrarianDashboard(ctx context.Context) (*dto.LibrarianDashboardResponse, error) {
	if s.cache != nil {
		var cached dto.LibrarianDashboardResponse
		err := s.cache.Get(ctx, librarianDashboardCacheKey, &cached)
		if err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
	}

	today := truncateToDay(s.now())
	window := time.Duration(s.config.DueSoonWindowDays) * 24 * time.Hour

	pendingCount, err := s.borrows.CountByStatus(ctx, models.BorrowStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending borrows")
	}
	currentCount, err := s.borrows.CountByStatus(ctx, models.BorrowStatusBorrowed)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count current borrows")
	}
	overdueCount, err := s.borrows.CountOverdue(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count overdue borrows")
	}
	unpaidFines, err := s.borrows.SumUnpaidFines(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum fines")
	}

	pending, err := s.borrows.ListPending(ctx, s.config.ListLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending borrows")
	}
	dueSoon, err := s.borrows.ListDueSoon(ctx, today, window, s.config.ListLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due-soon borrows")
	}
	overdue, err := s.borrows.ListOverdue(ctx, today, s.config.ListLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue borrows")
	}

	resp := &dto.LibrarianDashboardResponse{
		PendingApprovalsCount: pendingCount,
		CurrentBorrowsCount:   currentCount,
		OverdueBooksCount:     overdueCount,
		TotalUnpaidFines:      unpaidFines,
		PendingBorrows:        pending,
		DueSoonBorrows:        dueSoon,
		OverdueBorrows:        overdue,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, librarianDashboardCacheKey, resp, s.config.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return resp, nil
}
