package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ndthanh/qltv-api/internal/models"
	appErrors "github.com/ndthanh/qltv-api/pkg/errors"
)

type dashboardBorrowReaderMock struct {
	pendingCount int
	currentCount int
	overdueCount int
	unpaidFines  int64
	pending      []models.BorrowDetail
	dueSoon      []models.BorrowDetail
	overdue      []models.BorrowDetail

	listLimits []int
	windows    []time.Duration
}

func (m *dashboardBorrowReaderMock) CountByStatus(ctx context.Context, status models.BorrowStatus) (int, error) {
	if status == models.BorrowStatusPending {
		return m.pendingCount, nil
	}
	return m.currentCount, nil
}

func (m *dashboardBorrowReaderMock) CountOverdue(ctx context.Context, today time.Time) (int, error) {
	return m.overdueCount, nil
}

func (m *dashboardBorrowReaderMock) SumUnpaidFines(ctx context.Context) (int64, error) {
	return m.unpaidFines, nil
}

func (m *dashboardBorrowReaderMock) ListPending(ctx context.Context, limit int) ([]models.BorrowDetail, error) {
	m.listLimits = append(m.listLimits, limit)
	return m.pending, nil
}

func (m *dashboardBorrowReaderMock) ListDueSoon(ctx context.Context, today time.Time, window time.Duration, limit int) ([]models.BorrowDetail, error) {
	m.listLimits = append(m.listLimits, limit)
	m.windows = append(m.windows, window)
	return m.dueSoon, nil
}

func (m *dashboardBorrowReaderMock) ListOverdue(ctx context.Context, today time.Time, limit int) ([]models.BorrowDetail, error) {
	m.listLimits = append(m.listLimits, limit)
	return m.overdue, nil
}

type dashboardCacheMock struct {
	entries map[string][]byte
	sets    int
}

func newDashboardCacheMock() *dashboardCacheMock {
	return &dashboardCacheMock{entries: map[string][]byte{}}
}

func (m *dashboardCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *dashboardCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func TestDashboardServiceAssemblesSnapshot(t *testing.T) {
	borrows := &dashboardBorrowReaderMock{
		pendingCount: 4,
		currentCount: 9,
		overdueCount: 2,
		unpaidFines:  35000,
		pending:      []models.BorrowDetail{{BookTitle: "Dune"}},
	}
	cache := newDashboardCacheMock()
	svc := NewDashboardService(borrows, cache, nil, zap.NewNop(), DashboardConfig{
		DueSoonWindowDays: 3,
		ListLimit:         10,
		CacheTTL:          time.Minute,
	})

	resp, err := svc.LibrarianDashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, resp.PendingApprovalsCount)
	require.Equal(t, 9, resp.CurrentBorrowsCount)
	require.Equal(t, 2, resp.OverdueBooksCount)
	require.Equal(t, int64(35000), resp.TotalUnpaidFines)
	require.Len(t, resp.PendingBorrows, 1)

	require.Equal(t, []int{10, 10, 10}, borrows.listLimits)
	require.Equal(t, []time.Duration{72 * time.Hour}, borrows.windows)
	require.Equal(t, 1, cache.sets)
}

func TestDashboardServiceServesFromCache(t *testing.T) {
	borrows := &dashboardBorrowReaderMock{pendingCount: 4}
	cache := newDashboardCacheMock()
	svc := NewDashboardService(borrows, cache, nil, zap.NewNop(), DashboardConfig{
		DueSoonWindowDays: 3,
		ListLimit:         10,
		CacheTTL:          time.Minute,
	})

	first, err := svc.LibrarianDashboard(context.Background())
	require.NoError(t, err)

	// A second read must come from the cache, not hit the repositories again.
	borrows.pendingCount = 99
	second, err := svc.LibrarianDashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.PendingApprovalsCount, second.PendingApprovalsCount)
	require.Equal(t, 1, cache.sets)
}
