package analytics

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) DashboardMetrics(ctx context.Context, userUID string, from, to time.Time) (*models.DashboardMetrics, error) {
	args := m.Called(ctx, userUID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardMetrics), args.Error(1)
}

func (m *RepoMock) Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error) {
	args := m.Called(ctx, userUID, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchResults), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if args.Bool(0) {
		*(result.(*models.DashboardMetrics)) = models.DashboardMetrics{
			Period:      PeriodMonth,
			RevenueKobo: 999,
		}
	}
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestAnalytics_Dashboard_CacheMiss(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	service := New(repo, c, NewNoopLogger())

	c.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	repo.On("DashboardMetrics", mock.Anything, "uid-1", mock.Anything, mock.Anything).
		Return(&models.DashboardMetrics{RevenueKobo: 125000}, nil)
	c.On("Set", mock.Anything, mock.Anything, DashboardTTL).Return(nil)

	metrics, err := service.Dashboard(context.Background(), "uid-1", PeriodMonth)

	require.NoError(t, err)
	assert.Equal(t, int64(125000), metrics.RevenueKobo)
	assert.Equal(t, PeriodMonth, metrics.Period)
	repo.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestAnalytics_Dashboard_CacheHit(t *testing.T) {
	repo := new(RepoMock)
	c := new(CacheMock)
	service := New(repo, c, NewNoopLogger())

	c.On("Get", mock.Anything, mock.Anything).Return(true, nil)

	metrics, err := service.Dashboard(context.Background(), "uid-1", PeriodMonth)

	require.NoError(t, err)
	assert.Equal(t, int64(999), metrics.RevenueKobo)
	repo.AssertNotCalled(t, "DashboardMetrics", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalytics_Dashboard_UnknownPeriod(t *testing.T) {
	service := New(new(RepoMock), new(CacheMock), NewNoopLogger())

	_, err := service.Dashboard(context.Background(), "uid-1", "quarter")

	assert.Error(t, err)
}

func TestAnalytics_PeriodRange(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		period   string
		wantFrom time.Time
	}{
		{PeriodToday, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2025, 3, 8, 14, 30, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2025, 2, 15, 14, 30, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			from, to, err := PeriodRange(tt.period, now)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, now, to)
		})
	}
}

func TestAnalytics_Search_ClampsLimit(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(CacheMock), NewNoopLogger())

	repo.On("Search", mock.Anything, "uid-1", "ada", 10).
		Return(&models.SearchResults{}, nil)

	_, err := service.Search(context.Background(), "uid-1", "ada", 500)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
