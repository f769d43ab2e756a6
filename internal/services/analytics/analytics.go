// Package analytics aggregates the dashboard numbers and serves global
// search. Dashboard queries are expensive, so results are served
// cache-aside from Redis with a short TTL.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/cache"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// DashboardTTL caps staleness of cached dashboard metrics.
const DashboardTTL = 5 * time.Minute

// Periods the dashboard can be asked for.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

type AnalyticsRepository interface {
	DashboardMetrics(ctx context.Context, userUID string, from, to time.Time) (*models.DashboardMetrics, error)
	Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error)
}

type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

type AnalyticsService struct {
	repo  AnalyticsRepository
	cache Cache
	log   *slog.Logger
}

func New(repo AnalyticsRepository, c Cache, log *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		repo:  repo,
		cache: c,
		log:   log,
	}
}

// PeriodRange resolves a named period to a half-open UTC interval
// [from, to) ending now.
func PeriodRange(period string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch period {
	case PeriodToday:
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return from, now, nil
	case PeriodWeek:
		return now.AddDate(0, 0, -7), now, nil
	case PeriodMonth:
		return now.AddDate(0, -1, 0), now, nil
	case PeriodYear:
		return now.AddDate(-1, 0, 0), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", period)
	}
}

// Dashboard returns the user's metrics for a named period, cached per
// (user, period, day).
func (s *AnalyticsService) Dashboard(ctx context.Context, userUID, period string) (*models.DashboardMetrics, error) {
	now := time.Now().UTC()
	from, to, err := PeriodRange(period, now)
	if err != nil {
		return nil, err
	}

	cacheKey := cache.Key("dashboard", userUID, period, now.Format("2006-01-02"))
	var cached models.DashboardMetrics
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("dashboard cache read failed", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	metrics, err := s.repo.DashboardMetrics(ctx, userUID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard metrics: %w", err)
	}
	metrics.Period = period

	if err := s.cache.Set(cacheKey, metrics, DashboardTTL); err != nil {
		s.log.Warn("dashboard cache write failed", slog.String("key", cacheKey), sl.Err(err))
	}
	return metrics, nil
}

// Search runs a global entity search. Results are not cached; queries vary
// too much for a useful hit rate.
func (s *AnalyticsService) Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	results, err := s.repo.Search(ctx, userUID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return results, nil
}
