// Package usage meters feature actions against per-plan cycle limits and
// keeps the tracked counters honest: ValidateConsistency compares every
// counter against the actual row count behind it, and Reconcile overwrites
// drifted counters with the authoritative value.
package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

// ErrLimitReached is returned by Allow when the cycle limit is exhausted.
var ErrLimitReached = errors.New("feature limit reached for current billing cycle")

// features in validation order.
var features = []string{models.FeatureExpenses, models.FeatureInvoices, models.FeatureSales}

type UsageRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	IncrementUsage(ctx context.Context, userUID, feature string, cycleStart time.Time, limit int) (int, error)
	GetUsage(ctx context.Context, userUID string, cycleStart time.Time) ([]*models.FeatureUsage, error)
	SetUsageCount(ctx context.Context, userUID, feature string, cycleStart time.Time, count, limit int) error
	CountFeatureRows(ctx context.Context, userUID, feature string, cycleStart time.Time) (int, error)
}

type UsageService struct {
	repo UsageRepository
	log  *slog.Logger
}

func New(repo UsageRepository, log *slog.Logger) *UsageService {
	return &UsageService{repo: repo, log: log}
}

// Allow checks the tracked counter against the user's plan limit and, when
// under it, increments the counter. Returns ErrLimitReached at the limit.
func (s *UsageService) Allow(ctx context.Context, userUID, feature string) (int, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return 0, fmt.Errorf("failed to load user: %w", err)
	}

	limit := models.FeatureLimit(user.SubscriptionPlan, feature)
	cycleStart := days.CycleStart(time.Now())

	current := 0
	counters, err := s.repo.GetUsage(ctx, userUID, cycleStart)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("failed to load usage: %w", err)
	}
	for _, c := range counters {
		if c.FeatureType == feature {
			current = c.Count
		}
	}
	if current >= limit {
		return current, ErrLimitReached
	}

	count, err := s.repo.IncrementUsage(ctx, userUID, feature, cycleStart, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}
	return count, nil
}

// Current returns the user's counters for the running cycle, padded with
// zero rows for features that have not been used yet.
func (s *UsageService) Current(ctx context.Context, userUID string) ([]*models.FeatureUsage, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	cycleStart := days.CycleStart(time.Now())
	counters, err := s.repo.GetUsage(ctx, userUID, cycleStart)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}

	byFeature := make(map[string]*models.FeatureUsage, len(counters))
	for _, c := range counters {
		byFeature[c.FeatureType] = c
	}

	var result []*models.FeatureUsage
	for _, feature := range features {
		if c, ok := byFeature[feature]; ok {
			c.Limit = models.FeatureLimit(user.SubscriptionPlan, feature)
			result = append(result, c)
			continue
		}
		result = append(result, &models.FeatureUsage{
			UserUID:     userUID,
			FeatureType: feature,
			CycleStart:  cycleStart,
			Count:       0,
			Limit:       models.FeatureLimit(user.SubscriptionPlan, feature),
		})
	}
	return result, nil
}

// ValidateConsistency compares every tracked counter against the count of
// domain rows created in the cycle and reports each drift. A feature with no
// counter row and no domain rows is consistent.
func (s *UsageService) ValidateConsistency(ctx context.Context, userUID string) (*models.ConsistencyReport, error) {
	cycleStart := days.CycleStart(time.Now())

	counters, err := s.repo.GetUsage(ctx, userUID, cycleStart)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load usage: %w", err)
	}
	tracked := make(map[string]int, len(counters))
	for _, c := range counters {
		tracked[c.FeatureType] = c.Count
	}

	report := &models.ConsistencyReport{
		UserUID:      userUID,
		IsConsistent: true,
		CheckedAt:    time.Now().UTC(),
	}
	for _, feature := range features {
		actual, err := s.repo.CountFeatureRows(ctx, userUID, feature, cycleStart)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s rows: %w", feature, err)
		}
		if tracked[feature] == actual {
			continue
		}
		report.IsConsistent = false
		report.Discrepancies = append(report.Discrepancies, models.Discrepancy{
			FeatureType:  feature,
			TrackedCount: tracked[feature],
			ActualCount:  actual,
			Difference:   tracked[feature] - actual,
		})
	}

	if !report.IsConsistent {
		s.log.Warn("usage counters drifted",
			slog.String("user_uid", userUID),
			slog.Int("discrepancies", len(report.Discrepancies)))
	}
	return report, nil
}

// Reconcile overwrites every drifted counter with the actual row count.
// Running it twice in a row is a no-op the second time.
func (s *UsageService) Reconcile(ctx context.Context, userUID string) (*models.ConsistencyReport, error) {
	report, err := s.ValidateConsistency(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if report.IsConsistent {
		return report, nil
	}

	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	cycleStart := days.CycleStart(time.Now())

	for _, d := range report.Discrepancies {
		limit := models.FeatureLimit(user.SubscriptionPlan, d.FeatureType)
		if err := s.repo.SetUsageCount(ctx, userUID, d.FeatureType, cycleStart, d.ActualCount, limit); err != nil {
			return nil, fmt.Errorf("failed to reconcile %s counter: %w", d.FeatureType, err)
		}
		s.log.Info("reconciled usage counter",
			slog.String("user_uid", userUID),
			slog.String("feature", d.FeatureType),
			slog.Int("tracked", d.TrackedCount),
			slog.Int("actual", d.ActualCount))
	}
	return report, nil
}
