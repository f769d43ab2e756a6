package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// IncrementUsage bumps the counter for one (user, feature, cycle) triple,
// creating the row on first use, and returns the new count. The upsert keeps
// the operation atomic under concurrent requests.
func (s *Storage) IncrementUsage(ctx context.Context, userUID, feature string, cycleStart time.Time, limit int) (int, error) {
	const op = "storage.IncrementUsage"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO feature_usage (user_uid, feature_type, cycle_start, count, usage_limit)
	          VALUES ($1, $2, $3, 1, $4)
	          ON CONFLICT (user_uid, feature_type, cycle_start)
	          DO UPDATE SET count = feature_usage.count + 1, usage_limit = EXCLUDED.usage_limit
	          RETURNING count`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, feature, cycleStart, limit).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// GetUsage returns all tracked counters of a user for one cycle.
func (s *Storage) GetUsage(ctx context.Context, userUID string, cycleStart time.Time) ([]*models.FeatureUsage, error) {
	const op = "storage.GetUsage"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, feature_type, cycle_start, count, usage_limit
	          FROM feature_usage
	          WHERE user_uid = $1 AND cycle_start = $2
	          ORDER BY feature_type`
	rows, err := s.DB.QueryContext(ctx, query, userUID, cycleStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.FeatureUsage
	for rows.Next() {
		var u models.FeatureUsage
		if err := rows.Scan(&u.UserUID, &u.FeatureType, &u.CycleStart, &u.Count, &u.Limit); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SetUsageCount overwrites a tracked counter with an explicit value.
// Used by the reconciliation routine; applying the same value twice is a
// no-op, which keeps reconciliation idempotent.
func (s *Storage) SetUsageCount(ctx context.Context, userUID, feature string, cycleStart time.Time, count, limit int) error {
	const op = "storage.SetUsageCount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO feature_usage (user_uid, feature_type, cycle_start, count, usage_limit)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_uid, feature_type, cycle_start)
	          DO UPDATE SET count = EXCLUDED.count, usage_limit = EXCLUDED.usage_limit`
	if _, err := s.DB.ExecContext(ctx, query, userUID, feature, cycleStart, count, limit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CountFeatureRows counts the authoritative domain rows a feature counter is
// supposed to track, attributed to the user within the given cycle.
func (s *Storage) CountFeatureRows(ctx context.Context, userUID, feature string, cycleStart time.Time) (int, error) {
	const op = "storage.CountFeatureRows"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	cycleEnd := cycleStart.AddDate(0, 1, 0)

	var query string
	switch feature {
	case models.FeatureInvoices:
		query = `SELECT COUNT(*) FROM invoices
		         WHERE user_uid = $1 AND created_at >= $2 AND created_at < $3`
	case models.FeatureSales:
		query = `SELECT COUNT(*) FROM sales
		         WHERE user_uid = $1 AND sold_at >= $2 AND sold_at < $3`
	case models.FeatureExpenses:
		query = `SELECT COUNT(*) FROM expenses
		         WHERE user_uid = $1 AND created_at >= $2 AND created_at < $3`
	default:
		return 0, fmt.Errorf("%s: unknown feature type %q", op, feature)
	}

	var count int
	if err := s.DB.QueryRowContext(ctx, query, userUID, cycleStart, cycleEnd).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}
