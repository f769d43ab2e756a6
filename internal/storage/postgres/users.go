package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

const userColumns = `uid, email, username, password_hash, role, business_name, phone,
	subscription_plan, subscription_status, subscription_start_date,
	subscription_end_date, trial_end_date, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	var start, end, trial sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.BusinessName, &u.Phone, &u.SubscriptionPlan, &u.SubscriptionStatus,
		&start, &end, &trial, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	if start.Valid {
		u.SubscriptionStartDate = &start.Time
	}
	if end.Valid {
		u.SubscriptionEndDate = &end.Time
	}
	if trial.Valid {
		u.TrialEndDate = &trial.Time
	}
	return u, nil
}

// RegisterUser inserts a new user and returns the generated UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var newUID string
	query := `INSERT INTO users (email, username, password_hash, role, business_name, phone,
		          subscription_plan, subscription_status, trial_end_date)
		      VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		      RETURNING uid`
	if err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.BusinessName,
		user.Phone, user.SubscriptionPlan, user.SubscriptionStatus, user.TrialEndDate).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// GetUser returns a user by UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE uid = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByUsername returns a user by username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateSubscription sets the plan fields of a user in one statement.
// Nil start/end clear the corresponding columns.
func (s *Storage) UpdateSubscription(ctx context.Context, userUID, plan, status string, start, end *time.Time) error {
	const op = "storage.UpdateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
	          SET subscription_plan = $1, subscription_status = $2,
	              subscription_start_date = $3, subscription_end_date = $4
	          WHERE uid = $5`
	result, err := s.DB.ExecContext(ctx, query, plan, status, start, end, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

// FindExpiredSubscriptions returns users whose paid period or trial has
// passed but whose status still grants access.
func (s *Storage) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error) {
	const op = "storage.FindExpiredSubscriptions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + userColumns + `
	          FROM users
	          WHERE subscription_status IN ('trial', 'active')
	            AND COALESCE(subscription_end_date, trial_end_date) < $1`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindSubscriptionsEndingWithin returns still-active users whose end date
// falls inside the next N days. Already-expired users are excluded so the
// warning pass and the downgrade pass never overlap.
func (s *Storage) FindSubscriptionsEndingWithin(ctx context.Context, now time.Time, daysAhead int) ([]*models.User, error) {
	const op = "storage.FindSubscriptionsEndingWithin"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	horizon := now.AddDate(0, 0, daysAhead)
	query := `SELECT ` + userColumns + `
	          FROM users
	          WHERE subscription_status IN ('trial', 'active')
	            AND COALESCE(subscription_end_date, trial_end_date) >= $1
	            AND COALESCE(subscription_end_date, trial_end_date) <= $2`
	rows, err := s.DB.QueryContext(ctx, query, now, horizon)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
