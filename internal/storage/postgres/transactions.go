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

// CreateTransaction inserts a pending subscription transaction.
func (s *Storage) CreateTransaction(ctx context.Context, tx models.SubscriptionTransaction) (int, error) {
	const op = "storage.CreateTransaction"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscription_transactions (user_uid, reference, plan, amount_kobo, status)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		tx.UserUID, tx.Reference, tx.Plan, tx.AmountKobo, tx.Status).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// GetTransactionByReference returns the user's transaction with the given
// gateway reference.
func (s *Storage) GetTransactionByReference(ctx context.Context, userUID, reference string) (*models.SubscriptionTransaction, error) {
	const op = "storage.GetTransactionByReference"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, reference, plan, amount_kobo, status, paid_at, created_at
	          FROM subscription_transactions
	          WHERE reference = $1 AND user_uid = $2`
	var tx models.SubscriptionTransaction
	var paidAt sql.NullTime
	err := s.DB.QueryRowContext(ctx, query, reference, userUID).Scan(
		&tx.ID, &tx.UserUID, &tx.Reference, &tx.Plan, &tx.AmountKobo, &tx.Status,
		&paidAt, &tx.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if paidAt.Valid {
		tx.PaidAt = &paidAt.Time
	}
	return &tx, nil
}

// GetTransactionOwner returns the UID of the user who initiated the
// transaction with the given reference.
func (s *Storage) GetTransactionOwner(ctx context.Context, reference string) (string, error) {
	const op = "storage.GetTransactionOwner"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var userUID string
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_uid FROM subscription_transactions WHERE reference = $1`,
		reference).Scan(&userUID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return userUID, nil
}

// FinalizeTransaction moves a pending transaction to its terminal status.
// Already-final rows are left untouched, so verification is replay-safe.
func (s *Storage) FinalizeTransaction(ctx context.Context, reference, status string, paidAt time.Time) error {
	const op = "storage.FinalizeTransaction"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscription_transactions
	          SET status = $1, paid_at = $2
	          WHERE reference = $3 AND status = 'pending'`
	if _, err := s.DB.ExecContext(ctx, query, status, paidAt, reference); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListTransactions returns the user's payment history, newest first.
func (s *Storage) ListTransactions(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionTransaction, error) {
	const op = "storage.ListTransactions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, reference, plan, amount_kobo, status, paid_at, created_at
	          FROM subscription_transactions
	          WHERE user_uid = $1
	          ORDER BY id DESC
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.SubscriptionTransaction
	for rows.Next() {
		var tx models.SubscriptionTransaction
		var paidAt sql.NullTime
		if err := rows.Scan(&tx.ID, &tx.UserUID, &tx.Reference, &tx.Plan, &tx.AmountKobo,
			&tx.Status, &paidAt, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if paidAt.Valid {
			tx.PaidAt = &paidAt.Time
		}
		result = append(result, &tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
