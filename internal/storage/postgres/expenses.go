package postgres

import (
	"context"
	"fmt"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// CreateExpense inserts an expense and returns its ID.
func (s *Storage) CreateExpense(ctx context.Context, e models.Expense) (int, error) {
	const op = "storage.CreateExpense"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO expenses (user_uid, category, description, amount_kobo, spent_at)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		e.UserUID, e.Category, e.Description, e.AmountKobo, e.SpentAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListExpenses returns the user's expenses with pagination, newest first.
func (s *Storage) ListExpenses(ctx context.Context, userUID string, limit, offset int) ([]*models.Expense, error) {
	const op = "storage.ListExpenses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, category, description, amount_kobo, spent_at, created_at
	          FROM expenses
	          WHERE user_uid = $1
	          ORDER BY id DESC
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Expense
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserUID, &e.Category, &e.Description,
			&e.AmountKobo, &e.SpentAt, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RemoveExpense deletes the user's expense and returns affected rows.
func (s *Storage) RemoveExpense(ctx context.Context, userUID string, id int) (int, error) {
	const op = "storage.RemoveExpense"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM expenses WHERE id = $1 AND user_uid = $2`
	result, err := s.DB.ExecContext(ctx, query, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}
