package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

func scanInvoice(row interface{ Scan(...any) error }) (*models.Invoice, error) {
	var inv models.Invoice
	var items []byte
	var paidAt sql.NullTime
	if err := row.Scan(&inv.ID, &inv.UserUID, &inv.CustomerID, &inv.Number, &inv.Status,
		&items, &inv.TotalKobo, &inv.DueDate, &paidAt, &inv.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		inv.PaidAt = &paidAt.Time
	}
	return &inv, nil
}

// CreateInvoice inserts an invoice with its items as jsonb.
func (s *Storage) CreateInvoice(ctx context.Context, inv models.Invoice) (int, error) {
	const op = "storage.CreateInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	items, err := json.Marshal(inv.Items)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO invoices (user_uid, customer_id, number, status, items, total_kobo, due_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	var newID int
	err = s.DB.QueryRowContext(ctx, query,
		inv.UserUID, inv.CustomerID, inv.Number, inv.Status, items, inv.TotalKobo, inv.DueDate).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadInvoice returns one invoice owned by the user.
func (s *Storage) ReadInvoice(ctx context.Context, userUID string, id int) (*models.Invoice, error) {
	const op = "storage.ReadInvoice"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, customer_id, number, status, items, total_kobo,
	              due_date, paid_at, created_at
	          FROM invoices WHERE id = $1 AND user_uid = $2`
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, query, id, userUID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return inv, nil
}

// ListInvoices returns the user's invoices with pagination, newest first.
func (s *Storage) ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	const op = "storage.ListInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, customer_id, number, status, items, total_kobo,
	              due_date, paid_at, created_at
	          FROM invoices
	          WHERE user_uid = $1
	          ORDER BY id DESC
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateInvoiceStatus sets the status (and optionally paid_at) of an invoice.
func (s *Storage) UpdateInvoiceStatus(ctx context.Context, userUID string, id int, status string, paidAt *time.Time) (int, error) {
	const op = "storage.UpdateInvoiceStatus"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET status = $1, paid_at = $2 WHERE id = $3 AND user_uid = $4`
	result, err := s.DB.ExecContext(ctx, query, status, paidAt, id, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}

// RemoveInvoice deletes the user's invoice and returns affected rows.
func (s *Storage) RemoveInvoice(ctx context.Context, userUID string, id int) (int, error) {
	const op = "storage.RemoveInvoice"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM invoices WHERE id = $1 AND user_uid = $2`
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

// MarkOverdueInvoices flips sent invoices past their due date to overdue,
// across all users, and returns the invoices that changed so the caller can
// notify their owners.
func (s *Storage) MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error) {
	const op = "storage.MarkOverdueInvoices"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE invoices SET status = 'overdue'
	          WHERE status = 'sent' AND due_date < $1
	          RETURNING id, user_uid, customer_id, number, status, items, total_kobo,
	              due_date, paid_at, created_at`
	rows, err := s.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
