package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

// CreateCustomer inserts a customer and returns its ID.
func (s *Storage) CreateCustomer(ctx context.Context, c models.Customer) (int, error) {
	const op = "storage.CreateCustomer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO customers (user_uid, name, email, phone, address, notes)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		c.UserUID, c.Name, c.Email, c.Phone, c.Address, c.Notes).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadCustomer returns one customer owned by the user.
func (s *Storage) ReadCustomer(ctx context.Context, userUID string, id int) (*models.Customer, error) {
	const op = "storage.ReadCustomer"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, email, phone, address, notes, created_at
	          FROM customers WHERE id = $1 AND user_uid = $2`
	var c models.Customer
	err := s.DB.QueryRowContext(ctx, query, id, userUID).Scan(
		&c.ID, &c.UserUID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// ListCustomers returns the user's customers with pagination.
func (s *Storage) ListCustomers(ctx context.Context, userUID string, limit, offset int) ([]*models.Customer, error) {
	const op = "storage.ListCustomers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, email, phone, address, notes, created_at
	          FROM customers
	          WHERE user_uid = $1
	          ORDER BY id
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.UserUID, &c.Name, &c.Email, &c.Phone,
			&c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateCustomer updates the user's customer and returns affected rows.
func (s *Storage) UpdateCustomer(ctx context.Context, c models.Customer) (int, error) {
	const op = "storage.UpdateCustomer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE customers
	          SET name = $1, email = $2, phone = $3, address = $4, notes = $5
	          WHERE id = $6 AND user_uid = $7`
	result, err := s.DB.ExecContext(ctx, query,
		c.Name, c.Email, c.Phone, c.Address, c.Notes, c.ID, c.UserUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}

// RemoveCustomer deletes the user's customer and returns affected rows.
func (s *Storage) RemoveCustomer(ctx context.Context, userUID string, id int) (int, error) {
	const op = "storage.RemoveCustomer"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM customers WHERE id = $1 AND user_uid = $2`
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
