package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// CreateSale inserts a sale record and returns its ID.
func (s *Storage) CreateSale(ctx context.Context, sale models.Sale) (int, error) {
	const op = "storage.CreateSale"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO sales (user_uid, product_id, customer_id, quantity,
	              unit_price_kobo, total_kobo, sold_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		sale.UserUID, sale.ProductID, sale.CustomerID, sale.Quantity,
		sale.UnitPriceKobo, sale.TotalKobo, sale.SoldAt).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListSales returns the user's sales with pagination, newest first.
func (s *Storage) ListSales(ctx context.Context, userUID string, limit, offset int) ([]*models.Sale, error) {
	const op = "storage.ListSales"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, product_id, customer_id, quantity,
	              unit_price_kobo, total_kobo, sold_at
	          FROM sales
	          WHERE user_uid = $1
	          ORDER BY id DESC
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Sale
	for rows.Next() {
		var sale models.Sale
		var customerID sql.NullInt64
		if err := rows.Scan(&sale.ID, &sale.UserUID, &sale.ProductID, &customerID,
			&sale.Quantity, &sale.UnitPriceKobo, &sale.TotalKobo, &sale.SoldAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if customerID.Valid {
			id := int(customerID.Int64)
			sale.CustomerID = &id
		}
		result = append(result, &sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
