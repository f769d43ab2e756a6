package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

// CreateProduct inserts a product and returns its ID.
func (s *Storage) CreateProduct(ctx context.Context, p models.Product) (int, error) {
	const op = "storage.CreateProduct"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO products (user_uid, name, sku, price_kobo, cost_kobo,
	              stock_quantity, low_stock_threshold)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.UserUID, p.Name, p.SKU, p.PriceKobo, p.CostKobo,
		p.StockQuantity, p.LowStockThreshold).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadProduct returns one product owned by the user.
func (s *Storage) ReadProduct(ctx context.Context, userUID string, id int) (*models.Product, error) {
	const op = "storage.ReadProduct"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, sku, price_kobo, cost_kobo, stock_quantity,
	              low_stock_threshold, created_at
	          FROM products WHERE id = $1 AND user_uid = $2`
	var p models.Product
	err := s.DB.QueryRowContext(ctx, query, id, userUID).Scan(
		&p.ID, &p.UserUID, &p.Name, &p.SKU, &p.PriceKobo, &p.CostKobo,
		&p.StockQuantity, &p.LowStockThreshold, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// ListProducts returns the user's products with pagination.
func (s *Storage) ListProducts(ctx context.Context, userUID string, limit, offset int) ([]*models.Product, error) {
	const op = "storage.ListProducts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, name, sku, price_kobo, cost_kobo, stock_quantity,
	              low_stock_threshold, created_at
	          FROM products
	          WHERE user_uid = $1
	          ORDER BY id
	          LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	var result []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.UserUID, &p.Name, &p.SKU, &p.PriceKobo,
			&p.CostKobo, &p.StockQuantity, &p.LowStockThreshold, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateProduct updates the user's product and returns affected rows.
func (s *Storage) UpdateProduct(ctx context.Context, p models.Product) (int, error) {
	const op = "storage.UpdateProduct"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE products
	          SET name = $1, sku = $2, price_kobo = $3, cost_kobo = $4,
	              stock_quantity = $5, low_stock_threshold = $6
	          WHERE id = $7 AND user_uid = $8`
	result, err := s.DB.ExecContext(ctx, query,
		p.Name, p.SKU, p.PriceKobo, p.CostKobo, p.StockQuantity,
		p.LowStockThreshold, p.ID, p.UserUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(affected), nil
}

// RemoveProduct deletes the user's product and returns affected rows.
func (s *Storage) RemoveProduct(ctx context.Context, userUID string, id int) (int, error) {
	const op = "storage.RemoveProduct"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM products WHERE id = $1 AND user_uid = $2`
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

// AdjustStock applies a stock delta and returns the updated product.
// The update is atomic so concurrent sales do not lose decrements.
func (s *Storage) AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error) {
	const op = "storage.AdjustStock"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE products
	          SET stock_quantity = stock_quantity + $1
	          WHERE id = $2 AND user_uid = $3 AND stock_quantity + $1 >= 0
	          RETURNING id, user_uid, name, sku, price_kobo, cost_kobo,
	              stock_quantity, low_stock_threshold, created_at`
	var p models.Product
	err := s.DB.QueryRowContext(ctx, query, delta, id, userUID).Scan(
		&p.ID, &p.UserUID, &p.Name, &p.SKU, &p.PriceKobo, &p.CostKobo,
		&p.StockQuantity, &p.LowStockThreshold, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}
