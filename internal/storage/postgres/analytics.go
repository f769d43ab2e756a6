package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// DashboardMetrics aggregates the dashboard numbers for one user and period.
func (s *Storage) DashboardMetrics(ctx context.Context, userUID string, from, to time.Time) (*models.DashboardMetrics, error) {
	const op = "storage.DashboardMetrics"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	m := &models.DashboardMetrics{}

	query := `SELECT
	        COALESCE((SELECT SUM(total_kobo) FROM sales
	            WHERE user_uid = $1 AND sold_at >= $2 AND sold_at < $3), 0) +
	        COALESCE((SELECT SUM(total_kobo) FROM invoices
	            WHERE user_uid = $1 AND status = 'paid' AND paid_at >= $2 AND paid_at < $3), 0),
	        COALESCE((SELECT SUM(amount_kobo) FROM expenses
	            WHERE user_uid = $1 AND spent_at >= $2 AND spent_at < $3), 0),
	        COALESCE((SELECT SUM(total_kobo) FROM invoices
	            WHERE user_uid = $1 AND status IN ('sent', 'overdue')), 0),
	        (SELECT COUNT(*) FROM invoices
	            WHERE user_uid = $1 AND created_at >= $2 AND created_at < $3),
	        (SELECT COUNT(*) FROM invoices
	            WHERE user_uid = $1 AND status = 'overdue'),
	        (SELECT COUNT(*) FROM sales
	            WHERE user_uid = $1 AND sold_at >= $2 AND sold_at < $3),
	        (SELECT COUNT(*) FROM products
	            WHERE user_uid = $1 AND stock_quantity <= low_stock_threshold)`
	err := s.DB.QueryRowContext(ctx, query, userUID, from, to).Scan(
		&m.RevenueKobo, &m.ExpensesKobo, &m.OutstandingKobo,
		&m.InvoiceCount, &m.OverdueInvoices, &m.SaleCount, &m.LowStockProducts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	topQuery := `SELECT c.id, c.name, SUM(i.total_kobo) AS total
	          FROM invoices i
	          JOIN customers c ON c.id = i.customer_id
	          WHERE i.user_uid = $1 AND i.status = 'paid'
	            AND i.paid_at >= $2 AND i.paid_at < $3
	          GROUP BY c.id, c.name
	          ORDER BY total DESC
	          LIMIT 5`
	rows, err := s.DB.QueryContext(ctx, topQuery, userUID, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tc models.TopCustomer
		if err := rows.Scan(&tc.CustomerID, &tc.Name, &tc.TotalKobo); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		m.TopCustomers = append(m.TopCustomers, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

// Search finds customers, products and invoices matching a query string,
// scoped to one user. Invoices match on their number.
func (s *Storage) Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error) {
	const op = "storage.Search"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	pattern := "%" + query + "%"
	results := &models.SearchResults{}

	custRows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, name, email, phone, address, notes, created_at
		 FROM customers
		 WHERE user_uid = $1 AND (name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2)
		 ORDER BY id LIMIT $3`, userUID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = custRows.Close() }()
	for custRows.Next() {
		var c models.Customer
		if err := custRows.Scan(&c.ID, &c.UserUID, &c.Name, &c.Email, &c.Phone,
			&c.Address, &c.Notes, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		results.Customers = append(results.Customers, &c)
	}
	if err := custRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prodRows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, name, sku, price_kobo, cost_kobo, stock_quantity,
		     low_stock_threshold, created_at
		 FROM products
		 WHERE user_uid = $1 AND (name ILIKE $2 OR sku ILIKE $2)
		 ORDER BY id LIMIT $3`, userUID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = prodRows.Close() }()
	for prodRows.Next() {
		var p models.Product
		if err := prodRows.Scan(&p.ID, &p.UserUID, &p.Name, &p.SKU, &p.PriceKobo,
			&p.CostKobo, &p.StockQuantity, &p.LowStockThreshold, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		results.Products = append(results.Products, &p)
	}
	if err := prodRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	invRows, err := s.DB.QueryContext(ctx,
		`SELECT id, user_uid, customer_id, number, status, items, total_kobo,
		     due_date, paid_at, created_at
		 FROM invoices
		 WHERE user_uid = $1 AND number ILIKE $2
		 ORDER BY id DESC LIMIT $3`, userUID, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = invRows.Close() }()
	for invRows.Next() {
		inv, err := scanInvoice(invRows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		results.Invoices = append(results.Invoices, inv)
	}
	if err := invRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return results, nil
}
