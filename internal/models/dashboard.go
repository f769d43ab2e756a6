package models

// TopCustomer is one row of the dashboard top-customers ranking.
type TopCustomer struct {
	CustomerID int    `json:"customer_id"`
	Name       string `json:"name"`
	TotalKobo  int64  `json:"total_kobo"`
}

// DashboardMetrics aggregates the numbers shown on the dashboard for one
// user over one period. Computed in SQL, cached in Redis.
type DashboardMetrics struct {
	Period           string        `json:"period"`
	RevenueKobo      int64         `json:"revenue_kobo"`
	ExpensesKobo     int64         `json:"expenses_kobo"`
	OutstandingKobo  int64         `json:"outstanding_kobo"`
	InvoiceCount     int           `json:"invoice_count"`
	OverdueInvoices  int           `json:"overdue_invoices"`
	SaleCount        int           `json:"sale_count"`
	LowStockProducts int           `json:"low_stock_products"`
	TopCustomers     []TopCustomer `json:"top_customers"`
}

// SearchResults groups matches of a global search query by entity.
type SearchResults struct {
	Customers []*Customer `json:"customers"`
	Products  []*Product  `json:"products"`
	Invoices  []*Invoice  `json:"invoices"`
}
