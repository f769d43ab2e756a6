// Package memory implements storage.Store on in-process maps. It exists for
// local development and tests when no database is configured; nothing it
// holds survives a restart. The health endpoint reports this mode so callers
// know they are talking to a non-durable backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

type usageKey struct {
	UserUID string
	Feature string
	Cycle   time.Time
}

// Storage keeps every table in a map guarded by one mutex. Operations are
// short and the backend is single-process, so finer locking buys nothing.
type Storage struct {
	mu sync.Mutex

	users         map[string]*models.User
	customers     map[int]*models.Customer
	products      map[int]*models.Product
	invoices      map[int]*models.Invoice
	sales         map[int]*models.Sale
	expenses      map[int]*models.Expense
	usage         map[usageKey]*models.FeatureUsage
	transactions  map[int]*models.SubscriptionTransaction
	notifications map[int]*models.Notification

	nextID int
}

// New creates an empty in-memory store.
func New() *Storage {
	return &Storage{
		users:         make(map[string]*models.User),
		customers:     make(map[int]*models.Customer),
		products:      make(map[int]*models.Product),
		invoices:      make(map[int]*models.Invoice),
		sales:         make(map[int]*models.Sale),
		expenses:      make(map[int]*models.Expense),
		usage:         make(map[usageKey]*models.FeatureUsage),
		transactions:  make(map[int]*models.SubscriptionTransaction),
		notifications: make(map[int]*models.Notification),
	}
}

// Mode identifies the backend for the health endpoint.
func (s *Storage) Mode() string { return storage.ModeMemory }

// Close is a no-op for the memory backend.
func (s *Storage) Close() error { return nil }

func (s *Storage) nextSeq() int {
	s.nextID++
	return s.nextID
}

// RegisterUser stores a new user under a generated UID.
func (s *Storage) RegisterUser(_ context.Context, user models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return "", fmt.Errorf("storage.RegisterUser: username or email already taken")
		}
	}
	user.UID = uuid.New().String()
	user.CreatedAt = time.Now().UTC()
	cp := user
	s.users[user.UID] = &cp
	return user.UID, nil
}

// GetUser returns a user by UID.
func (s *Storage) GetUser(_ context.Context, userUID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userUID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername returns a user by username.
func (s *Storage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// UpdateSubscription sets the plan fields of a user.
func (s *Storage) UpdateSubscription(_ context.Context, userUID, plan, status string, start, end *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userUID]
	if !ok {
		return storage.ErrNotFound
	}
	u.SubscriptionPlan = plan
	u.SubscriptionStatus = status
	u.SubscriptionStartDate = start
	u.SubscriptionEndDate = end
	return nil
}

func effectiveEnd(u *models.User) *time.Time {
	if u.SubscriptionEndDate != nil {
		return u.SubscriptionEndDate
	}
	return u.TrialEndDate
}

// FindExpiredSubscriptions returns users past their end date whose status
// still grants access.
func (s *Storage) FindExpiredSubscriptions(_ context.Context, now time.Time) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.User
	for _, u := range s.users {
		if u.SubscriptionStatus != models.StatusTrial && u.SubscriptionStatus != models.StatusActive {
			continue
		}
		if end := effectiveEnd(u); end != nil && end.Before(now) {
			cp := *u
			result = append(result, &cp)
		}
	}
	return result, nil
}

// FindSubscriptionsEndingWithin returns still-active users ending inside the
// next N days.
func (s *Storage) FindSubscriptionsEndingWithin(_ context.Context, now time.Time, daysAhead int) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon := now.AddDate(0, 0, daysAhead)
	var result []*models.User
	for _, u := range s.users {
		if u.SubscriptionStatus != models.StatusTrial && u.SubscriptionStatus != models.StatusActive {
			continue
		}
		end := effectiveEnd(u)
		if end == nil || end.Before(now) || end.After(horizon) {
			continue
		}
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

// CreateCustomer stores a customer and returns its ID.
func (s *Storage) CreateCustomer(_ context.Context, c models.Customer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextSeq()
	c.CreatedAt = time.Now().UTC()
	s.customers[c.ID] = &c
	return c.ID, nil
}

// ReadCustomer returns one customer owned by the user.
func (s *Storage) ReadCustomer(_ context.Context, userUID string, id int) (*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok || c.UserUID != userUID {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListCustomers returns the user's customers ordered by ID.
func (s *Storage) ListCustomers(_ context.Context, userUID string, limit, offset int) ([]*models.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Customer
	for _, c := range s.customers {
		if c.UserUID == userUID {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, limit, offset), nil
}

// UpdateCustomer updates the user's customer.
func (s *Storage) UpdateCustomer(_ context.Context, c models.Customer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[c.ID]
	if !ok || existing.UserUID != c.UserUID {
		return 0, nil
	}
	c.CreatedAt = existing.CreatedAt
	s.customers[c.ID] = &c
	return 1, nil
}

// RemoveCustomer deletes the user's customer.
func (s *Storage) RemoveCustomer(_ context.Context, userUID string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok || c.UserUID != userUID {
		return 0, nil
	}
	delete(s.customers, id)
	return 1, nil
}

// CreateProduct stores a product and returns its ID.
func (s *Storage) CreateProduct(_ context.Context, p models.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextSeq()
	p.CreatedAt = time.Now().UTC()
	s.products[p.ID] = &p
	return p.ID, nil
}

// ReadProduct returns one product owned by the user.
func (s *Storage) ReadProduct(_ context.Context, userUID string, id int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.UserUID != userUID {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListProducts returns the user's products ordered by ID.
func (s *Storage) ListProducts(_ context.Context, userUID string, limit, offset int) ([]*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Product
	for _, p := range s.products {
		if p.UserUID == userUID {
			cp := *p
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return paginate(all, limit, offset), nil
}

// UpdateProduct updates the user's product.
func (s *Storage) UpdateProduct(_ context.Context, p models.Product) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok || existing.UserUID != p.UserUID {
		return 0, nil
	}
	p.CreatedAt = existing.CreatedAt
	s.products[p.ID] = &p
	return 1, nil
}

// RemoveProduct deletes the user's product.
func (s *Storage) RemoveProduct(_ context.Context, userUID string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.UserUID != userUID {
		return 0, nil
	}
	delete(s.products, id)
	return 1, nil
}

// AdjustStock applies a stock delta and returns the updated product.
func (s *Storage) AdjustStock(_ context.Context, userUID string, id, delta int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.UserUID != userUID {
		return nil, storage.ErrNotFound
	}
	if p.StockQuantity+delta < 0 {
		return nil, storage.ErrNotFound
	}
	p.StockQuantity += delta
	cp := *p
	return &cp, nil
}

// CreateInvoice stores an invoice and returns its ID.
func (s *Storage) CreateInvoice(_ context.Context, inv models.Invoice) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv.ID = s.nextSeq()
	inv.CreatedAt = time.Now().UTC()
	s.invoices[inv.ID] = &inv
	return inv.ID, nil
}

// ReadInvoice returns one invoice owned by the user.
func (s *Storage) ReadInvoice(_ context.Context, userUID string, id int) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.UserUID != userUID {
		return nil, storage.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

// ListInvoices returns the user's invoices, newest first.
func (s *Storage) ListInvoices(_ context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Invoice
	for _, inv := range s.invoices {
		if inv.UserUID == userUID {
			cp := *inv
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, limit, offset), nil
}

// UpdateInvoiceStatus sets the status and paid_at of the user's invoice.
func (s *Storage) UpdateInvoiceStatus(_ context.Context, userUID string, id int, status string, paidAt *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.UserUID != userUID {
		return 0, nil
	}
	inv.Status = status
	inv.PaidAt = paidAt
	return 1, nil
}

// RemoveInvoice deletes the user's invoice.
func (s *Storage) RemoveInvoice(_ context.Context, userUID string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[id]
	if !ok || inv.UserUID != userUID {
		return 0, nil
	}
	delete(s.invoices, id)
	return 1, nil
}

// MarkOverdueInvoices flips sent invoices past due to overdue and returns
// the invoices that changed.
func (s *Storage) MarkOverdueInvoices(_ context.Context, now time.Time) ([]*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []*models.Invoice
	for _, inv := range s.invoices {
		if inv.Status == models.InvoiceSent && inv.DueDate.Before(now) {
			inv.Status = models.InvoiceOverdue
			copied := *inv
			updated = append(updated, &copied)
		}
	}
	return updated, nil
}

// CreateSale stores a sale and returns its ID.
func (s *Storage) CreateSale(_ context.Context, sale models.Sale) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale.ID = s.nextSeq()
	s.sales[sale.ID] = &sale
	return sale.ID, nil
}

// ListSales returns the user's sales, newest first.
func (s *Storage) ListSales(_ context.Context, userUID string, limit, offset int) ([]*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Sale
	for _, sale := range s.sales {
		if sale.UserUID == userUID {
			cp := *sale
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, limit, offset), nil
}

// CreateExpense stores an expense and returns its ID.
func (s *Storage) CreateExpense(_ context.Context, e models.Expense) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextSeq()
	e.CreatedAt = time.Now().UTC()
	s.expenses[e.ID] = &e
	return e.ID, nil
}

// ListExpenses returns the user's expenses, newest first.
func (s *Storage) ListExpenses(_ context.Context, userUID string, limit, offset int) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Expense
	for _, e := range s.expenses {
		if e.UserUID == userUID {
			cp := *e
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, limit, offset), nil
}

// RemoveExpense deletes the user's expense.
func (s *Storage) RemoveExpense(_ context.Context, userUID string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.expenses[id]
	if !ok || e.UserUID != userUID {
		return 0, nil
	}
	delete(s.expenses, id)
	return 1, nil
}

// IncrementUsage bumps the cycle counter and returns the new count.
func (s *Storage) IncrementUsage(_ context.Context, userUID, feature string, cycleStart time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{UserUID: userUID, Feature: feature, Cycle: cycleStart.UTC()}
	u, ok := s.usage[key]
	if !ok {
		u = &models.FeatureUsage{
			UserUID:     userUID,
			FeatureType: feature,
			CycleStart:  cycleStart.UTC(),
		}
		s.usage[key] = u
	}
	u.Count++
	u.Limit = limit
	return u.Count, nil
}

// GetUsage returns the user's counters for one cycle ordered by feature.
func (s *Storage) GetUsage(_ context.Context, userUID string, cycleStart time.Time) ([]*models.FeatureUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*models.FeatureUsage
	for key, u := range s.usage {
		if key.UserUID == userUID && key.Cycle.Equal(cycleStart.UTC()) {
			cp := *u
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FeatureType < result[j].FeatureType })
	return result, nil
}

// SetUsageCount overwrites a tracked counter with an explicit value.
func (s *Storage) SetUsageCount(_ context.Context, userUID, feature string, cycleStart time.Time, count, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usageKey{UserUID: userUID, Feature: feature, Cycle: cycleStart.UTC()}
	s.usage[key] = &models.FeatureUsage{
		UserUID:     userUID,
		FeatureType: feature,
		CycleStart:  cycleStart.UTC(),
		Count:       count,
		Limit:       limit,
	}
	return nil
}

// CountFeatureRows counts the domain rows behind one feature counter.
func (s *Storage) CountFeatureRows(_ context.Context, userUID, feature string, cycleStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycleEnd := cycleStart.AddDate(0, 1, 0)
	inCycle := func(ts time.Time) bool {
		return !ts.Before(cycleStart) && ts.Before(cycleEnd)
	}

	var count int
	switch feature {
	case models.FeatureInvoices:
		for _, inv := range s.invoices {
			if inv.UserUID == userUID && inCycle(inv.CreatedAt) {
				count++
			}
		}
	case models.FeatureSales:
		for _, sale := range s.sales {
			if sale.UserUID == userUID && inCycle(sale.SoldAt) {
				count++
			}
		}
	case models.FeatureExpenses:
		for _, e := range s.expenses {
			if e.UserUID == userUID && inCycle(e.CreatedAt) {
				count++
			}
		}
	default:
		return 0, fmt.Errorf("storage.CountFeatureRows: unknown feature type %q", feature)
	}
	return count, nil
}

// CreateTransaction stores a subscription transaction and returns its ID.
func (s *Storage) CreateTransaction(_ context.Context, tx models.SubscriptionTransaction) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = s.nextSeq()
	tx.CreatedAt = time.Now().UTC()
	s.transactions[tx.ID] = &tx
	return tx.ID, nil
}

// GetTransactionByReference returns the user's transaction by reference.
func (s *Storage) GetTransactionByReference(_ context.Context, userUID, reference string) (*models.SubscriptionTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.UserUID == userUID && tx.Reference == reference {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

// GetTransactionOwner returns the UID behind a transaction reference.
func (s *Storage) GetTransactionOwner(_ context.Context, reference string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.Reference == reference {
			return tx.UserUID, nil
		}
	}
	return "", storage.ErrNotFound
}

// FinalizeTransaction moves a pending transaction to a terminal status.
func (s *Storage) FinalizeTransaction(_ context.Context, reference, status string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.Reference == reference && tx.Status == models.TxPending {
			tx.Status = status
			tx.PaidAt = &paidAt
		}
	}
	return nil
}

// ListTransactions returns the user's transactions, newest first.
func (s *Storage) ListTransactions(_ context.Context, userUID string, limit, offset int) ([]*models.SubscriptionTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.SubscriptionTransaction
	for _, tx := range s.transactions {
		if tx.UserUID == userUID {
			cp := *tx
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, limit, offset), nil
}

// CreateNotification stores an in-app notification and returns its ID.
// Writing the same event ID twice keeps the existing row.
func (s *Storage) CreateNotification(_ context.Context, n models.Notification) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.EventID != "" {
		for _, existing := range s.notifications {
			if existing.EventID == n.EventID {
				return existing.ID, nil
			}
		}
	}

	n.ID = s.nextSeq()
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = &n
	return n.ID, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *Storage) ListNotifications(_ context.Context, userUID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Notification
	for _, n := range s.notifications {
		if n.UserUID != userUID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		cp := *n
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	return paginate(all, limit, offset), nil
}

// MarkNotificationRead flags one notification as read.
func (s *Storage) MarkNotificationRead(_ context.Context, userUID string, id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserUID != userUID {
		return 0, nil
	}
	n.Read = true
	return 1, nil
}

// DashboardMetrics aggregates the dashboard numbers for one user and period.
func (s *Storage) DashboardMetrics(_ context.Context, userUID string, from, to time.Time) (*models.DashboardMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inPeriod := func(ts time.Time) bool {
		return !ts.Before(from) && ts.Before(to)
	}

	m := &models.DashboardMetrics{}
	byCustomer := make(map[int]int64)

	for _, sale := range s.sales {
		if sale.UserUID != userUID {
			continue
		}
		if inPeriod(sale.SoldAt) {
			m.RevenueKobo += sale.TotalKobo
			m.SaleCount++
		}
	}
	for _, inv := range s.invoices {
		if inv.UserUID != userUID {
			continue
		}
		if inv.Status == models.InvoicePaid && inv.PaidAt != nil && inPeriod(*inv.PaidAt) {
			m.RevenueKobo += inv.TotalKobo
			byCustomer[inv.CustomerID] += inv.TotalKobo
		}
		if inv.Status == models.InvoiceSent || inv.Status == models.InvoiceOverdue {
			m.OutstandingKobo += inv.TotalKobo
		}
		if inv.Status == models.InvoiceOverdue {
			m.OverdueInvoices++
		}
		if inPeriod(inv.CreatedAt) {
			m.InvoiceCount++
		}
	}
	for _, e := range s.expenses {
		if e.UserUID == userUID && inPeriod(e.SpentAt) {
			m.ExpensesKobo += e.AmountKobo
		}
	}
	for _, p := range s.products {
		if p.UserUID == userUID && p.LowStock() {
			m.LowStockProducts++
		}
	}

	for id, total := range byCustomer {
		name := ""
		if c, ok := s.customers[id]; ok {
			name = c.Name
		}
		m.TopCustomers = append(m.TopCustomers, models.TopCustomer{
			CustomerID: id,
			Name:       name,
			TotalKobo:  total,
		})
	}
	sort.Slice(m.TopCustomers, func(i, j int) bool {
		return m.TopCustomers[i].TotalKobo > m.TopCustomers[j].TotalKobo
	})
	if len(m.TopCustomers) > 5 {
		m.TopCustomers = m.TopCustomers[:5]
	}
	return m, nil
}

// Search finds customers, products and invoices matching a query string.
func (s *Storage) Search(_ context.Context, userUID, query string, limit int) (*models.SearchResults, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := strings.ToLower(query)
	match := func(fields ...string) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), q) {
				return true
			}
		}
		return false
	}

	results := &models.SearchResults{}
	for _, c := range s.customers {
		if len(results.Customers) >= limit {
			break
		}
		if c.UserUID == userUID && match(c.Name, c.Email, c.Phone) {
			cp := *c
			results.Customers = append(results.Customers, &cp)
		}
	}
	for _, p := range s.products {
		if len(results.Products) >= limit {
			break
		}
		if p.UserUID == userUID && match(p.Name, p.SKU) {
			cp := *p
			results.Products = append(results.Products, &cp)
		}
	}
	for _, inv := range s.invoices {
		if len(results.Invoices) >= limit {
			break
		}
		if inv.UserUID == userUID && match(inv.Number) {
			cp := *inv
			results.Invoices = append(results.Invoices, &cp)
		}
	}
	return results, nil
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
