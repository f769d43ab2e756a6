// Package storage defines the persistence capability interface and the
// errors shared by its implementations. Two backends exist: postgres (the
// real store) and memory (a non-durable fallback used when no database is
// configured). The backend is chosen once at construction and reported by
// the health endpoint.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// ErrNotFound is returned when a row does not exist or belongs to another user.
var ErrNotFound = errors.New("not found")

// Backend mode names reported by /health.
const (
	ModePostgres = "postgres"
	ModeMemory   = "memory"
)

// Store is the full persistence surface. Services depend on narrow subsets
// of it; the app wires one implementation into all of them.
type Store interface {
	Mode() string
	Close() error

	// Users.
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateSubscription(ctx context.Context, userUID, plan, status string, start, end *time.Time) error
	FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error)
	FindSubscriptionsEndingWithin(ctx context.Context, now time.Time, days int) ([]*models.User, error)

	// Customers.
	CreateCustomer(ctx context.Context, c models.Customer) (int, error)
	ReadCustomer(ctx context.Context, userUID string, id int) (*models.Customer, error)
	ListCustomers(ctx context.Context, userUID string, limit, offset int) ([]*models.Customer, error)
	UpdateCustomer(ctx context.Context, c models.Customer) (int, error)
	RemoveCustomer(ctx context.Context, userUID string, id int) (int, error)

	// Products.
	CreateProduct(ctx context.Context, p models.Product) (int, error)
	ReadProduct(ctx context.Context, userUID string, id int) (*models.Product, error)
	ListProducts(ctx context.Context, userUID string, limit, offset int) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (int, error)
	RemoveProduct(ctx context.Context, userUID string, id int) (int, error)
	AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error)

	// Invoices.
	CreateInvoice(ctx context.Context, inv models.Invoice) (int, error)
	ReadInvoice(ctx context.Context, userUID string, id int) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, userUID string, id int, status string, paidAt *time.Time) (int, error)
	RemoveInvoice(ctx context.Context, userUID string, id int) (int, error)
	MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error)

	// Sales.
	CreateSale(ctx context.Context, s models.Sale) (int, error)
	ListSales(ctx context.Context, userUID string, limit, offset int) ([]*models.Sale, error)

	// Expenses.
	CreateExpense(ctx context.Context, e models.Expense) (int, error)
	ListExpenses(ctx context.Context, userUID string, limit, offset int) ([]*models.Expense, error)
	RemoveExpense(ctx context.Context, userUID string, id int) (int, error)

	// Feature usage counters.
	IncrementUsage(ctx context.Context, userUID, feature string, cycleStart time.Time, limit int) (int, error)
	GetUsage(ctx context.Context, userUID string, cycleStart time.Time) ([]*models.FeatureUsage, error)
	SetUsageCount(ctx context.Context, userUID, feature string, cycleStart time.Time, count, limit int) error
	CountFeatureRows(ctx context.Context, userUID, feature string, cycleStart time.Time) (int, error)

	// Subscription transactions.
	CreateTransaction(ctx context.Context, tx models.SubscriptionTransaction) (int, error)
	GetTransactionByReference(ctx context.Context, userUID, reference string) (*models.SubscriptionTransaction, error)
	GetTransactionOwner(ctx context.Context, reference string) (string, error)
	FinalizeTransaction(ctx context.Context, reference, status string, paidAt time.Time) error
	ListTransactions(ctx context.Context, userUID string, limit, offset int) ([]*models.SubscriptionTransaction, error)

	// Notifications.
	CreateNotification(ctx context.Context, n models.Notification) (int, error)
	ListNotifications(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userUID string, id int) (int, error)

	// Analytics.
	DashboardMetrics(ctx context.Context, userUID string, from, to time.Time) (*models.DashboardMetrics, error)
	Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error)
}
