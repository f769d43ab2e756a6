// Package invoices implements the invoice lifecycle: creation under the
// plan's usage limit, status transitions to sent/paid, and the scheduled
// pass that flags overdue invoices and notifies their owners.
package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, inv models.Invoice) (int, error)
	ReadInvoice(ctx context.Context, userUID string, id int) (*models.Invoice, error)
	ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, userUID string, id int, status string, paidAt *time.Time) (int, error)
	RemoveInvoice(ctx context.Context, userUID string, id int) (int, error)
	MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error)
}

type Limiter interface {
	Allow(ctx context.Context, userUID, feature string) (int, error)
}

type EventPublisher interface {
	Publish(routingKey string, event models.NotificationEvent) error
}

type InvoiceService struct {
	repo      InvoiceRepository
	limiter   Limiter
	publisher EventPublisher
	log       *slog.Logger
}

func New(repo InvoiceRepository, limiter Limiter, publisher EventPublisher, log *slog.Logger) *InvoiceService {
	return &InvoiceService{
		repo:      repo,
		limiter:   limiter,
		publisher: publisher,
		log:       log,
	}
}

// Create builds an invoice from the request after charging the user's
// invoice quota for the cycle. The total is always recomputed from the
// items; client-supplied totals are ignored.
func (s *InvoiceService) Create(ctx context.Context, userUID string, req models.DummyInvoice) (int, error) {
	if _, err := s.limiter.Allow(ctx, userUID, models.FeatureInvoices); err != nil {
		return 0, err
	}

	dueDate, err := days.Parse(req.DueDate)
	if err != nil {
		return 0, fmt.Errorf("invalid due date: %w", err)
	}

	var total int64
	items := make([]models.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, models.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			PriceKobo:   item.PriceKobo,
		})
		total += int64(item.Quantity) * item.PriceKobo
	}

	id, err := s.repo.CreateInvoice(ctx, models.Invoice{
		UserUID:    userUID,
		CustomerID: req.CustomerID,
		Number:     newInvoiceNumber(),
		Status:     models.InvoiceDraft,
		Items:      items,
		TotalKobo:  total,
		DueDate:    dueDate,
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("created invoice",
		slog.Int("id", id),
		slog.String("user_uid", userUID),
		slog.Int64("total_kobo", total))
	return id, nil
}

func (s *InvoiceService) Read(ctx context.Context, userUID string, id int) (*models.Invoice, error) {
	return s.repo.ReadInvoice(ctx, userUID, id)
}

func (s *InvoiceService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	return s.repo.ListInvoices(ctx, userUID, limit, offset)
}

// Send moves a draft invoice to sent.
func (s *InvoiceService) Send(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.UpdateInvoiceStatus(ctx, userUID, id, models.InvoiceSent, nil)
}

// MarkPaid settles an invoice at the current time.
func (s *InvoiceService) MarkPaid(ctx context.Context, userUID string, id int) (int, error) {
	now := time.Now().UTC()
	return s.repo.UpdateInvoiceStatus(ctx, userUID, id, models.InvoicePaid, &now)
}

func (s *InvoiceService) Remove(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.RemoveInvoice(ctx, userUID, id)
}

// MarkOverdue flips sent invoices past their due date to overdue, publishes
// an overdue notice per invoice and returns how many changed. Called from the
// scheduled maintenance job.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	updated, err := s.repo.MarkOverdueInvoices(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	for _, inv := range updated {
		s.NotifyOverdue(inv.UserUID, inv)
	}
	if len(updated) > 0 {
		s.log.Info("marked invoices overdue", slog.Int("count", len(updated)))
	}
	return len(updated), nil
}

// NotifyOverdue publishes an overdue notice for one invoice.
func (s *InvoiceService) NotifyOverdue(userUID string, inv *models.Invoice) {
	event := models.NotificationEvent{
		UserUID: userUID,
		Type:    models.NotifOverdue,
		Title:   "Invoice overdue",
		Body: fmt.Sprintf("Invoice %s for ₦%.2f is past its due date.",
			inv.Number, float64(inv.TotalKobo)/100),
	}
	if err := s.publisher.Publish(rabbitmq.KeyOverdue, event); err != nil {
		s.log.Warn("failed to publish overdue event",
			slog.String("invoice", inv.Number), sl.Err(err))
	}
}

// newInvoiceNumber builds a unique human-readable invoice number, e.g.
// INV-20250310-4F2A1C8B.
func newInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
