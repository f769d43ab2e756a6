package invoices

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/services/usage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateInvoice(ctx context.Context, inv models.Invoice) (int, error) {
	args := m.Called(ctx, inv)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ReadInvoice(ctx context.Context, userUID string, id int) (*models.Invoice, error) {
	args := m.Called(ctx, userUID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *RepoMock) ListInvoices(ctx context.Context, userUID string, limit, offset int) ([]*models.Invoice, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

func (m *RepoMock) UpdateInvoiceStatus(ctx context.Context, userUID string, id int, status string, paidAt *time.Time) (int, error) {
	args := m.Called(ctx, userUID, id, status, paidAt)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) RemoveInvoice(ctx context.Context, userUID string, id int) (int, error) {
	args := m.Called(ctx, userUID, id)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) MarkOverdueInvoices(ctx context.Context, now time.Time) ([]*models.Invoice, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}

type LimiterMock struct{ mock.Mock }

func (m *LimiterMock) Allow(ctx context.Context, userUID, feature string) (int, error) {
	args := m.Called(ctx, userUID, feature)
	return args.Int(0), args.Error(1)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, event models.NotificationEvent) error {
	return m.Called(routingKey, event).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestInvoices_Create(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	service := New(repo, limiter, new(PublisherMock), NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureInvoices).Return(1, nil)
	repo.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(inv models.Invoice) bool {
		return inv.UserUID == "uid-1" &&
			inv.Status == models.InvoiceDraft &&
			inv.TotalKobo == 3*150000+2*80000 &&
			strings.HasPrefix(inv.Number, "INV-") &&
			len(inv.Items) == 2
	})).Return(7, nil)

	id, err := service.Create(context.Background(), "uid-1", models.DummyInvoice{
		CustomerID: 3,
		DueDate:    "2025-04-01",
		Items: []models.DummyInvoiceItem{
			{Description: "Bags of rice", Quantity: 3, PriceKobo: 150000},
			{Description: "Delivery", Quantity: 2, PriceKobo: 80000},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 7, id)
	repo.AssertExpectations(t)
	limiter.AssertExpectations(t)
}

func TestInvoices_Create_LimitReached(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	service := New(repo, limiter, new(PublisherMock), NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureInvoices).
		Return(5, usage.ErrLimitReached)

	_, err := service.Create(context.Background(), "uid-1", models.DummyInvoice{
		CustomerID: 3,
		DueDate:    "2025-04-01",
		Items: []models.DummyInvoiceItem{
			{Description: "Bags of rice", Quantity: 1, PriceKobo: 150000},
		},
	})

	assert.ErrorIs(t, err, usage.ErrLimitReached)
	repo.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestInvoices_Create_BadDueDate(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	service := New(repo, limiter, new(PublisherMock), NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureInvoices).Return(1, nil)

	_, err := service.Create(context.Background(), "uid-1", models.DummyInvoice{
		CustomerID: 3,
		DueDate:    "04/01/2025",
		Items: []models.DummyInvoiceItem{
			{Description: "Bags of rice", Quantity: 1, PriceKobo: 150000},
		},
	})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)
}

func TestInvoices_MarkPaid(t *testing.T) {
	repo := new(RepoMock)
	service := New(repo, new(LimiterMock), new(PublisherMock), NewNoopLogger())

	repo.On("UpdateInvoiceStatus", mock.Anything, "uid-1", 7, models.InvoicePaid,
		mock.MatchedBy(func(paidAt *time.Time) bool { return paidAt != nil })).Return(1, nil)

	count, err := service.MarkPaid(context.Background(), "uid-1", 7)

	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInvoices_MarkOverdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	service := New(repo, new(LimiterMock), publisher, NewNoopLogger())

	flipped := []*models.Invoice{
		{ID: 1, UserUID: "uid-1", Number: "INV-20250301-AAAAAAAA", Status: models.InvoiceOverdue, TotalKobo: 300000},
		{ID: 2, UserUID: "uid-2", Number: "INV-20250302-BBBBBBBB", Status: models.InvoiceOverdue, TotalKobo: 160000},
	}
	repo.On("MarkOverdueInvoices", mock.Anything, now).Return(flipped, nil)
	publisher.On("Publish", "overdue", mock.MatchedBy(func(event models.NotificationEvent) bool {
		return event.Type == models.NotifOverdue
	})).Return(nil).Twice()

	count, err := service.MarkOverdue(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	publisher.AssertExpectations(t)
}
