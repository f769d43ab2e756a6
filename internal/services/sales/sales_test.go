package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/services/usage"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateSale(ctx context.Context, sale models.Sale) (int, error) {
	args := m.Called(ctx, sale)
	return args.Int(0), args.Error(1)
}

func (m *RepoMock) ListSales(ctx context.Context, userUID string, limit, offset int) ([]*models.Sale, error) {
	args := m.Called(ctx, userUID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Sale), args.Error(1)
}

func (m *RepoMock) AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error) {
	args := m.Called(ctx, userUID, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
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

func TestSales_Create(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	publisher := new(PublisherMock)
	service := New(repo, limiter, publisher, NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureSales).Return(1, nil)
	repo.On("AdjustStock", mock.Anything, "uid-1", 4, -2).Return(&models.Product{
		ID:                4,
		Name:              "Bag of rice",
		StockQuantity:     20,
		LowStockThreshold: 5,
	}, nil)
	repo.On("CreateSale", mock.Anything, mock.MatchedBy(func(sale models.Sale) bool {
		return sale.UserUID == "uid-1" &&
			sale.ProductID == 4 &&
			sale.Quantity == 2 &&
			sale.TotalKobo == 2*150000
	})).Return(11, nil)

	id, err := service.Create(context.Background(), "uid-1", models.DummySale{
		ProductID:     4,
		Quantity:      2,
		UnitPriceKobo: 150000,
	})

	require.NoError(t, err)
	assert.Equal(t, 11, id)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestSales_Create_LowStockFiresEvent(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	publisher := new(PublisherMock)
	service := New(repo, limiter, publisher, NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureSales).Return(1, nil)
	repo.On("AdjustStock", mock.Anything, "uid-1", 4, -3).Return(&models.Product{
		ID:                4,
		Name:              "Bag of rice",
		StockQuantity:     4,
		LowStockThreshold: 5,
	}, nil)
	repo.On("CreateSale", mock.Anything, mock.Anything).Return(12, nil)
	publisher.On("Publish", rabbitmq.KeyLowStock, mock.MatchedBy(func(ev models.NotificationEvent) bool {
		return ev.Type == models.NotifLowStock && ev.UserUID == "uid-1"
	})).Return(nil)

	_, err := service.Create(context.Background(), "uid-1", models.DummySale{
		ProductID:     4,
		Quantity:      3,
		UnitPriceKobo: 150000,
	})

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestSales_Create_LimitReached(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	service := New(repo, limiter, new(PublisherMock), NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureSales).
		Return(50, usage.ErrLimitReached)

	_, err := service.Create(context.Background(), "uid-1", models.DummySale{
		ProductID:     4,
		Quantity:      1,
		UnitPriceKobo: 150000,
	})

	assert.ErrorIs(t, err, usage.ErrLimitReached)
	repo.AssertNotCalled(t, "AdjustStock", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSales_Create_InsufficientStock(t *testing.T) {
	repo := new(RepoMock)
	limiter := new(LimiterMock)
	service := New(repo, limiter, new(PublisherMock), NewNoopLogger())

	limiter.On("Allow", mock.Anything, "uid-1", models.FeatureSales).Return(1, nil)
	repo.On("AdjustStock", mock.Anything, "uid-1", 4, -10).Return(nil, assert.AnError)

	_, err := service.Create(context.Background(), "uid-1", models.DummySale{
		ProductID:     4,
		Quantity:      10,
		UnitPriceKobo: 150000,
	})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateSale", mock.Anything, mock.Anything)
}
