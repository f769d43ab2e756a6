// Package sales records over-the-counter transactions. A sale charges the
// user's sales quota, decrements product stock atomically and may fire a
// low-stock notification.
package sales

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type SaleRepository interface {
	CreateSale(ctx context.Context, sale models.Sale) (int, error)
	ListSales(ctx context.Context, userUID string, limit, offset int) ([]*models.Sale, error)
	AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error)
}

type Limiter interface {
	Allow(ctx context.Context, userUID, feature string) (int, error)
}

type EventPublisher interface {
	Publish(routingKey string, event models.NotificationEvent) error
}

type SaleService struct {
	repo      SaleRepository
	limiter   Limiter
	publisher EventPublisher
	log       *slog.Logger
}

func New(repo SaleRepository, limiter Limiter, publisher EventPublisher, log *slog.Logger) *SaleService {
	return &SaleService{
		repo:      repo,
		limiter:   limiter,
		publisher: publisher,
		log:       log,
	}
}

// Create records a sale. The stock decrement runs before the insert and
// rejects the sale when stock would go negative.
func (s *SaleService) Create(ctx context.Context, userUID string, req models.DummySale) (int, error) {
	if _, err := s.limiter.Allow(ctx, userUID, models.FeatureSales); err != nil {
		return 0, err
	}

	product, err := s.repo.AdjustStock(ctx, userUID, req.ProductID, -req.Quantity)
	if err != nil {
		return 0, fmt.Errorf("insufficient stock or unknown product: %w", err)
	}

	id, err := s.repo.CreateSale(ctx, models.Sale{
		UserUID:       userUID,
		ProductID:     req.ProductID,
		CustomerID:    req.CustomerID,
		Quantity:      req.Quantity,
		UnitPriceKobo: req.UnitPriceKobo,
		TotalKobo:     int64(req.Quantity) * req.UnitPriceKobo,
		SoldAt:        time.Now().UTC(),
	})
	if err != nil {
		return 0, err
	}

	if product.LowStock() {
		event := models.NotificationEvent{
			UserUID: userUID,
			Type:    models.NotifLowStock,
			Title:   "Low stock alert",
			Body: fmt.Sprintf("%s is down to %d units (threshold %d). Restock soon.",
				product.Name, product.StockQuantity, product.LowStockThreshold),
		}
		if err := s.publisher.Publish(rabbitmq.KeyLowStock, event); err != nil {
			s.log.Warn("failed to publish low stock event",
				slog.Int("product_id", req.ProductID), sl.Err(err))
		}
	}

	s.log.Info("recorded sale",
		slog.Int("id", id),
		slog.String("user_uid", userUID),
		slog.Int("quantity", req.Quantity))
	return id, nil
}

func (s *SaleService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Sale, error) {
	return s.repo.ListSales(ctx, userUID, limit, offset)
}
