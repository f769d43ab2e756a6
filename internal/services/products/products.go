// Package products implements CRUD and stock management for the inventory.
// Stock adjustments that push a product to its low-stock threshold publish
// a notification event.
package products

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, p models.Product) (int, error)
	ReadProduct(ctx context.Context, userUID string, id int) (*models.Product, error)
	ListProducts(ctx context.Context, userUID string, limit, offset int) ([]*models.Product, error)
	UpdateProduct(ctx context.Context, p models.Product) (int, error)
	RemoveProduct(ctx context.Context, userUID string, id int) (int, error)
	AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error)
}

type EventPublisher interface {
	Publish(routingKey string, event models.NotificationEvent) error
}

type ProductService struct {
	repo      ProductRepository
	publisher EventPublisher
	log       *slog.Logger
}

func New(repo ProductRepository, publisher EventPublisher, log *slog.Logger) *ProductService {
	return &ProductService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

func (s *ProductService) Create(ctx context.Context, userUID string, req models.DummyProduct) (int, error) {
	id, err := s.repo.CreateProduct(ctx, models.Product{
		UserUID:           userUID,
		Name:              req.Name,
		SKU:               req.SKU,
		PriceKobo:         req.PriceKobo,
		CostKobo:          req.CostKobo,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("created product", slog.Int("id", id), slog.String("user_uid", userUID))
	return id, nil
}

func (s *ProductService) Read(ctx context.Context, userUID string, id int) (*models.Product, error) {
	return s.repo.ReadProduct(ctx, userUID, id)
}

func (s *ProductService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Product, error) {
	return s.repo.ListProducts(ctx, userUID, limit, offset)
}

func (s *ProductService) Update(ctx context.Context, userUID string, id int, req models.DummyProduct) (int, error) {
	return s.repo.UpdateProduct(ctx, models.Product{
		ID:                id,
		UserUID:           userUID,
		Name:              req.Name,
		SKU:               req.SKU,
		PriceKobo:         req.PriceKobo,
		CostKobo:          req.CostKobo,
		StockQuantity:     req.StockQuantity,
		LowStockThreshold: req.LowStockThreshold,
	})
}

func (s *ProductService) Remove(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.RemoveProduct(ctx, userUID, id)
}

// AdjustStock applies a delta to a product's stock count. Crossing the
// low-stock threshold fires a notification event; a broker failure does not
// undo the stock change.
func (s *ProductService) AdjustStock(ctx context.Context, userUID string, id, delta int) (*models.Product, error) {
	product, err := s.repo.AdjustStock(ctx, userUID, id, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}

	if delta < 0 && product.LowStock() {
		event := models.NotificationEvent{
			UserUID: userUID,
			Type:    models.NotifLowStock,
			Title:   "Low stock alert",
			Body: fmt.Sprintf("%s is down to %d units (threshold %d). Restock soon.",
				product.Name, product.StockQuantity, product.LowStockThreshold),
		}
		if err := s.publisher.Publish(rabbitmq.KeyLowStock, event); err != nil {
			s.log.Warn("failed to publish low stock event",
				slog.Int("product_id", id), sl.Err(err))
		}
	}
	return product, nil
}
