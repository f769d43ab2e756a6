// Package customers implements CRUD over a business owner's client book.
package customers

import (
	"context"
	"log/slog"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c models.Customer) (int, error)
	ReadCustomer(ctx context.Context, userUID string, id int) (*models.Customer, error)
	ListCustomers(ctx context.Context, userUID string, limit, offset int) ([]*models.Customer, error)
	UpdateCustomer(ctx context.Context, c models.Customer) (int, error)
	RemoveCustomer(ctx context.Context, userUID string, id int) (int, error)
}

type CustomerService struct {
	repo CustomerRepository
	log  *slog.Logger
}

func New(repo CustomerRepository, log *slog.Logger) *CustomerService {
	return &CustomerService{repo: repo, log: log}
}

func (s *CustomerService) Create(ctx context.Context, userUID string, req models.DummyCustomer) (int, error) {
	id, err := s.repo.CreateCustomer(ctx, models.Customer{
		UserUID: userUID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("created customer", slog.Int("id", id), slog.String("user_uid", userUID))
	return id, nil
}

func (s *CustomerService) Read(ctx context.Context, userUID string, id int) (*models.Customer, error) {
	return s.repo.ReadCustomer(ctx, userUID, id)
}

func (s *CustomerService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Customer, error) {
	return s.repo.ListCustomers(ctx, userUID, limit, offset)
}

func (s *CustomerService) Update(ctx context.Context, userUID string, id int, req models.DummyCustomer) (int, error) {
	return s.repo.UpdateCustomer(ctx, models.Customer{
		ID:      id,
		UserUID: userUID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
	})
}

func (s *CustomerService) Remove(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.RemoveCustomer(ctx, userUID, id)
}
