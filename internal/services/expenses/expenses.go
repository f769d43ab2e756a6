// Package expenses records business spending under the plan's expense quota.
package expenses

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type ExpenseRepository interface {
	CreateExpense(ctx context.Context, e models.Expense) (int, error)
	ListExpenses(ctx context.Context, userUID string, limit, offset int) ([]*models.Expense, error)
	RemoveExpense(ctx context.Context, userUID string, id int) (int, error)
}

type Limiter interface {
	Allow(ctx context.Context, userUID, feature string) (int, error)
}

type ExpenseService struct {
	repo    ExpenseRepository
	limiter Limiter
	log     *slog.Logger
}

func New(repo ExpenseRepository, limiter Limiter, log *slog.Logger) *ExpenseService {
	return &ExpenseService{
		repo:    repo,
		limiter: limiter,
		log:     log,
	}
}

// Create records an expense. An empty spent_at defaults to now.
func (s *ExpenseService) Create(ctx context.Context, userUID string, req models.DummyExpense) (int, error) {
	if _, err := s.limiter.Allow(ctx, userUID, models.FeatureExpenses); err != nil {
		return 0, err
	}

	spentAt := time.Now().UTC()
	if req.SpentAt != "" {
		parsed, err := days.Parse(req.SpentAt)
		if err != nil {
			return 0, fmt.Errorf("invalid spent date: %w", err)
		}
		spentAt = parsed
	}

	id, err := s.repo.CreateExpense(ctx, models.Expense{
		UserUID:     userUID,
		Category:    req.Category,
		Description: req.Description,
		AmountKobo:  req.AmountKobo,
		SpentAt:     spentAt,
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("recorded expense",
		slog.Int("id", id),
		slog.String("user_uid", userUID),
		slog.String("category", req.Category))
	return id, nil
}

func (s *ExpenseService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Expense, error) {
	return s.repo.ListExpenses(ctx, userUID, limit, offset)
}

func (s *ExpenseService) Remove(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.RemoveExpense(ctx, userUID, id)
}
