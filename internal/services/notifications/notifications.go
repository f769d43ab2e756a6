// Package notifications exposes a user's in-app notification feed.
package notifications

import (
	"context"
	"log/slog"

	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type NotificationRepository interface {
	ListNotifications(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, userUID string, id int) (int, error)
}

type NotificationService struct {
	repo NotificationRepository
	log  *slog.Logger
}

func New(repo NotificationRepository, log *slog.Logger) *NotificationService {
	return &NotificationService{repo: repo, log: log}
}

func (s *NotificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	return s.repo.ListNotifications(ctx, userUID, unreadOnly, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, userUID string, id int) (int, error) {
	return s.repo.MarkNotificationRead(ctx, userUID, id)
}
