// Package downgrade implements the scheduled subscription maintenance job.
// Each run makes two disjoint passes over the user base: expired accounts
// are moved to the free plan, and accounts nearing their end date get a
// warning event. One failing user never aborts the batch.
package downgrade

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

// WarningWindowDays is how far ahead the warning pass looks.
const WarningWindowDays = 3

type DowngradeRepository interface {
	FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error)
	FindSubscriptionsEndingWithin(ctx context.Context, now time.Time, daysAhead int) ([]*models.User, error)
	UpdateSubscription(ctx context.Context, userUID, plan, status string, start, end *time.Time) error
}

type EventPublisher interface {
	Publish(routingKey string, event models.NotificationEvent) error
}

// Summary reports what one batch run did.
type Summary struct {
	ExpiredFound int       `json:"expired_found"`
	Downgraded   int       `json:"downgraded"`
	WarningsSent int       `json:"warnings_sent"`
	Errors       int       `json:"errors"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

type DowngradeService struct {
	repo      DowngradeRepository
	publisher EventPublisher
	log       *slog.Logger
}

func New(repo DowngradeRepository, publisher EventPublisher, log *slog.Logger) *DowngradeService {
	return &DowngradeService{
		repo:      repo,
		publisher: publisher,
		log:       log,
	}
}

// Run executes one batch: downgrade every expired subscription, then warn
// users whose subscription ends within the warning window. The two passes
// are disjoint because an expired user is downgraded before the warning
// query runs and no longer matches it.
func (s *DowngradeService) Run(ctx context.Context, now time.Time) (*Summary, error) {
	summary := &Summary{StartedAt: now.UTC()}

	expired, err := s.repo.FindExpiredSubscriptions(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}
	summary.ExpiredFound = len(expired)

	for _, user := range expired {
		if err := s.downgradeUser(ctx, user); err != nil {
			summary.Errors++
			s.log.Error("failed to downgrade user",
				slog.String("user_uid", user.UID), sl.Err(err))
			continue
		}
		summary.Downgraded++
	}

	ending, err := s.repo.FindSubscriptionsEndingWithin(ctx, now, WarningWindowDays)
	if err != nil {
		return nil, fmt.Errorf("failed to find ending subscriptions: %w", err)
	}

	for _, user := range ending {
		sent, err := s.warnUser(user, now)
		if err != nil {
			summary.Errors++
			s.log.Error("failed to warn user",
				slog.String("user_uid", user.UID), sl.Err(err))
			continue
		}
		if sent {
			summary.WarningsSent++
		}
	}

	summary.FinishedAt = time.Now().UTC()
	s.log.Info("downgrade batch finished",
		slog.Int("expired_found", summary.ExpiredFound),
		slog.Int("downgraded", summary.Downgraded),
		slog.Int("warnings_sent", summary.WarningsSent),
		slog.Int("errors", summary.Errors))
	return summary, nil
}

func (s *DowngradeService) downgradeUser(ctx context.Context, user *models.User) error {
	if err := s.repo.UpdateSubscription(ctx, user.UID, models.PlanFree, models.StatusExpired, nil, nil); err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	event := models.NotificationEvent{
		UserUID:  user.UID,
		Email:    user.Email,
		Username: user.Username,
		Type:     models.NotifDowngraded,
		Title:    "Your subscription has expired",
		Body: fmt.Sprintf("Your %s plan has expired and your account is back on the free plan. "+
			"Renew to restore your limits.", user.SubscriptionPlan),
	}
	if err := s.publisher.Publish(rabbitmq.KeyDowngraded, event); err != nil {
		// The plan change is already committed; the missed email is logged
		// and the user still sees the new state in the app.
		s.log.Warn("failed to publish downgrade event",
			slog.String("user_uid", user.UID), sl.Err(err))
	}

	s.log.Info("downgraded expired subscription",
		slog.String("user_uid", user.UID),
		slog.String("old_plan", user.SubscriptionPlan))
	return nil
}

func (s *DowngradeService) warnUser(user *models.User, now time.Time) (bool, error) {
	end := user.SubscriptionEndDate
	if end == nil {
		end = user.TrialEndDate
	}
	if end == nil {
		return false, nil
	}

	warning := days.WarningFor(days.RemainingDays(now, *end))
	if warning == nil {
		return false, nil
	}

	routingKey := rabbitmq.KeyExpiring
	title := "Your subscription is expiring soon"
	if warning.Level == days.LevelFinalWarning {
		routingKey = rabbitmq.KeyFinalWarning
		title = "Final warning: subscription expires tomorrow"
	}

	event := models.NotificationEvent{
		UserUID:  user.UID,
		Email:    user.Email,
		Username: user.Username,
		Type:     warningType(warning.Level),
		Title:    title,
		Body:     warning.Message,
	}
	if err := s.publisher.Publish(routingKey, event); err != nil {
		return false, fmt.Errorf("failed to publish warning event: %w", err)
	}
	return true, nil
}

func warningType(level string) string {
	if level == days.LevelFinalWarning {
		return models.NotifFinalWarning
	}
	return models.NotifExpiring
}
