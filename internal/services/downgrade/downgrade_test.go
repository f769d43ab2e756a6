package downgrade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bizflowhq/bizflow-backend/internal/lib/rabbitmq"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) FindExpiredSubscriptions(ctx context.Context, now time.Time) ([]*models.User, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) FindSubscriptionsEndingWithin(ctx context.Context, now time.Time, daysAhead int) ([]*models.User, error) {
	args := m.Called(ctx, now, daysAhead)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) UpdateSubscription(ctx context.Context, userUID, plan, status string, start, end *time.Time) error {
	return m.Called(ctx, userUID, plan, status, start, end).Error(0)
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) Publish(routingKey string, event models.NotificationEvent) error {
	return m.Called(routingKey, event).Error(0)
}

func NewNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestDowngrade_Run_DowngradesExpired(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	service := New(repo, publisher, NewNoopLogger())

	expired := []*models.User{
		{UID: "uid-1", Email: "a@example.com", Username: "a", SubscriptionPlan: models.PlanMonthly},
		{UID: "uid-2", Email: "b@example.com", Username: "b", SubscriptionPlan: models.PlanWeekly},
	}
	repo.On("FindExpiredSubscriptions", mock.Anything, now).Return(expired, nil)
	repo.On("UpdateSubscription", mock.Anything, "uid-1", models.PlanFree, models.StatusExpired,
		(*time.Time)(nil), (*time.Time)(nil)).Return(nil)
	repo.On("UpdateSubscription", mock.Anything, "uid-2", models.PlanFree, models.StatusExpired,
		(*time.Time)(nil), (*time.Time)(nil)).Return(nil)
	publisher.On("Publish", rabbitmq.KeyDowngraded, mock.MatchedBy(func(ev models.NotificationEvent) bool {
		return ev.Type == models.NotifDowngraded
	})).Return(nil).Twice()
	repo.On("FindSubscriptionsEndingWithin", mock.Anything, now, WarningWindowDays).
		Return([]*models.User{}, nil)

	summary, err := service.Run(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.ExpiredFound)
	assert.Equal(t, 2, summary.Downgraded)
	assert.Equal(t, 0, summary.Errors)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDowngrade_Run_WarningLevels(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	endTomorrow := now.Add(20 * time.Hour)
	endInThree := now.Add(70 * time.Hour)

	repo := new(RepoMock)
	publisher := new(PublisherMock)
	service := New(repo, publisher, NewNoopLogger())

	repo.On("FindExpiredSubscriptions", mock.Anything, now).Return([]*models.User{}, nil)
	repo.On("FindSubscriptionsEndingWithin", mock.Anything, now, WarningWindowDays).
		Return([]*models.User{
			{UID: "uid-1", Email: "a@example.com", SubscriptionEndDate: &endTomorrow},
			{UID: "uid-2", Email: "b@example.com", SubscriptionEndDate: &endInThree},
		}, nil)

	publisher.On("Publish", rabbitmq.KeyFinalWarning, mock.MatchedBy(func(ev models.NotificationEvent) bool {
		return ev.UserUID == "uid-1" && ev.Type == models.NotifFinalWarning
	})).Return(nil)
	publisher.On("Publish", rabbitmq.KeyExpiring, mock.MatchedBy(func(ev models.NotificationEvent) bool {
		return ev.UserUID == "uid-2" && ev.Type == models.NotifExpiring
	})).Return(nil)

	summary, err := service.Run(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.WarningsSent)
	publisher.AssertExpectations(t)
}

func TestDowngrade_Run_OneFailureDoesNotAbortBatch(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	service := New(repo, publisher, NewNoopLogger())

	expired := []*models.User{
		{UID: "uid-1", SubscriptionPlan: models.PlanMonthly},
		{UID: "uid-2", SubscriptionPlan: models.PlanMonthly},
	}
	repo.On("FindExpiredSubscriptions", mock.Anything, now).Return(expired, nil)
	repo.On("UpdateSubscription", mock.Anything, "uid-1", models.PlanFree, models.StatusExpired,
		(*time.Time)(nil), (*time.Time)(nil)).Return(errors.New("connection reset"))
	repo.On("UpdateSubscription", mock.Anything, "uid-2", models.PlanFree, models.StatusExpired,
		(*time.Time)(nil), (*time.Time)(nil)).Return(nil)
	publisher.On("Publish", rabbitmq.KeyDowngraded, mock.Anything).Return(nil)
	repo.On("FindSubscriptionsEndingWithin", mock.Anything, now, WarningWindowDays).
		Return([]*models.User{}, nil)

	summary, err := service.Run(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 2, summary.ExpiredFound)
	assert.Equal(t, 1, summary.Downgraded)
	assert.Equal(t, 1, summary.Errors)
}

func TestDowngrade_Run_PublishFailureStillDowngrades(t *testing.T) {
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)
	repo := new(RepoMock)
	publisher := new(PublisherMock)
	service := New(repo, publisher, NewNoopLogger())

	repo.On("FindExpiredSubscriptions", mock.Anything, now).Return([]*models.User{
		{UID: "uid-1", SubscriptionPlan: models.PlanYearly},
	}, nil)
	repo.On("UpdateSubscription", mock.Anything, "uid-1", models.PlanFree, models.StatusExpired,
		(*time.Time)(nil), (*time.Time)(nil)).Return(nil)
	publisher.On("Publish", rabbitmq.KeyDowngraded, mock.Anything).Return(errors.New("broker down"))
	repo.On("FindSubscriptionsEndingWithin", mock.Anything, now, WarningWindowDays).
		Return([]*models.User{}, nil)

	summary, err := service.Run(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Downgraded)
	assert.Equal(t, 0, summary.Errors)
}
