package status

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/lib/days"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/services/subscription"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetStatus(ctx context.Context, userUID string) (*subscription.Status, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Status), args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockService := new(MockService)
	mockService.On("GetStatus", mock.Anything, "user123").Return(&subscription.Status{
		Plan:          models.PlanMonthly,
		Status:        models.StatusActive,
		DaysRemaining: 3,
		TimeRemaining: "2d 14h 5m",
		Warning: &days.Warning{
			Level:         days.LevelExpiring,
			DaysRemaining: 3,
			Message:       "Your subscription expires in 3 days.",
		},
		Limits: models.Plans[models.PlanMonthly].Limits,
	}, nil)

	handler := New(logger, mockService)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription/status", nil)
	ctx := context.WithValue(req.Context(), middlewarectx.UserUID, "user123")
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"days_remaining":3`)
	assert.Contains(t, w.Body.String(), `"level":"expiring"`)
	mockService.AssertExpectations(t)
}

func TestStatusHandler_MissingIdentity(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	handler := New(logger, new(MockService))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription/status", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
