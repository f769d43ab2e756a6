package middlewarectx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bizflowhq/bizflow-backend/internal/lib/jwt"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type ValidatorMock struct{ mock.Mock }

func (m *ValidatorMock) ValidateToken(ctx context.Context, token string) (*jwt.CustomClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwt.CustomClaims), args.Error(1)
}

type UsersMock struct{ mock.Mock }

func (m *UsersMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		authHeader     string
		setupMock      func(*ValidatorMock)
		expectedStatus int
		wantNext       bool
	}{
		{
			name:       "valid token",
			authHeader: "Bearer good-token",
			setupMock: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "good-token").Return(&jwt.CustomClaims{
					Username: "amaka",
					Role:     "owner",
					UserUID:  "user123",
				}, nil)
			},
			expectedStatus: http.StatusOK,
			wantNext:       true,
		},
		{
			name:           "missing header",
			authHeader:     "",
			setupMock:      func(_ *ValidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "not a bearer token",
			authHeader:     "Basic dXNlcjpwYXNz",
			setupMock:      func(_ *ValidatorMock) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			authHeader: "Bearer bad-token",
			setupMock: func(m *ValidatorMock) {
				m.On("ValidateToken", mock.Anything, "bad-token").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(ValidatorMock)
			tt.setupMock(validator)

			var gotUID string
			nextCalled := false
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				nextCalled = true
				gotUID, _ = UserUIDFromContext(r.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			JWTMiddleware(validator, noopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			if tt.wantNext {
				assert.Equal(t, "user123", gotUID)
			}
			validator.AssertExpectations(t)
		})
	}
}

func TestSubscriptionStatusMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*UsersMock)
		expectedStatus int
		wantNext       bool
	}{
		{
			name:    "active subscription passes",
			userUID: "user123",
			setupMock: func(m *UsersMock) {
				m.On("GetUser", mock.Anything, "user123").Return(&models.User{
					UID:                "user123",
					SubscriptionStatus: models.StatusActive,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			wantNext:       true,
		},
		{
			name:    "expired subscription blocked",
			userUID: "user123",
			setupMock: func(m *UsersMock) {
				m.On("GetUser", mock.Anything, "user123").Return(&models.User{
					UID:                "user123",
					SubscriptionStatus: models.StatusExpired,
				}, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing identity",
			userUID:        "",
			setupMock:      func(_ *UsersMock) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:    "storage failure",
			userUID: "user123",
			setupMock: func(m *UsersMock) {
				m.On("GetUser", mock.Anything, "user123").Return(nil, assert.AnError)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(UsersMock)
			tt.setupMock(users)

			nextCalled := false
			next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { nextCalled = true })

			req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), UserUID, tt.userUID))
			}
			w := httptest.NewRecorder()

			SubscriptionStatusMiddleware(noopLogger(), users)(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.wantNext, nextCalled)
			users.AssertExpectations(t)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	handler := RateLimitMiddleware(noopLogger(), 1, 2)(next)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/customers", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	// Burst of 2 passes, the third request in the same instant is rejected.
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
