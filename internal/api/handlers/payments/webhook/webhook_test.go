package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testSecret = "whsec_test"

type MockService struct {
	mock.Mock
}

func (m *MockService) ApplySettledPayment(ctx context.Context, userUID, reference string) error {
	return m.Called(ctx, userUID, reference).Error(0)
}

func (m *MockService) FindTransactionOwner(ctx context.Context, reference string) (string, error) {
	args := m.Called(ctx, reference)
	return args.String(0), args.Error(1)
}

func sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Paystack-Signature", signature)
	}
	return req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))
}

func TestWebhookHandler_ChargeSuccess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockService := new(MockService)
	mockService.On("FindTransactionOwner", mock.Anything, "ref-1").Return("user123", nil)
	mockService.On("ApplySettledPayment", mock.Anything, "user123", "ref-1").Return(nil)

	handler := New(logger, mockService, testSecret)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","status":"success","amount":450000}}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(body, sign(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockService := new(MockService)
	handler := New(logger, mockService, testSecret)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","status":"success"}}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(body, "deadbeef"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockService.AssertNotCalled(t, "ApplySettledPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_MissingSignature(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	handler := New(logger, new(MockService), testSecret)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","status":"success"}}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(body, ""))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandler_IgnoredEvent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockService := new(MockService)
	handler := New(logger, mockService, testSecret)

	body := []byte(`{"event":"charge.failed","data":{"reference":"ref-1","status":"failed"}}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(body, sign(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertNotCalled(t, "ApplySettledPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookHandler_UnknownReferenceAcknowledged(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	mockService := new(MockService)
	mockService.On("FindTransactionOwner", mock.Anything, "ref-x").Return("", assert.AnError)

	handler := New(logger, mockService, testSecret)

	body := []byte(`{"event":"charge.success","data":{"reference":"ref-x","status":"success"}}`)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newRequest(body, sign(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertNotCalled(t, "ApplySettledPayment", mock.Anything, mock.Anything, mock.Anything)
}
