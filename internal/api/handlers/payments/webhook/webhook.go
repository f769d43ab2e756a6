// Package webhook implements the Paystack webhook endpoint. The body is
// authenticated by its HMAC-SHA512 signature, never by the caller's IP, and
// a bad signature is answered with 401 before any parsing side effects.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/paystack"
)

type Handler struct {
	log           *slog.Logger
	service       Service
	webhookSecret string
}

type Service interface {
	ApplySettledPayment(ctx context.Context, userUID, reference string) error
	FindTransactionOwner(ctx context.Context, reference string) (string, error)
}

func New(log *slog.Logger, service Service, webhookSecret string) *Handler {
	return &Handler{
		log:           log,
		service:       service,
		webhookSecret: webhookSecret,
	}
}

// ServeHTTP godoc
// @Summary Paystack webhook
// @Description Receives charge events signed with X-Paystack-Signature
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} response.OKResponse "Event accepted"
// @Failure 401 {object} response.ErrorResponse "Bad signature"
// @Router /payments/webhook [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to read body"))
		return
	}

	signature := r.Header.Get("X-Paystack-Signature")
	if !paystack.ValidSignature(h.webhookSecret, body, signature) {
		log.Warn("webhook signature mismatch")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var event paystack.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Error("failed to parse webhook event", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid event payload"))
		return
	}

	// Only settled charges change state; everything else is acknowledged so
	// Paystack stops retrying.
	if event.Event == "charge.success" && event.Data.Status == "success" {
		userUID, err := h.service.FindTransactionOwner(r.Context(), event.Data.Reference)
		if err != nil {
			log.Warn("webhook for unknown reference",
				slog.String("reference", event.Data.Reference), sl.Err(err))
			render.JSON(w, r, response.OK())
			return
		}
		if err := h.service.ApplySettledPayment(r.Context(), userUID, event.Data.Reference); err != nil {
			log.Error("failed to apply settled payment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to apply payment"))
			return
		}
		log.Info("webhook payment applied", slog.String("reference", event.Data.Reference))
	}

	render.JSON(w, r, response.OK())
}
