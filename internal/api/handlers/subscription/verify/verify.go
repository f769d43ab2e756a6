// Package verify implements the HTTP handler confirming a checkout payment
// and applying the purchased plan.
package verify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/services/subscription"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	VerifyUpgrade(ctx context.Context, userUID string, req models.DummyVerify) (*subscription.Status, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Verify an upgrade payment
// @Tags Subscription
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyVerify true "Transaction reference"
// @Success 200 {object} response.OKResponse "Updated subscription snapshot"
// @Failure 402 {object} response.ErrorResponse "Payment not settled"
// @Failure 404 {object} response.ErrorResponse "Unknown reference"
// @Router /subscription/verify [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	var req models.DummyVerify
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	status, err := h.service.VerifyUpgrade(r.Context(), userUID, req)
	if errors.Is(err, subscription.ErrPaymentNotSettled) {
		render.Status(r, http.StatusPaymentRequired)
		render.JSON(w, r, response.Error("payment is not settled yet"))
		return
	}
	if err != nil {
		log.Error("failed to verify upgrade", sl.Err(err))
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("failed to verify upgrade"))
		return
	}

	log.Info("upgrade verified", slog.String("reference", req.Reference))
	render.JSON(w, r, response.OKWithData(status))
}
