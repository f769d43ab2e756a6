// Package create implements the HTTP handler for issuing an invoice. The
// operation is metered: it consumes one unit of the plan's invoice quota.
package create

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
	"github.com/bizflowhq/bizflow-backend/internal/services/usage"
)

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

type Service interface {
	Create(ctx context.Context, userUID string, req models.DummyInvoice) (int, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Issue an invoice
// @Tags Invoices
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyInvoice true "Invoice data"
// @Success 200 {object} response.OKResponse "Invoice created"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON or bad due date"
// @Failure 403 {object} response.ErrorResponse "Plan limit reached"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /invoices [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoices.create"

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

	var req models.DummyInvoice
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

	id, err := h.service.Create(r.Context(), userUID, req)
	if errors.Is(err, usage.ErrLimitReached) {
		log.Warn("invoice limit reached", slog.String("user_uid", userUID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("invoice limit reached for current billing cycle, upgrade your plan"))
		return
	}
	if err != nil {
		log.Error("failed to create invoice", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to create invoice"))
		return
	}

	log.Info("invoice created", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id}))
}
