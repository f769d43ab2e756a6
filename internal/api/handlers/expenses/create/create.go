// Package create implements the HTTP handler for recording an expense. The operation is
// metered against the plan's expenses quota.
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
	Create(ctx context.Context, userUID string, req models.DummyExpense) (int, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Record an expense
// @Tags Expenses
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyExpense true "Expense data"
// @Success 200 {object} response.OKResponse "Record created"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON or rejected data"
// @Failure 403 {object} response.ErrorResponse "Plan limit reached"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /expenses [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.expenses.create"

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

	var req models.DummyExpense
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
		log.Warn("expenses limit reached", slog.String("user_uid", userUID))
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, response.Error("expenses limit reached for current billing cycle, upgrade your plan"))
		return
	}
	if err != nil {
		log.Error("failed to record expense", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to record expense"))
		return
	}

	log.Info("expense recorded", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"id": id}))
}
