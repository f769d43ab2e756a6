// Package upgrade implements the HTTP handler that starts a paid plan
// checkout with the payment gateway.
package upgrade

import (
	"context"
	"encoding/json"
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
	InitializeUpgrade(ctx context.Context, userUID string, req models.DummyUpgrade) (*subscription.Checkout, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Start a plan upgrade
// @Description Initializes a Paystack checkout session and records a pending transaction
// @Tags Subscription
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyUpgrade true "Target plan"
// @Success 200 {object} response.OKResponse "Checkout session"
// @Failure 400 {object} response.ErrorResponse "Malformed JSON or non-purchasable plan"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /subscription/upgrade [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.upgrade"

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

	var req models.DummyUpgrade
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

	checkout, err := h.service.InitializeUpgrade(r.Context(), userUID, req)
	if err != nil {
		log.Error("failed to initialize upgrade", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to initialize upgrade"))
		return
	}

	log.Info("upgrade initialized",
		slog.String("plan", checkout.Plan),
		slog.String("reference", checkout.Reference))
	render.JSON(w, r, response.OKWithData(checkout))
}
