// Package validateusage implements the HTTP handler that audits the user's
// usage counters against the actual row counts and, when asked, repairs the
// drift in place.
package validateusage

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ValidateConsistency(ctx context.Context, userUID string) (*models.ConsistencyReport, error)
	Reconcile(ctx context.Context, userUID string) (*models.ConsistencyReport, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Validate usage counters
// @Description Compares tracked counters with actual row counts; ?reconcile=true also repairs drift
// @Tags Subscription
// @Security BearerAuth
// @Produce json
// @Param reconcile query bool false "Repair drifted counters" default(false)
// @Success 200 {object} response.OKResponse "Consistency report"
// @Router /subscription/usage/validate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.validateusage"

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

	var (
		report *models.ConsistencyReport
		err    error
	)
	if r.URL.Query().Get("reconcile") == "true" {
		report, err = h.service.Reconcile(r.Context(), userUID)
	} else {
		report, err = h.service.ValidateConsistency(r.Context(), userUID)
	}
	if err != nil {
		log.Error("failed to validate usage", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to validate usage"))
		return
	}

	render.JSON(w, r, response.OKWithData(report))
}
