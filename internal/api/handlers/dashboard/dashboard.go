// Package dashboard implements the HTTP handler for the aggregated metrics
// view. Results come from the analytics service, which caches per user,
// period and day.
package dashboard

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
	"github.com/bizflowhq/bizflow-backend/internal/services/analytics"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Dashboard(ctx context.Context, userUID, period string) (*models.DashboardMetrics, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Dashboard metrics
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param period query string false "today, week, month or year" default(month)
// @Success 200 {object} response.OKResponse "Aggregated metrics"
// @Failure 400 {object} response.ErrorResponse "Unknown period"
// @Router /dashboard [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.dashboard"

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

	period := r.URL.Query().Get("period")
	if period == "" {
		period = analytics.PeriodMonth
	}

	metrics, err := h.service.Dashboard(r.Context(), userUID, period)
	if err != nil {
		log.Error("failed to build dashboard", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to build dashboard"))
		return
	}

	render.JSON(w, r, response.OKWithData(metrics))
}
