// Package plans implements the HTTP handler for the public tier catalogue.
package plans

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/models"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ListPlans(ctx context.Context) []models.Plan
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List subscription plans
// @Tags Subscription
// @Produce json
// @Success 200 {object} response.OKResponse "Plan catalogue"
// @Router /subscription/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"plans": h.service.ListPlans(r.Context()),
	}))
}
