// Package usagestats implements the HTTP handler reporting the current
// cycle's feature counters against their plan limits.
package usagestats

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
	Current(ctx context.Context, userUID string) ([]*models.FeatureUsage, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get current cycle usage
// @Tags Subscription
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.OKResponse "Usage counters"
// @Router /subscription/usage [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.usagestats"

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

	counters, err := h.service.Current(r.Context(), userUID)
	if err != nil {
		log.Error("failed to get usage", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get usage"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{"usage": counters}))
}
