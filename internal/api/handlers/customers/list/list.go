// Package list implements the HTTP handler for listing customers.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

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
	List(ctx context.Context, userUID string, limit, offset int) ([]*models.Customer, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List customers
// @Tags Customers
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} response.OKResponse "Customer page"
// @Router /customers [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.customers.list"

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

	limit, offset := pagination(r)
	customers, err := h.service.List(r.Context(), userUID, limit, offset)
	if err != nil {
		log.Error("failed to list customers", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to list customers"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"customers": customers,
		"count":     len(customers),
	}))
}

func pagination(r *http.Request) (limit, offset int) {
	limit, offset = 20, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
