// Package search implements the HTTP handler for global entity search.
package search

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

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
	Search(ctx context.Context, userUID, query string, limit int) (*models.SearchResults, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Search customers, products and invoices
// @Tags Analytics
// @Security BearerAuth
// @Produce json
// @Param q query string true "Query string"
// @Param limit query int false "Max matches per entity" default(10)
// @Success 200 {object} response.OKResponse "Search results"
// @Failure 400 {object} response.ErrorResponse "Empty query"
// @Router /search [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.search"

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

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("query parameter q is required"))
		return
	}

	limit := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 50 {
		limit = v
	}

	results, err := h.service.Search(r.Context(), userUID, query, limit)
	if err != nil {
		log.Error("search failed", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("search failed"))
		return
	}

	render.JSON(w, r, response.OKWithData(results))
}
