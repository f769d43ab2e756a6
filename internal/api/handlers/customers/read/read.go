// Package read implements the HTTP handler for fetching one customer.
package read

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
	"github.com/bizflowhq/bizflow-backend/internal/models"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Read(ctx context.Context, userUID string, id int) (*models.Customer, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get one customer
// @Tags Customers
// @Security BearerAuth
// @Produce json
// @Param id path int true "Customer ID"
// @Success 200 {object} response.OKResponse "Customer"
// @Failure 404 {object} response.ErrorResponse "Not found"
// @Router /customers/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.customers.read"

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

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid id"))
		return
	}

	customer, err := h.service.Read(r.Context(), userUID, id)
	if errors.Is(err, storage.ErrNotFound) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("customer not found"))
		return
	}
	if err != nil {
		log.Error("failed to read customer", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to read customer"))
		return
	}

	render.JSON(w, r, response.OKWithData(customer))
}
