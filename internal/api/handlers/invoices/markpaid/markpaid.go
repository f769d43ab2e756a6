// Package markpaid implements the HTTP handler for settling an invoice.
package markpaid

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/middlewarectx"
	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/lib/sl"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	MarkPaid(ctx context.Context, userUID string, id int) (int, error)
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Mark an invoice paid
// @Tags Invoices
// @Security BearerAuth
// @Produce json
// @Param id path int true "Invoice ID"
// @Success 200 {object} response.OKResponse "Update count"
// @Failure 404 {object} response.ErrorResponse "Not found"
// @Router /invoices/{id}/pay [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoices.markpaid"

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

	count, err := h.service.MarkPaid(r.Context(), userUID, id)
	if err != nil {
		log.Error("failed to mark invoice paid", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to mark invoice paid"))
		return
	}
	if count == 0 {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, response.Error("invoice not found"))
		return
	}

	log.Info("invoice marked paid", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{"updated": count}))
}
