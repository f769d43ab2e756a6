// Package health implements the liveness endpoint. The report names the
// active storage backend so operators can tell a memory-mode instance from
// a database-backed one at a glance.
package health

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/bizflowhq/bizflow-backend/internal/api/response"
	"github.com/bizflowhq/bizflow-backend/internal/storage"
)

type Handler struct {
	log   *slog.Logger
	store storage.Store
}

func New(log *slog.Logger, store storage.Store) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// ServeHTTP godoc
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} response.OKResponse "Service is up"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":  "ok",
		"storage": h.store.Mode(),
	}))
}
