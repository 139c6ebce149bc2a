package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether the storage backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

type HealthHandler struct {
	backend string
	store   Pinger
}

func NewHealthHandler(backend string, store Pinger) *HealthHandler {
	return &HealthHandler{backend: backend, store: store}
}

// Health answers 200 when the store responds and 503 otherwise.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Backend: h.backend, Error: "store unreachable"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Backend: h.backend})
}
