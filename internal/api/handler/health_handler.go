package handler

import (
	"net/http"

	"github.com/advisio/messaging-core/internal/broker"
)

// HealthHandler serves the liveness probe endpoint. The probe stays 200
// while the broker reconnect loop is running: a lost connection degrades
// delivery but does not make the process unhealthy.
type HealthHandler struct {
	conn *broker.Connection
}

func NewHealthHandler(conn *broker.Connection) *HealthHandler {
	return &HealthHandler{conn: conn}
}

// Health handles GET /health
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"broker": string(h.conn.State()),
	})
}
