package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/presence"
)

// PresenceHandler lets the realtime gateway report connection lifecycle for
// its users. The chat persister reads the resulting online set to decide
// whether a stored message is already delivered.
type PresenceHandler struct {
	tracker *presence.Tracker
	logger  *zap.Logger
}

func NewPresenceHandler(tracker *presence.Tracker, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{tracker: tracker, logger: logger}
}

// Connect handles PUT /api/v1/presence/{userID}
//
// @Summary  Mark a user as connected
// @Tags     presence
// @Success  204
// @Router   /api/v1/presence/{userID} [put]
func (h *PresenceHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusUnprocessableEntity, "userID is required")
		return
	}
	h.tracker.Connect(userID)
	w.WriteHeader(http.StatusNoContent)
}

// Disconnect handles DELETE /api/v1/presence/{userID}
//
// @Summary  Mark a user connection as closed
// @Tags     presence
// @Success  204
// @Router   /api/v1/presence/{userID} [delete]
func (h *PresenceHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusUnprocessableEntity, "userID is required")
		return
	}
	h.tracker.Disconnect(userID)
	w.WriteHeader(http.StatusNoContent)
}

// Online handles GET /api/v1/presence
//
// @Summary  List currently connected user ids
// @Tags     presence
// @Produce  json
// @Success  200  {object}  map[string][]string
// @Router   /api/v1/presence [get]
func (h *PresenceHandler) Online(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{"online": h.tracker.Online()})
}
