package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/advisio/messaging-core/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrStaleSignature):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPayload):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrMissingRecipient),
		errors.Is(err, domain.ErrMissingSender),
		errors.Is(err, domain.ErrMissingSubject),
		errors.Is(err, domain.ErrMissingBody),
		errors.Is(err, domain.ErrInvalidReplyTo),
		errors.Is(err, domain.ErrMissingSMSTarget),
		errors.Is(err, domain.ErrMissingSMSBody):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
