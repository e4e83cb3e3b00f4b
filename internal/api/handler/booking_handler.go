package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/advisio/messaging-core/internal/api/middleware"
	"github.com/advisio/messaging-core/internal/markers"
)

// BookingRegistrar records that an appointment awaits confirmation from the
// scheduling provider, keyed by the tracking id the booking flow embedded
// in the provider link.
type BookingRegistrar interface {
	Put(key string, value markers.PendingBooking)
}

// pendingBookingRequest correlates a just-created appointment with the
// invitee.created webhook that will arrive for it.
type pendingBookingRequest struct {
	TrackingID    string `json:"trackingId"`
	AppointmentID string `json:"appointmentId"`
}

// BookingHandler exposes the registration endpoint the booking flow calls
// right after creating an appointment record, before redirecting the client
// to the scheduling provider.
type BookingHandler struct {
	pending BookingRegistrar
	logger  *zap.Logger
}

func NewBookingHandler(pending BookingRegistrar, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{pending: pending, logger: logger}
}

// RegisterPending handles POST /api/v1/bookings/pending
//
// @Summary  Register a pending booking correlation
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    body  body      pendingBookingRequest  true  "Correlation ids"
// @Success  201   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/bookings/pending [post]
func (h *BookingHandler) RegisterPending(w http.ResponseWriter, r *http.Request) {
	var req pendingBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.TrackingID == "" || req.AppointmentID == "" {
		respondError(w, http.StatusUnprocessableEntity, "trackingId and appointmentId are required")
		return
	}

	h.pending.Put(req.TrackingID, markers.PendingBooking{AppointmentID: req.AppointmentID})

	h.logger.Info("pending booking registered",
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.String("tracking_id", req.TrackingID),
		zap.String("appointment_id", req.AppointmentID),
	)
	respondJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}
