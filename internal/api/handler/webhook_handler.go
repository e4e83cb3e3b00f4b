package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// EventRelay is the slice of the event publisher the webhook handlers use:
// verified provider payloads are forwarded to the broker untouched.
type EventRelay interface {
	RelayPaymentEvent(ctx context.Context, body []byte) error
	RelaySchedulingEvent(ctx context.Context, body []byte) error
}

// WebhookHandler receives provider callbacks and relays the raw payload
// onto the matching queue. Processing happens asynchronously in the
// consumers; the HTTP path only authenticates and enqueues. The payment
// provider signs its events; the scheduling provider delivers plain JSON.
type WebhookHandler struct {
	relay         EventRelay
	paymentSecret string
	now           func() time.Time
	logger        *zap.Logger
}

func NewWebhookHandler(relay EventRelay, paymentSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		relay:         relay,
		paymentSecret: paymentSecret,
		now:           time.Now,
		logger:        logger,
	}
}

// Payment handles POST /webhooks/payments
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	if err := verifySignature(h.paymentSecret, r.Header.Get("Stripe-Signature"), body, h.now()); err != nil {
		h.logger.Warn("payment webhook signature rejected", zap.Error(err))
		mapError(w, err)
		return
	}

	h.enqueue(w, r, body, h.relay.RelayPaymentEvent)
}

// Scheduling handles POST /webhooks/scheduling
func (h *WebhookHandler) Scheduling(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	h.enqueue(w, r, body, h.relay.RelaySchedulingEvent)
}

func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "could not read request body")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) enqueue(
	w http.ResponseWriter,
	r *http.Request,
	body []byte,
	relay func(context.Context, []byte) error,
) {
	if err := relay(r.Context(), body); err != nil {
		h.logger.Error("webhook relay failed",
			zap.String("path", r.URL.Path), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
