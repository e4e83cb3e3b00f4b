package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/advisio/messaging-core/internal/api/middleware"
	"github.com/advisio/messaging-core/internal/domain"
)

// EmailEnqueuer accepts validated email for asynchronous delivery.
type EmailEnqueuer interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// SMSEnqueuer accepts validated SMS for asynchronous delivery.
type SMSEnqueuer interface {
	Send(ctx context.Context, msg domain.SMSMessage) error
}

// MessageHandler exposes the enqueue endpoints used by the back-office
// application. A 202 means the broker holds the message durably, not that
// it was delivered.
type MessageHandler struct {
	email  EmailEnqueuer
	sms    SMSEnqueuer
	logger *zap.Logger
}

func NewMessageHandler(email EmailEnqueuer, sms SMSEnqueuer, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{email: email, sms: sms, logger: logger}
}

// SendEmail handles POST /api/v1/messages/email
//
// @Summary  Enqueue an email
// @Tags     messages
// @Accept   json
// @Produce  json
// @Param    body  body      domain.EmailMessage  true  "Email payload"
// @Success  202   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/messages/email [post]
func (h *MessageHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var msg domain.EmailMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.email.Send(r.Context(), msg); err != nil {
		h.logger.Warn("email enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// SendSMS handles POST /api/v1/messages/sms
//
// @Summary  Enqueue an SMS
// @Tags     messages
// @Accept   json
// @Produce  json
// @Param    body  body      domain.SMSMessage  true  "SMS payload"
// @Success  202   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/messages/sms [post]
func (h *MessageHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var msg domain.SMSMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.sms.Send(r.Context(), msg); err != nil {
		h.logger.Warn("sms enqueue failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}
