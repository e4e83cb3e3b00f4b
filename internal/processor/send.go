package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/transport"
)

// MailSender consumes the email queue and hands messages to the mail
// transport. Delivery is at-least-once; a duplicate email after redelivery
// is a tolerated cost.
type MailSender struct {
	mailer transport.Mailer
	logger *zap.Logger
}

func NewMailSender(mailer transport.Mailer, logger *zap.Logger) *MailSender {
	return &MailSender{mailer: mailer, logger: logger}
}

func (s *MailSender) Process(ctx context.Context, body []byte) error {
	var msg domain.EmailMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	// The producer validates before enqueue, but messages can also be
	// replayed from the DLQ by an operator; re-check here.
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := s.mailer.SendMail(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("email delivered", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// SMSSender consumes the sms queue and hands messages to the SMS transport.
type SMSSender struct {
	sender transport.SMSSender
	logger *zap.Logger
}

func NewSMSSender(sender transport.SMSSender, logger *zap.Logger) *SMSSender {
	return &SMSSender{sender: sender, logger: logger}
}

func (s *SMSSender) Process(ctx context.Context, body []byte) error {
	var msg domain.SMSMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := s.sender.SendSMS(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("sms delivered", zap.String("to", msg.To))
	return nil
}
