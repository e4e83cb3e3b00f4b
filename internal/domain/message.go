package domain

import "net/mail"

// Queue is a well-known durable queue name. The full set is declared by the
// broker connection manager at startup; producers and consumers refer to
// queues only through these constants.
type Queue string

const (
	QueueEmail            Queue = "email"
	QueueSMS              Queue = "sms"
	QueuePaymentEvents    Queue = "payment-events"
	QueueSchedulingEvents Queue = "scheduling-events"
	QueueChatMessages     Queue = "chat-messages"
	QueueChatSeen         Queue = "chat-seen"
	QueueDeadLetter       Queue = "dead-letter"
)

// Queues lists every queue except the DLQ, in declaration order.
func Queues() []Queue {
	return []Queue{
		QueueEmail,
		QueueSMS,
		QueuePaymentEvents,
		QueueSchedulingEvents,
		QueueChatMessages,
		QueueChatSeen,
	}
}

// EmailMessage is the payload carried on the email queue.
type EmailMessage struct {
	To      string `json:"to"`
	From    string `json:"from"`
	ReplyTo string `json:"replyTo,omitempty"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Validate enforces the email producer contract before a message is accepted
// onto the queue, so unprocessable work is rejected at the door instead of
// cycling through retries.
func (m *EmailMessage) Validate() error {
	if m.To == "" {
		return ErrMissingRecipient
	}
	if m.From == "" {
		return ErrMissingSender
	}
	if m.Subject == "" {
		return ErrMissingSubject
	}
	if m.HTML == "" {
		return ErrMissingBody
	}
	if m.ReplyTo != "" {
		if _, err := mail.ParseAddress(m.ReplyTo); err != nil {
			return ErrInvalidReplyTo
		}
	}
	return nil
}

// SMSMessage is the payload carried on the sms queue.
type SMSMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (m *SMSMessage) Validate() error {
	if m.To == "" {
		return ErrMissingSMSTarget
	}
	if m.Message == "" {
		return ErrMissingSMSBody
	}
	return nil
}
