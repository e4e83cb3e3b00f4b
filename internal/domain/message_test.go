package domain_test

import (
	"testing"

	"github.com/advisio/messaging-core/internal/domain"
)

func validEmail() domain.EmailMessage {
	return domain.EmailMessage{
		To:      "client@example.com",
		From:    "office@advisio.example",
		ReplyTo: "Reception <reception@advisio.example>",
		Subject: "Your appointment",
		HTML:    "<p>See you soon.</p>",
	}
}

func TestEmailMessage_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*domain.EmailMessage)
		expectedErr error
	}{
		{"valid", func(*domain.EmailMessage) {}, nil},
		{"missing to", func(m *domain.EmailMessage) { m.To = "" }, domain.ErrMissingRecipient},
		{"missing from", func(m *domain.EmailMessage) { m.From = "" }, domain.ErrMissingSender},
		{"missing subject", func(m *domain.EmailMessage) { m.Subject = "" }, domain.ErrMissingSubject},
		{"missing html", func(m *domain.EmailMessage) { m.HTML = "" }, domain.ErrMissingBody},
		{"bad replyTo", func(m *domain.EmailMessage) { m.ReplyTo = "not-an-address" }, domain.ErrInvalidReplyTo},
		{"empty replyTo allowed", func(m *domain.EmailMessage) { m.ReplyTo = "" }, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := validEmail()
			tc.mutate(&m)
			if err := m.Validate(); err != tc.expectedErr {
				t.Fatalf("expected %v, got %v", tc.expectedErr, err)
			}
		})
	}
}

func TestSMSMessage_Validate(t *testing.T) {
	ok := domain.SMSMessage{To: "+15551234567", Message: "Reminder"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noTarget := domain.SMSMessage{Message: "Reminder"}
	if err := noTarget.Validate(); err != domain.ErrMissingSMSTarget {
		t.Fatalf("expected ErrMissingSMSTarget, got %v", err)
	}

	noBody := domain.SMSMessage{To: "+15551234567"}
	if err := noBody.Validate(); err != domain.ErrMissingSMSBody {
		t.Fatalf("expected ErrMissingSMSBody, got %v", err)
	}
}

func TestParsePaymentEvent_Variants(t *testing.T) {
	body := []byte(`{
		"id": "evt_1",
		"type": "charge.updated",
		"data": {"object": {
			"id": "ch_1",
			"payment_intent": "pi_123",
			"receipt_url": "https://pay.example/r/1",
			"metadata": {"paymentType": "appointment", "itemNo": "#123", "recipientEmail": "a@b.com"},
			"payment_method_details": {"card": {"brand": "visa", "last4": "4242"}}
		}}
	}`)

	ev, err := domain.ParsePaymentEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cu, ok := ev.(domain.ChargeUpdated)
	if !ok {
		t.Fatalf("expected ChargeUpdated, got %T", ev)
	}
	if cu.IntentID != "pi_123" {
		t.Fatalf("expected intent pi_123, got %s", cu.IntentID)
	}
	if cu.CardBrand != "visa" || cu.CardLast4 != "4242" {
		t.Fatalf("unexpected card details: %s %s", cu.CardBrand, cu.CardLast4)
	}
	if cu.Meta.ItemNo != "#123" || cu.Meta.RecipientEmail != "a@b.com" {
		t.Fatalf("unexpected metadata: %+v", cu.Meta)
	}
}

func TestParsePaymentEvent_UnknownType(t *testing.T) {
	ev, err := domain.ParsePaymentEvent([]byte(`{"type": "charge.refunded", "data": {"object": {"id": "ch_9"}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unknown, ok := ev.(domain.UnknownPaymentEvent)
	if !ok {
		t.Fatalf("expected UnknownPaymentEvent, got %T", ev)
	}
	if unknown.Type != "charge.refunded" {
		t.Fatalf("unexpected type: %s", unknown.Type)
	}
}

func TestParseSchedulingEvent_InviteeCreated(t *testing.T) {
	body := []byte(`{
		"event": "invitee.created",
		"payload": {
			"email": "guest@example.com",
			"name": "Guest",
			"uri": "https://api.sched.example/invitees/AAA",
			"cancel_url": "https://sched.example/cancel/AAA",
			"timezone": "Europe/Istanbul",
			"tracking": {"utm_content": "corr-42"},
			"guests": [{"email": "plusone@example.com"}],
			"questions_and_answers": [{"question": "Topic?", "answer": "Taxes"}],
			"scheduled_event": {
				"start_time": "2026-09-10T09:00:00Z",
				"end_time": "2026-09-10T10:00:00Z"
			}
		}
	}`)

	ev, err := domain.ParseSchedulingEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	created, ok := ev.(domain.InviteeCreated)
	if !ok {
		t.Fatalf("expected InviteeCreated, got %T", ev)
	}
	if created.TrackingID != "corr-42" {
		t.Fatalf("expected tracking corr-42, got %s", created.TrackingID)
	}
	if len(created.Guests) != 1 || created.Guests[0] != "plusone@example.com" {
		t.Fatalf("unexpected guests: %v", created.Guests)
	}
	if len(created.Questions) != 1 || created.Questions[0].Answer != "Taxes" {
		t.Fatalf("unexpected questions: %v", created.Questions)
	}
}

func TestParseSchedulingEvent_UnknownType(t *testing.T) {
	ev, err := domain.ParseSchedulingEvent([]byte(`{"event": "routing_form_submission.created", "payload": {}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ev.(domain.UnknownSchedulingEvent); !ok {
		t.Fatalf("expected UnknownSchedulingEvent, got %T", ev)
	}
}
