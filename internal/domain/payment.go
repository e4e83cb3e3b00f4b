package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// TransactionStatus tracks the lifecycle of a payment transaction.
type TransactionStatus string

const (
	TransactionCreated    TransactionStatus = "created"
	TransactionInProgress TransactionStatus = "in_progress"
	TransactionSuccessful TransactionStatus = "successful"
	TransactionCanceled   TransactionStatus = "canceled"
)

// PaymentKind distinguishes what a payment was taken for.
type PaymentKind string

const (
	PaymentForAppointment PaymentKind = "appointment"
	PaymentForApplication PaymentKind = "application"
)

// Transaction is the payment record this core maintains in the document
// store. It is keyed by the provider's payment-intent id so every handler
// can re-apply its update idempotently.
type Transaction struct {
	ID            string            `bson:"_id" json:"id"`
	IntentID      string            `bson:"intent_id" json:"intent_id"`
	Status        TransactionStatus `bson:"status" json:"status"`
	Amount        int64             `bson:"amount" json:"amount"`
	Currency      string            `bson:"currency" json:"currency"`
	Kind          PaymentKind       `bson:"kind" json:"kind"`
	ItemNo        string            `bson:"item_no" json:"item_no"`
	AppointmentID string            `bson:"appointment_id,omitempty" json:"appointment_id,omitempty"`
	ApplicationID string            `bson:"application_id,omitempty" json:"application_id,omitempty"`
	CardBrand     string            `bson:"card_brand,omitempty" json:"card_brand,omitempty"`
	CardLast4     string            `bson:"card_last4,omitempty" json:"card_last4,omitempty"`
	ReceiptURL    string            `bson:"receipt_url,omitempty" json:"receipt_url,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updated_at"`
}

// PaymentMetadata is the caller-supplied metadata attached to an intent when
// the synchronous path starts a payment. It round-trips through the provider
// untouched and tells the processor what the money was for.
type PaymentMetadata struct {
	Kind           PaymentKind `json:"paymentType"`
	ItemNo         string      `json:"itemNo"`
	RecipientEmail string      `json:"recipientEmail"`
	AppointmentID  string      `json:"appointmentId,omitempty"`
	ApplicationID  string      `json:"applicationId,omitempty"`
	// RFC 3339 start time of the appointment being paid for, when Kind is
	// appointment. Used to schedule deferred reminders.
	AppointmentTime string `json:"appointmentTime,omitempty"`
}

// PaymentEvent is the closed set of payment webhook variants. Processing is
// an exhaustive type switch, so a new variant that is not handled fails to
// compile rather than falling into a silent default.
type PaymentEvent interface {
	isPaymentEvent()
	// EventIntentID returns the payment-intent id the event refers to;
	// together with the concrete type it forms the event's idempotency key.
	EventIntentID() string
}

type PaymentIntentCreated struct {
	IntentID string
	Amount   int64
	Currency string
	Meta     PaymentMetadata
}

type PaymentIntentSucceeded struct {
	IntentID string
}

type ChargeSucceeded struct {
	IntentID string
	Meta     PaymentMetadata
}

type ChargeUpdated struct {
	IntentID   string
	CardBrand  string
	CardLast4  string
	ReceiptURL string
	Meta       PaymentMetadata
}

type PaymentIntentCanceled struct {
	IntentID string
}

// UnknownPaymentEvent preserves forward compatibility: unrecognised event
// types are logged and acknowledged as a no-op, never a failure.
type UnknownPaymentEvent struct {
	Type string
}

func (PaymentIntentCreated) isPaymentEvent()   {}
func (PaymentIntentSucceeded) isPaymentEvent() {}
func (ChargeSucceeded) isPaymentEvent()        {}
func (ChargeUpdated) isPaymentEvent()          {}
func (PaymentIntentCanceled) isPaymentEvent()  {}
func (UnknownPaymentEvent) isPaymentEvent()    {}

func (e PaymentIntentCreated) EventIntentID() string   { return e.IntentID }
func (e PaymentIntentSucceeded) EventIntentID() string { return e.IntentID }
func (e ChargeSucceeded) EventIntentID() string        { return e.IntentID }
func (e ChargeUpdated) EventIntentID() string          { return e.IntentID }
func (e PaymentIntentCanceled) EventIntentID() string  { return e.IntentID }
func (UnknownPaymentEvent) EventIntentID() string      { return "" }

// paymentEnvelope mirrors the provider's signed event body.
type paymentEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object paymentObject `json:"object"`
	} `json:"data"`
}

type paymentObject struct {
	ID            string          `json:"id"`
	PaymentIntent string          `json:"payment_intent"`
	Amount        int64           `json:"amount"`
	Currency      string          `json:"currency"`
	ReceiptURL    string          `json:"receipt_url"`
	Metadata      PaymentMetadata `json:"metadata"`

	PaymentMethodDetails struct {
		Card struct {
			Brand string `json:"brand"`
			Last4 string `json:"last4"`
		} `json:"card"`
	} `json:"payment_method_details"`
}

// intentID resolves the payment-intent id regardless of whether the event
// object is the intent itself or a charge referencing one.
func (o *paymentObject) intentID() string {
	if o.PaymentIntent != "" {
		return o.PaymentIntent
	}
	return o.ID
}

// ParsePaymentEvent decodes a raw provider event body into its variant.
func ParsePaymentEvent(body []byte) (PaymentEvent, error) {
	var env paymentEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	obj := env.Data.Object

	switch env.Type {
	case "payment_intent.created":
		return PaymentIntentCreated{
			IntentID: obj.intentID(),
			Amount:   obj.Amount,
			Currency: obj.Currency,
			Meta:     obj.Metadata,
		}, nil
	case "payment_intent.succeeded":
		return PaymentIntentSucceeded{IntentID: obj.intentID()}, nil
	case "charge.succeeded":
		return ChargeSucceeded{IntentID: obj.intentID(), Meta: obj.Metadata}, nil
	case "charge.updated":
		return ChargeUpdated{
			IntentID:   obj.intentID(),
			CardBrand:  obj.PaymentMethodDetails.Card.Brand,
			CardLast4:  obj.PaymentMethodDetails.Card.Last4,
			ReceiptURL: obj.ReceiptURL,
			Meta:       obj.Metadata,
		}, nil
	case "payment_intent.canceled":
		return PaymentIntentCanceled{IntentID: obj.intentID()}, nil
	default:
		return UnknownPaymentEvent{Type: env.Type}, nil
	}
}
