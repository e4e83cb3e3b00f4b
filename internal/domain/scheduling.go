package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// AppointmentStatus tracks the lifecycle of a booked appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCanceled  AppointmentStatus = "canceled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// QA is a single scheduling-form question and its answer.
type QA struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// Appointment is the booking record the reconciler keeps in sync with the
// external scheduling provider. EventURI is the provider's opaque event-URI
// fragment, stored at confirmation time; it is the matching key for later
// cancel and no-show events.
type Appointment struct {
	ID            string            `bson:"_id" json:"id"`
	ClientEmail   string            `bson:"client_email" json:"client_email"`
	ClientName    string            `bson:"client_name,omitempty" json:"client_name,omitempty"`
	Status        AppointmentStatus `bson:"status" json:"status"`
	StartTime     time.Time         `bson:"start_time" json:"start_time"`
	EndTime       time.Time         `bson:"end_time" json:"end_time"`
	Timezone      string            `bson:"timezone,omitempty" json:"timezone,omitempty"`
	EventURI      string            `bson:"event_uri,omitempty" json:"event_uri,omitempty"`
	CancelURL     string            `bson:"cancel_url,omitempty" json:"cancel_url,omitempty"`
	Guests        []string          `bson:"guests,omitempty" json:"guests,omitempty"`
	Notes         string            `bson:"notes,omitempty" json:"notes,omitempty"`
	Questions     []QA              `bson:"questions,omitempty" json:"questions,omitempty"`
	Rescheduled   bool              `bson:"rescheduled" json:"rescheduled"`
	NoShow        bool              `bson:"no_show" json:"no_show"`
	TransactionID string            `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updated_at"`
}

// SchedulingEvent is the closed set of scheduling webhook variants.
type SchedulingEvent interface {
	isSchedulingEvent()
}

type InviteeCreated struct {
	Email      string
	Name       string
	TrackingID string
	EventURI   string
	CancelURL  string
	StartTime  time.Time
	EndTime    time.Time
	Timezone   string
	Guests     []string
	Notes      string
	Questions  []QA
}

type InviteeCanceled struct {
	Email    string
	EventURI string
	Reason   string
}

type InviteeNoShow struct {
	EventURI string
}

type UnknownSchedulingEvent struct {
	Type string
}

func (InviteeCreated) isSchedulingEvent()         {}
func (InviteeCanceled) isSchedulingEvent()        {}
func (InviteeNoShow) isSchedulingEvent()          {}
func (UnknownSchedulingEvent) isSchedulingEvent() {}

// schedulingEnvelope mirrors the provider's webhook body: a type string plus
// an invitee payload.
type schedulingEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Email     string `json:"email"`
		Name      string `json:"name"`
		URI       string `json:"uri"`
		CancelURL string `json:"cancel_url"`
		Timezone  string `json:"timezone"`
		Tracking  struct {
			UTMContent string `json:"utm_content"`
		} `json:"tracking"`
		GuestsList []struct {
			Email string `json:"email"`
		} `json:"guests"`
		QuestionsAndAnswers []struct {
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"questions_and_answers"`
		Cancellation struct {
			Reason string `json:"reason"`
		} `json:"cancellation"`
		ScheduledEvent struct {
			StartTime time.Time `json:"start_time"`
			EndTime   time.Time `json:"end_time"`
			Notes     string    `json:"notes,omitempty"`
		} `json:"scheduled_event"`
	} `json:"payload"`
}

// ParseSchedulingEvent decodes a relayed scheduling webhook into its variant.
func ParseSchedulingEvent(body []byte) (SchedulingEvent, error) {
	var env schedulingEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	p := env.Payload

	switch env.Event {
	case "invitee.created":
		guests := make([]string, 0, len(p.GuestsList))
		for _, g := range p.GuestsList {
			guests = append(guests, g.Email)
		}
		questions := make([]QA, 0, len(p.QuestionsAndAnswers))
		for _, qa := range p.QuestionsAndAnswers {
			questions = append(questions, QA{Question: qa.Question, Answer: qa.Answer})
		}
		return InviteeCreated{
			Email:      p.Email,
			Name:       p.Name,
			TrackingID: p.Tracking.UTMContent,
			EventURI:   p.URI,
			CancelURL:  p.CancelURL,
			StartTime:  p.ScheduledEvent.StartTime,
			EndTime:    p.ScheduledEvent.EndTime,
			Timezone:   p.Timezone,
			Guests:     guests,
			Notes:      p.ScheduledEvent.Notes,
			Questions:  questions,
		}, nil
	case "invitee.canceled":
		return InviteeCanceled{
			Email:    p.Email,
			EventURI: p.URI,
			Reason:   p.Cancellation.Reason,
		}, nil
	case "invitee_no_show.created":
		return InviteeNoShow{EventURI: p.URI}, nil
	default:
		return UnknownSchedulingEvent{Type: env.Event}, nil
	}
}
