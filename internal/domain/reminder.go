package domain

import "time"

// ReminderRequest asks the delayed scheduler to queue pre-appointment
// reminder jobs relative to the appointment start time.
type ReminderRequest struct {
	AppointmentID   string    `json:"appointmentId"`
	Email           string    `json:"email"`
	AppointmentTime time.Time `json:"appointmentTime"`
}
