package domain

import "errors"

// Sentinel errors used throughout the application.
// HTTP handlers translate these via a single mapError function; the queue
// consumer boundary decides ack/retry/dead-letter from them.
var (
	ErrNotFound         = errors.New("not found")
	ErrMissingRecipient = errors.New("email requires a non-empty to address")
	ErrMissingSender    = errors.New("email requires a non-empty from address")
	ErrMissingSubject   = errors.New("email requires a non-empty subject")
	ErrMissingBody      = errors.New("email requires a non-empty html body")
	ErrInvalidReplyTo   = errors.New("email replyTo is not a valid address")
	ErrMissingSMSTarget = errors.New("sms requires a non-empty to number")
	ErrMissingSMSBody   = errors.New("sms requires a non-empty message")
	ErrInvalidPayload   = errors.New("message payload could not be decoded")
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrStaleSignature   = errors.New("webhook signature timestamp outside tolerance")

	// ErrRecordPending marks the "record not yet created" case seen when
	// events arrive out of order. The consumer treats it as transient and
	// retries instead of dead-lettering immediately.
	ErrRecordPending = errors.New("referenced record does not exist yet")
)
