package domain

import "time"

// ChatMessage is the payload carried on the chat-messages queue and the
// document persisted by the chat processor. MessageID is chosen by the
// realtime layer before publishing, so redelivered copies can be detected
// against the store and skipped.
type ChatMessage struct {
	MessageID      string    `bson:"_id" json:"messageId"`
	ConversationID string    `bson:"conversation_id" json:"conversationId"`
	SenderID       string    `bson:"sender_id" json:"senderId"`
	RecipientID    string    `bson:"recipient_id" json:"recipientId"`
	Body           string    `bson:"body" json:"body"`
	Delivered      bool      `bson:"delivered" json:"delivered"`
	Read           bool      `bson:"read" json:"read"`
	SentAt         time.Time `bson:"sent_at" json:"sentAt"`
}

// ChatSeen is the payload carried on the chat-seen queue: the reader has
// opened the conversation, so every message addressed to them is marked
// read. The update is a bulk set and therefore naturally idempotent.
type ChatSeen struct {
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
}
