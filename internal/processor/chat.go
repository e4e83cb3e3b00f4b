package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/presence"
	"github.com/advisio/messaging-core/internal/repository"
)

// ChatPersister inserts chat messages exactly once despite at-least-once
// delivery: the message id chosen by the realtime layer is checked against
// the store before insert.
type ChatPersister struct {
	chats   repository.ChatRepository
	tracker *presence.Tracker
	logger  *zap.Logger
}

func NewChatPersister(chats repository.ChatRepository, tracker *presence.Tracker, logger *zap.Logger) *ChatPersister {
	return &ChatPersister{chats: chats, tracker: tracker, logger: logger}
}

func (p *ChatPersister) Process(ctx context.Context, body []byte) error {
	var msg domain.ChatMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if msg.MessageID == "" {
		return fmt.Errorf("%w: chat message without messageId", domain.ErrInvalidPayload)
	}

	exists, err := p.chats.MessageExists(ctx, msg.MessageID)
	if err != nil {
		return err
	}
	if exists {
		p.logger.Debug("duplicate chat message skipped", zap.String("message_id", msg.MessageID))
		return nil
	}

	msg.Delivered = p.tracker.IsOnline(msg.RecipientID)
	return p.chats.InsertMessage(ctx, &msg)
}

// ReadReceiptUpdater marks every message in a conversation read for the
// reader. A bulk set is naturally idempotent, so no duplicate check needed.
type ReadReceiptUpdater struct {
	chats  repository.ChatRepository
	logger *zap.Logger
}

func NewReadReceiptUpdater(chats repository.ChatRepository, logger *zap.Logger) *ReadReceiptUpdater {
	return &ReadReceiptUpdater{chats: chats, logger: logger}
}

func (u *ReadReceiptUpdater) Process(ctx context.Context, body []byte) error {
	var seen domain.ChatSeen
	if err := json.Unmarshal(body, &seen); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if seen.ConversationID == "" || seen.ReaderID == "" {
		return fmt.Errorf("%w: chat-seen requires conversationId and readerId", domain.ErrInvalidPayload)
	}

	n, err := u.chats.MarkConversationRead(ctx, seen.ConversationID, seen.ReaderID)
	if err != nil {
		return err
	}
	u.logger.Debug("conversation marked read",
		zap.String("conversation_id", seen.ConversationID), zap.Int64("messages", n))
	return nil
}
