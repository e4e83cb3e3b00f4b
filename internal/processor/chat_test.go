package processor_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/advisio/messaging-core/internal/domain"
	"github.com/advisio/messaging-core/internal/presence"
	"github.com/advisio/messaging-core/internal/processor"
	"github.com/advisio/messaging-core/internal/repository"
)

const chatMessageBody = `{
	"messageId": "msg-1",
	"conversationId": "conv-1",
	"senderId": "u-1",
	"recipientId": "u-2",
	"body": "hello"
}`

func TestChatPersister_Insert(t *testing.T) {
	chats := repository.NewMockChatRepository()
	tracker := presence.NewTracker()
	p := processor.NewChatPersister(chats, tracker, zap.NewNop())

	if err := p.Process(context.Background(), []byte(chatMessageBody)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, ok := chats.Get("msg-1")
	if !ok {
		t.Fatal("message not stored")
	}
	if msg.Delivered {
		t.Fatal("recipient offline, delivered must be false")
	}
}

func TestChatPersister_DeliveredWhenRecipientOnline(t *testing.T) {
	chats := repository.NewMockChatRepository()
	tracker := presence.NewTracker()
	tracker.Connect("u-2")
	p := processor.NewChatPersister(chats, tracker, zap.NewNop())

	if err := p.Process(context.Background(), []byte(chatMessageBody)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, _ := chats.Get("msg-1")
	if !msg.Delivered {
		t.Fatal("recipient online, delivered must be true")
	}
}

func TestChatPersister_DuplicateMessageSkipped(t *testing.T) {
	chats := repository.NewMockChatRepository()
	p := processor.NewChatPersister(chats, presence.NewTracker(), zap.NewNop())

	if err := p.Process(context.Background(), []byte(chatMessageBody)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := p.Process(context.Background(), []byte(chatMessageBody)); err != nil {
		t.Fatalf("redelivery must be acknowledged, got %v", err)
	}
	if chats.Count() != 1 {
		t.Fatalf("expected one stored message, got %d", chats.Count())
	}
}

func TestChatPersister_RejectsMissingMessageID(t *testing.T) {
	chats := repository.NewMockChatRepository()
	p := processor.NewChatPersister(chats, presence.NewTracker(), zap.NewNop())

	err := p.Process(context.Background(), []byte(`{"conversationId": "conv-1", "body": "x"}`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestReadReceiptUpdater(t *testing.T) {
	chats := repository.NewMockChatRepository()
	_ = chats.InsertMessage(context.Background(), &domain.ChatMessage{
		MessageID: "msg-1", ConversationID: "conv-1", RecipientID: "u-2",
	})
	_ = chats.InsertMessage(context.Background(), &domain.ChatMessage{
		MessageID: "msg-2", ConversationID: "conv-1", RecipientID: "u-2",
	})
	_ = chats.InsertMessage(context.Background(), &domain.ChatMessage{
		MessageID: "msg-3", ConversationID: "other", RecipientID: "u-2",
	})

	u := processor.NewReadReceiptUpdater(chats, zap.NewNop())
	body := []byte(`{"conversationId": "conv-1", "readerId": "u-2"}`)
	if err := u.Process(context.Background(), body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, id := range []string{"msg-1", "msg-2"} {
		msg, _ := chats.Get(id)
		if !msg.Read {
			t.Fatalf("%s must be read", id)
		}
	}
	if msg, _ := chats.Get("msg-3"); msg.Read {
		t.Fatal("other conversation must be untouched")
	}

	// Redelivery of the same receipt is a no-op.
	if err := u.Process(context.Background(), body); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
}

func TestReadReceiptUpdater_RejectsMissingIDs(t *testing.T) {
	u := processor.NewReadReceiptUpdater(repository.NewMockChatRepository(), zap.NewNop())

	err := u.Process(context.Background(), []byte(`{"conversationId": "conv-1"}`))
	if !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
