package repository

import (
	"context"

	"resaleo/internal/domain/entity"
)

type ChatRepository interface {
	// Create persists a new chat. Implementations must fail with a Conflict
	// error when a chat with the same id already exists, so concurrent
	// first-contact attempts surface as a retryable conflict instead of a
	// duplicate document.
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// GetByListingAndParticipants looks up the chat for a listing and an
	// unordered participant pair.
	GetByListingAndParticipants(ctx context.Context, listingID, userA, userB string) (*entity.Chat, error)
	// ListByUserID returns all chats containing userID, most recent
	// conversation first (lastMessageAt descending).
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error)
	// Delete removes a chat and all of its messages (moderation only).
	Delete(ctx context.Context, id string) error

	// CreateMessage persists a message, assigns its per-chat sequence number
	// and updates the parent chat's lastMessage/lastMessageAt in one atomic
	// unit.
	CreateMessage(ctx context.Context, message *entity.Message) error
	// ListMessagesByChat returns a chat's messages ordered by createdAt
	// ascending, sequence number as tie-break.
	ListMessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error)
	// MarkMessagesRead adds readerID to readBy of every message in the chat
	// not sent by readerID and not already read by them. Idempotent.
	MarkMessagesRead(ctx context.Context, chatID, readerID string) error
}
