package repository

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"resaleo/internal/domain/entity"
	"resaleo/internal/domain/repository"
	"resaleo/pkg/errors"
	"resaleo/pkg/logger"
)

// chatNamespace seeds deterministic chat ids so that both participants of a
// concurrent first contact compute the same document id.
var chatNamespace = uuid.MustParse("9f2c1af6-52f0-4d54-9e3b-7d80a1c7b9d4")

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

// ChatID derives the unique chat id for a listing and an unordered
// participant pair. The storage layer relies on this as a uniqueness
// constraint: two users racing to start the same conversation collide on the
// same document id instead of producing duplicates.
func ChatID(listingID, userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return uuid.NewSHA1(chatNamespace, []byte(listingID+"|"+strings.Join(pair, "|"))).String()
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = ChatID(chat.ListingID, chat.Participants[0], chat.Participants[1])
	}

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.client.Collection("chats").Doc(chat.ID).Create(ctx, chat)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat already exists for this listing and participants")
		}
		return errors.Internal("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) GetByListingAndParticipants(ctx context.Context, listingID, userA, userB string) (*entity.Chat, error) {
	return r.GetByID(ctx, ChatID(listingID, userA, userB))
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.Internal("Failed to fetch chats", err)
	}

	var chats []*entity.Chat
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		chats = append(chats, &chat)
	}

	return chats, nil
}

func (r *firestoreChatRepository) Delete(ctx context.Context, id string) error {
	chatRef := r.client.Collection("chats").Doc(id)

	// Cascade over the messages subcollection first.
	bw := r.client.BulkWriter(ctx)
	iter := chatRef.Collection("messages").Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate chat messages for delete", err)
		}
		if _, err := bw.Delete(doc.Ref); err != nil {
			return errors.Internal("Failed to queue message delete", err)
		}
	}
	bw.End()

	if _, err := chatRef.Delete(ctx); err != nil {
		return errors.Internal("Failed to delete chat", err)
	}

	return nil
}

// CreateMessage assigns the message's per-chat sequence number and updates
// the parent chat's preview in the same transaction as the message write, so
// a crash cannot leave the chat's lastMessage out of sync with its messages.
func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	chatRef := r.client.Collection("chats").Doc(message.ChatID)
	messageRef := chatRef.Collection("messages").Doc(message.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(chatRef)
		if err != nil {
			return err
		}

		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			return err
		}

		message.Seq = chat.MessageSeq + 1

		chat.MessageSeq = message.Seq
		chat.LastMessage = message.Preview()
		chat.LastMessageAt = message.CreatedAt
		chat.UpdatedAt = time.Now()

		if err := tx.Create(messageRef, message); err != nil {
			return err
		}
		return tx.Set(chatRef, &chat)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListMessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	query := r.client.Collection("chats").Doc(chatID).Collection("messages").
		OrderBy("createdAt", firestore.Asc).
		OrderBy("seq", firestore.Asc)

	iter := query.Documents(ctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}

		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreChatRepository) MarkMessagesRead(ctx context.Context, chatID, readerID string) error {
	iter := r.client.Collection("chats").Doc(chatID).Collection("messages").Documents(ctx)

	bw := r.client.BulkWriter(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate messages for read update", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message document %s: %v", doc.Ref.ID, err)
			continue
		}

		// Senders never appear in their own readBy set; re-reads are no-ops.
		if message.SenderID == readerID || message.ReadByContains(readerID) {
			continue
		}

		if _, err := bw.Update(doc.Ref, []firestore.Update{
			{Path: "readBy", Value: firestore.ArrayUnion(readerID)},
		}); err != nil {
			return errors.Internal("Failed to queue read update", err)
		}
	}
	bw.End()

	return nil
}
