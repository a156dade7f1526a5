package usecase

import (
	"context"
	"time"

	"resaleo/internal/domain/entity"
	"resaleo/internal/domain/repository"
	"resaleo/pkg/errors"
	"resaleo/pkg/logger"
)

// startConversationText is the placeholder preview a fresh chat carries
// before its first message.
const startConversationText = "Started a conversation"

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
	}
}

type StartChatInput struct {
	ListingID  string
	ReceiverID string
}

type SendMessageInput struct {
	ChatID      string
	Content     string
	MessageType string // "text" (default) or "image"
	MediaURL    string // required for image messages
}

type ChatResponse struct {
	*entity.Chat
	ParticipantProfiles []*entity.Profile `json:"participant_profiles,omitempty"`
	Listing             *entity.Summary   `json:"listing,omitempty"`
}

type MessageResponse struct {
	*entity.Message
	Sender *entity.Profile `json:"sender,omitempty"`
	Chat   *entity.Chat    `json:"chat,omitempty"`
}

// StartOrGetChat finds the chat for (listing, sender, receiver) or creates it.
// The returned bool reports whether a new chat was created. A concurrent
// first contact by the other participant surfaces as a storage conflict and
// resolves to the existing chat.
func (uc *ChatUseCase) StartOrGetChat(ctx context.Context, senderID string, input StartChatInput) (*ChatResponse, bool, error) {
	if input.ListingID == "" || input.ReceiverID == "" {
		return nil, false, errors.Validation("Listing ID and Receiver ID are required")
	}
	if senderID == input.ReceiverID {
		return nil, false, errors.BadRequest("You cannot start a chat with yourself", nil)
	}

	receiver, err := uc.userRepo.GetByID(ctx, input.ReceiverID)
	if err != nil {
		logger.Warn("StartOrGetChat: receiver %s not found: %v", input.ReceiverID, err)
		return nil, false, errors.NotFound("Receiver", err)
	}

	listing, err := uc.listingRepo.GetByID(ctx, input.ListingID)
	if err != nil {
		logger.Warn("StartOrGetChat: listing %s not found: %v", input.ListingID, err)
		return nil, false, errors.NotFound("Listing", err)
	}

	existing, err := uc.chatRepo.GetByListingAndParticipants(ctx, input.ListingID, senderID, input.ReceiverID)
	if err == nil {
		return uc.chatResponse(ctx, existing, listing, receiver), false, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, false, err
	}

	chat := &entity.Chat{
		ListingID:     input.ListingID,
		Participants:  []string{senderID, input.ReceiverID},
		LastMessage:   startConversationText,
		LastMessageAt: time.Now(),
	}

	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Lost the first-contact race; the other participant's chat wins.
			existing, getErr := uc.chatRepo.GetByListingAndParticipants(ctx, input.ListingID, senderID, input.ReceiverID)
			if getErr != nil {
				return nil, false, getErr
			}
			return uc.chatResponse(ctx, existing, listing, receiver), false, nil
		}
		return nil, false, err
	}

	return uc.chatResponse(ctx, chat, listing, receiver), true, nil
}

// ListUserChats returns the caller's chats, most recent conversation first,
// with participant profiles and listing summaries resolved.
func (uc *ChatUseCase) ListUserChats(ctx context.Context, userID string) ([]*ChatResponse, error) {
	chats, err := uc.chatRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp := &ChatResponse{Chat: chat}

		listing, err := uc.listingRepo.GetByID(ctx, chat.ListingID)
		if err == nil {
			resp.Listing = listing.Summary()
		} else {
			logger.Warn("ListUserChats: listing %s not found for chat %s: %v", chat.ListingID, chat.ID, err)
		}

		for _, participantID := range chat.Participants {
			user, err := uc.userRepo.GetByID(ctx, participantID)
			if err != nil {
				logger.Warn("ListUserChats: participant %s not found for chat %s: %v", participantID, chat.ID, err)
				continue
			}
			resp.ParticipantProfiles = append(resp.ParticipantProfiles, user.Profile())
		}

		responses = append(responses, resp)
	}

	return responses, nil
}

// ListMessages returns a chat's full history, oldest first. The caller must
// be a chat participant.
func (uc *ChatUseCase) ListMessages(ctx context.Context, userID, chatID string) ([]*MessageResponse, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	messages, err := uc.chatRepo.ListMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	senders := make(map[string]*entity.Profile)
	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		resp := &MessageResponse{Message: message}

		sender, ok := senders[message.SenderID]
		if !ok {
			user, err := uc.userRepo.GetByID(ctx, message.SenderID)
			if err != nil {
				logger.Warn("ListMessages: sender %s not found for message %s: %v", message.SenderID, message.ID, err)
			} else {
				sender = user.Profile()
			}
			senders[message.SenderID] = sender
		}
		resp.Sender = sender

		responses = append(responses, resp)
	}

	return responses, nil
}

// SendMessage persists a message and updates the parent chat's preview in
// the same atomic write. The sender is never part of the message's readBy
// set.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*MessageResponse, error) {
	if input.ChatID == "" || input.Content == "" {
		return nil, errors.Validation("Chat ID and content are required")
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	if messageType != entity.MessageTypeText && messageType != entity.MessageTypeImage {
		return nil, errors.Validation("message_type must be one of: text image")
	}
	if messageType == entity.MessageTypeImage && input.MediaURL == "" {
		return nil, errors.Validation("media_url is required for image messages")
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(senderID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, errors.NotFound("Sender", err)
	}

	message := &entity.Message{
		ChatID:      input.ChatID,
		SenderID:    senderID,
		Content:     input.Content,
		MessageType: messageType,
		MediaURL:    input.MediaURL,
		ReadBy:      []string{},
		CreatedAt:   time.Now(),
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		logger.Error("SendMessage: failed to create message for chat %s: %v", input.ChatID, err)
		return nil, err
	}

	chat.LastMessage = message.Preview()
	chat.LastMessageAt = message.CreatedAt
	chat.MessageSeq = message.Seq

	return &MessageResponse{
		Message: message,
		Sender:  sender.Profile(),
		Chat:    chat,
	}, nil
}

// MarkChatAsRead adds readerID to the readBy set of every message in the
// chat not sent by them. Safe to call repeatedly.
func (uc *ChatUseCase) MarkChatAsRead(ctx context.Context, chatID, readerID string) error {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(readerID) {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	return uc.chatRepo.MarkMessagesRead(ctx, chatID, readerID)
}

// DeleteChat removes a chat and all of its messages. Moderation only; the
// caller's admin role is enforced at the transport layer.
func (uc *ChatUseCase) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := uc.chatRepo.GetByID(ctx, chatID); err != nil {
		return err
	}
	return uc.chatRepo.Delete(ctx, chatID)
}

func (uc *ChatUseCase) chatResponse(ctx context.Context, chat *entity.Chat, listing *entity.Listing, receiver *entity.User) *ChatResponse {
	resp := &ChatResponse{Chat: chat, Listing: listing.Summary()}

	for _, participantID := range chat.Participants {
		if participantID == receiver.ID {
			resp.ParticipantProfiles = append(resp.ParticipantProfiles, receiver.Profile())
			continue
		}
		user, err := uc.userRepo.GetByID(ctx, participantID)
		if err != nil {
			logger.Warn("chatResponse: participant %s not found for chat %s: %v", participantID, chat.ID, err)
			continue
		}
		resp.ParticipantProfiles = append(resp.ParticipantProfiles, user.Profile())
	}

	return resp
}
