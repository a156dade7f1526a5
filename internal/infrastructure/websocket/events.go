package websocket

import (
	"context"
	"encoding/json"

	"resaleo/internal/infrastructure/metrics"
	"resaleo/pkg/logger"
)

// Gateway event types. Client-to-gateway events on the left column of the
// protocol, gateway-to-client on the right.
const (
	EventJoinUser            = "join_user"
	EventJoinChat            = "join_chat"
	EventSendMessage         = "send_message"
	EventReceiveMessage      = "receive_message"
	EventReceiveNotification = "receive_notification"
	EventMarkAsRead          = "mark_as_read"
	EventMessagesRead        = "messages_read"
)

// Frame is the envelope every gateway event travels in.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type sendMessageData struct {
	Message    json.RawMessage `json:"message"`
	ReceiverID string          `json:"receiver_id"`
}

type markAsReadData struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// NotificationData is pushed to a user room when a message arrives for them,
// regardless of which chat view (if any) they have open.
type NotificationData struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// MessagesReadData is rebroadcast to a chat room after a bulk read update.
type MessagesReadData struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
}

// chatRef unmarshals a chat reference that may arrive either as a bare id
// or as an embedded chat object. Payloads are normalized to the bare id at
// this boundary so routing never branches on shape.
type chatRef struct {
	ID string
}

func (r *chatRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}

	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// HandleClientEvent dispatches one inbound frame from a client connection.
// Malformed or unknown frames are logged and dropped; the connection stays
// up.
func (m *Manager) HandleClientEvent(client *Client, payload []byte) {
	var frame Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		logger.Warn("Gateway: invalid frame from client %s: %v", client.UserID, err)
		return
	}

	metrics.EventReceived(frame.Event)

	switch frame.Event {
	case EventJoinUser:
		m.handleJoinUser(client, frame.Data)

	case EventJoinChat:
		m.handleJoinChat(client, frame.Data)

	case EventSendMessage:
		m.handleSendMessage(client, frame.Data)

	case EventMarkAsRead:
		m.handleMarkAsRead(client, frame.Data)

	default:
		logger.Warn("Gateway: unknown event %q from client %s", frame.Event, client.UserID)
	}
}

func (m *Manager) handleJoinUser(client *Client, data json.RawMessage) {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
		logger.Warn("Gateway: invalid join_user payload from client %s", client.UserID)
		return
	}

	m.JoinUserRoom(client, userID)
}

func (m *Manager) handleJoinChat(client *Client, data json.RawMessage) {
	var ref chatRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ID == "" {
		logger.Warn("Gateway: invalid join_chat payload from client %s", client.UserID)
		return
	}

	if !m.isParticipant(client, ref.ID) {
		return
	}

	m.JoinChatRoom(client, ref.ID)
	logger.Debug("Gateway: client %s joined chat room %s", client.UserID, ref.ID)
}

// isParticipant gates every chat-scoped client event on membership, the
// same check the persistence path enforces.
func (m *Manager) isParticipant(client *Client, chatID string) bool {
	chat, err := m.chatRepo.GetByID(context.Background(), chatID)
	if err != nil {
		logger.Warn("Gateway: lookup of chat %s for client %s failed: %v", chatID, client.UserID, err)
		return false
	}
	if !chat.HasParticipant(client.UserID) {
		logger.Warn("Gateway: client %s is not a participant of chat %s", client.UserID, chatID)
		return false
	}
	return true
}

// handleSendMessage fans a persisted message out to the chat room and pushes
// a notification to the receiver's user room. The message record itself was
// already written through the persistence path; the gateway only routes it.
func (m *Manager) handleSendMessage(client *Client, data json.RawMessage) {
	var payload sendMessageData
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Warn("Gateway: invalid send_message payload from client %s: %v", client.UserID, err)
		return
	}
	if len(payload.Message) == 0 {
		logger.Warn("Gateway: send_message without message from client %s", client.UserID)
		return
	}

	var envelope struct {
		ChatID chatRef `json:"chat_id"`
	}
	if err := json.Unmarshal(payload.Message, &envelope); err != nil || envelope.ChatID.ID == "" {
		logger.Warn("Gateway: send_message without chat id from client %s", client.UserID)
		return
	}
	if !m.isParticipant(client, envelope.ChatID.ID) {
		return
	}

	m.emitToChatRoom(envelope.ChatID.ID, EventReceiveMessage, payload.Message)

	if payload.ReceiverID != "" {
		m.emitToUserRoom(payload.ReceiverID, EventReceiveNotification, NotificationData{
			Type:    "message",
			Message: payload.Message,
		})
	}
}

// handleMarkAsRead performs the bulk readBy update and rebroadcasts the read
// receipt to the chat room.
func (m *Manager) handleMarkAsRead(client *Client, data json.RawMessage) {
	var payload markAsReadData
	if err := json.Unmarshal(data, &payload); err != nil || payload.ChatID == "" {
		logger.Warn("Gateway: invalid mark_as_read payload from client %s", client.UserID)
		return
	}

	// The reader is always the authenticated connection owner; the payload's
	// user_id is advisory.
	readerID := client.UserID

	if !m.isParticipant(client, payload.ChatID) {
		return
	}

	if err := m.chatRepo.MarkMessagesRead(context.Background(), payload.ChatID, readerID); err != nil {
		logger.Error("Gateway: mark_as_read failed for chat %s reader %s: %v", payload.ChatID, readerID, err)
		return
	}

	m.emitToChatRoom(payload.ChatID, EventMessagesRead, MessagesReadData{
		ChatID:   payload.ChatID,
		ReaderID: readerID,
	})
}

func (m *Manager) emitToChatRoom(chatID, event string, data interface{}) {
	payload, err := marshalFrame(event, data)
	if err != nil {
		logger.Error("Gateway: failed to marshal %s frame: %v", event, err)
		return
	}
	metrics.EventEmitted(event)
	m.BroadcastToChatRoom(chatID, payload)
}

func (m *Manager) emitToUserRoom(userID, event string, data interface{}) {
	payload, err := marshalFrame(event, data)
	if err != nil {
		logger.Error("Gateway: failed to marshal %s frame: %v", event, err)
		return
	}
	metrics.EventEmitted(event)
	m.BroadcastToUserRoom(userID, payload)
}

func marshalFrame(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}
