package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"resaleo/pkg/logger"
)

// HistoryFetcher loads message history from the persistence API. The
// session always re-fetches through it when a chat is opened instead of
// trusting whatever it accumulated from live events.
type HistoryFetcher interface {
	ListMessages(ctx context.Context, chatID string) ([]Message, error)
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessagePayload struct {
	Message    Message `json:"message"`
	ReceiverID string  `json:"receiver_id"`
}

type markAsReadPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

type notificationPayload struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

type messagesReadPayload struct {
	ChatID   string `json:"chat_id"`
	ReaderID string `json:"reader_id"`
}

// Session is one live gateway connection for one user. It joins the user's
// personal room on dial and keeps State reconciled from inbound events.
type Session struct {
	userID  string
	state   *State
	fetcher HistoryFetcher

	conn    *websocket.Conn
	writeMu sync.Mutex

	done     chan struct{}
	doneOnce sync.Once
}

// Dial connects to the gateway, announces the user's identity and starts
// the read loop. url must already carry the auth token query parameter.
func Dial(ctx context.Context, url, userID string, fetcher HistoryFetcher) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("chatclient: dial %s: %w", url, err)
	}

	s := &Session{
		userID:  userID,
		state:   NewState(),
		fetcher: fetcher,
		conn:    conn,
		done:    make(chan struct{}),
	}

	if err := s.emit("join_user", userID); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()

	return s, nil
}

// State exposes the reconciled local state.
func (s *Session) State() *State {
	return s.state
}

// OpenChat makes chatID the active conversation: re-fetches its history,
// joins the chat room for live delivery and marks everything as read.
func (s *Session) OpenChat(ctx context.Context, chatID string) error {
	history, err := s.fetcher.ListMessages(ctx, chatID)
	if err != nil {
		return err
	}

	s.state.SetActive(chatID, history)

	if err := s.emit("join_chat", chatID); err != nil {
		return err
	}
	return s.markAsRead(chatID)
}

// Announce publishes an already-persisted message to the gateway so it is
// fanned out to the chat room and the receiver's notification room. It is
// called after the REST create succeeded, never before.
func (s *Session) Announce(msg Message, receiverID string) error {
	s.state.ApplyMessage(msg)
	return s.emit("send_message", sendMessagePayload{Message: msg, ReceiverID: receiverID})
}

// Done is closed when the read loop exits.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Close() error {
	s.doneOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}

func (s *Session) readLoop() {
	defer s.doneOnce.Do(func() { close(s.done) })

	for {
		var f frame
		if err := s.conn.ReadJSON(&f); err != nil {
			logger.Debug("chatclient: read loop closed: %v", err)
			return
		}
		s.handleFrame(f)
	}
}

func (s *Session) handleFrame(f frame) {
	switch f.Event {
	case "receive_message":
		var msg Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			logger.Warn("chatclient: bad receive_message payload: %v", err)
			return
		}
		if s.state.ApplyMessage(msg) {
			// The message landed in the open conversation, so the user
			// is looking at it right now.
			if err := s.markAsRead(msg.ChatID); err != nil {
				logger.Warn("chatclient: mark as read: %v", err)
			}
		}

	case "receive_notification":
		var n notificationPayload
		if err := json.Unmarshal(f.Data, &n); err != nil {
			logger.Warn("chatclient: bad receive_notification payload: %v", err)
			return
		}
		if n.Type == "message" {
			s.state.IncrementUnread()
		}

	case "messages_read":
		var r messagesReadPayload
		if err := json.Unmarshal(f.Data, &r); err != nil {
			logger.Warn("chatclient: bad messages_read payload: %v", err)
			return
		}
		s.state.ApplyRead(r.ChatID, r.ReaderID)

	default:
		// Unknown events are ignored so the protocol can grow.
	}
}

func (s *Session) markAsRead(chatID string) error {
	return s.emit("mark_as_read", markAsReadPayload{ChatID: chatID, UserID: s.userID})
}

func (s *Session) emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("chatclient: marshal %s: %w", event, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteJSON(frame{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("chatclient: emit %s: %w", event, err)
	}
	return nil
}
