package chatclient

import (
	"sort"
	"sync"
	"time"
)

// Chat is the client-side view of a conversation, carrying the denormalized
// sidebar preview fields.
type Chat struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listing_id"`
	Participants  []string  `json:"participants"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// Message is the client-side view of one chat message.
type Message struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	Content     string    `json:"content"`
	MessageType string    `json:"message_type"`
	MediaURL    string    `json:"media_url,omitempty"`
	ReadBy      []string  `json:"read_by"`
	Seq         int64     `json:"seq"`
	CreatedAt   time.Time `json:"created_at"`
}

// imagePreview mirrors the placeholder the server records as a chat's
// lastMessage for image messages.
const imagePreview = "Sent an image"

func (m Message) preview() string {
	if m.MessageType == "image" {
		return imagePreview
	}
	return m.Content
}

// State holds everything a connected client reconciles locally: the chat
// list with previews, the active chat's messages, and the unread counter.
// Events may arrive before or after the matching persistence re-fetch; all
// merges are idempotent by message id, so either order converges.
type State struct {
	mu           sync.Mutex
	chats        []Chat
	activeChatID string
	messages     []Message
	unread       int
}

func NewState() *State {
	return &State{}
}

// SetChats replaces the sidebar chat list.
func (s *State) SetChats(chats []Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = append([]Chat(nil), chats...)
	s.sortChatsLocked()
}

// SetActive replaces the active chat and its freshly fetched history,
// discarding any previously cached list.
func (s *State) SetActive(chatID string, history []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeChatID = chatID
	s.messages = append([]Message(nil), history...)
}

// ActiveChatID returns the currently open chat, or "".
func (s *State) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChatID
}

// ApplyMessage merges one inbound message. It reports whether the message
// was appended to the active conversation (i.e. the chat is open and the
// message was not a duplicate of an optimistic echo).
func (s *State) ApplyMessage(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	appended := false
	if msg.ChatID == s.activeChatID && s.activeChatID != "" {
		if !s.hasMessageLocked(msg.ID) {
			s.messages = append(s.messages, msg)
			appended = true
		}
	}

	at := msg.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	for i := range s.chats {
		if s.chats[i].ID == msg.ChatID {
			s.chats[i].LastMessage = msg.preview()
			s.chats[i].LastMessageAt = at
			break
		}
	}
	s.sortChatsLocked()

	return appended
}

// ApplyRead adds readerID to the readBy set of every local message of the
// chat that does not already contain it. Never removes a prior reader.
func (s *State) ApplyRead(chatID, readerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chatID != s.activeChatID {
		return
	}

	for i := range s.messages {
		if !containsString(s.messages[i].ReadBy, readerID) {
			s.messages[i].ReadBy = append(s.messages[i].ReadBy, readerID)
		}
	}
}

// IncrementUnread bumps the notification counter.
func (s *State) IncrementUnread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread++
}

// ResetUnread clears the counter. This is the only way it goes down;
// opening a chat does not reset it.
func (s *State) ResetUnread() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = 0
}

func (s *State) Unread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread
}

// Chats returns a copy of the sidebar list, most recent first.
func (s *State) Chats() []Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Chat(nil), s.chats...)
}

// Messages returns a copy of the active conversation.
func (s *State) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *State) hasMessageLocked(id string) bool {
	for _, m := range s.messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (s *State) sortChatsLocked() {
	sort.SliceStable(s.chats, func(i, j int) bool {
		return s.chats[i].LastMessageAt.After(s.chats[j].LastMessageAt)
	})
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
