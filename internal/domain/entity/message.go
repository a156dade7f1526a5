package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"

	// ImagePreview is the chat preview text recorded for image messages in
	// place of the media URL.
	ImagePreview = "Sent an image"
)

// Preview returns the text recorded as the parent chat's lastMessage.
func (m *Message) Preview() string {
	if m.MessageType == MessageTypeImage {
		return ImagePreview
	}
	return m.Content
}

type Message struct {
	ID          string    `json:"id" firestore:"id"`
	ChatID      string    `json:"chat_id" firestore:"chatId"`
	SenderID    string    `json:"sender_id" firestore:"senderId"`
	Content     string    `json:"content" firestore:"content"`
	MessageType string    `json:"message_type" firestore:"messageType"` // "text" or "image"
	MediaURL    string    `json:"media_url,omitempty" firestore:"mediaUrl,omitempty"`
	ReadBy      []string  `json:"read_by" firestore:"readBy"`
	Seq         int64     `json:"seq" firestore:"seq"` // per-chat insertion order, tie-break for equal timestamps
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
}

// ReadByContains reports whether userID already acknowledged this message.
func (m *Message) ReadByContains(userID string) bool {
	for _, r := range m.ReadBy {
		if r == userID {
			return true
		}
	}
	return false
}
