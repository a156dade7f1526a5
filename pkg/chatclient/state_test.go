package chatclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApplyMessageDeduplicatesOptimisticEcho(t *testing.T) {
	s := NewState()
	s.SetActive("c1", nil)

	msg := Message{ID: "m1", ChatID: "c1", Content: "hello", CreatedAt: time.Now()}

	require.True(t, s.ApplyMessage(msg), "first delivery should append")
	require.False(t, s.ApplyMessage(msg), "echo of the same message must be ignored")
	require.Len(t, s.Messages(), 1)
}

func TestApplyMessageIgnoresOtherChats(t *testing.T) {
	s := NewState()
	s.SetActive("c1", nil)

	require.False(t, s.ApplyMessage(Message{ID: "m1", ChatID: "c2", Content: "elsewhere"}))
	require.Empty(t, s.Messages())
}

func TestApplyMessageResortsChatList(t *testing.T) {
	s := NewState()
	now := time.Now()
	s.SetChats([]Chat{
		{ID: "c1", LastMessage: "old", LastMessageAt: now.Add(-time.Minute)},
		{ID: "c2", LastMessage: "older", LastMessageAt: now.Add(-time.Hour)},
	})

	s.ApplyMessage(Message{ID: "m1", ChatID: "c2", Content: "fresh", CreatedAt: now})

	chats := s.Chats()
	require.Equal(t, "c2", chats[0].ID)
	require.Equal(t, "fresh", chats[0].LastMessage)
	require.Equal(t, "c1", chats[1].ID)
}

func TestApplyMessageUsesImagePlaceholderPreview(t *testing.T) {
	s := NewState()
	s.SetChats([]Chat{{ID: "c1", LastMessage: "old"}})

	s.ApplyMessage(Message{
		ID:          "m1",
		ChatID:      "c1",
		MessageType: "image",
		Content:     "https://cdn.example.com/bike.jpg",
		MediaURL:    "https://cdn.example.com/bike.jpg",
		CreatedAt:   time.Now(),
	})

	// The sidebar shows the placeholder, never the raw media URL.
	require.Equal(t, "Sent an image", s.Chats()[0].LastMessage)
}

func TestApplyReadIsIdempotentSetAdd(t *testing.T) {
	s := NewState()
	s.SetActive("c1", []Message{
		{ID: "m1", ChatID: "c1", SenderID: "alice", ReadBy: []string{}},
		{ID: "m2", ChatID: "c1", SenderID: "alice", ReadBy: []string{"bob"}},
	})

	s.ApplyRead("c1", "bob")
	s.ApplyRead("c1", "bob")

	for _, m := range s.Messages() {
		require.Equal(t, []string{"bob"}, m.ReadBy)
	}

	// Receipts for a chat that is not open are dropped; the next history
	// re-fetch carries the authoritative state anyway.
	s.ApplyRead("c9", "bob")
}

func TestOpeningChatReplacesHistory(t *testing.T) {
	s := NewState()
	s.SetActive("c1", []Message{{ID: "m1", ChatID: "c1"}})
	s.SetActive("c2", []Message{{ID: "m5", ChatID: "c2"}, {ID: "m6", ChatID: "c2"}})

	require.Equal(t, "c2", s.ActiveChatID())
	messages := s.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "m5", messages[0].ID)
}

func TestUnreadCounterOnlyResetsExplicitly(t *testing.T) {
	s := NewState()
	s.IncrementUnread()
	s.IncrementUnread()
	require.Equal(t, 2, s.Unread())

	// Opening a chat does not touch the counter.
	s.SetActive("c1", nil)
	require.Equal(t, 2, s.Unread())

	s.ResetUnread()
	require.Equal(t, 0, s.Unread())
}
