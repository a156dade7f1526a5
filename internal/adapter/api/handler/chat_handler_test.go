package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"resaleo/internal/adapter/api"
	"resaleo/internal/domain/entity"
	"resaleo/internal/usecase"
	"resaleo/pkg/errors"
)

type memChatRepo struct {
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		chats:    make(map[string]*entity.Chat),
		messages: make(map[string][]*entity.Message),
	}
}

func memChatKey(listingID, userA, userB string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join([]string{listingID, pair[0], pair[1]}, "|")
}

func (r *memChatRepo) Create(_ context.Context, chat *entity.Chat) error {
	id := memChatKey(chat.ListingID, chat.Participants[0], chat.Participants[1])
	if _, exists := r.chats[id]; exists {
		return errors.Conflict("Chat already exists")
	}
	chat.ID = id
	chat.CreatedAt = time.Now()
	r.chats[id] = chat
	return nil
}

func (r *memChatRepo) GetByID(_ context.Context, id string) (*entity.Chat, error) {
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat, nil
}

func (r *memChatRepo) GetByListingAndParticipants(ctx context.Context, listingID, userA, userB string) (*entity.Chat, error) {
	return r.GetByID(ctx, memChatKey(listingID, userA, userB))
}

func (r *memChatRepo) ListByUserID(_ context.Context, userID string) ([]*entity.Chat, error) {
	var out []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			out = append(out, chat)
		}
	}
	return out, nil
}

func (r *memChatRepo) Delete(_ context.Context, id string) error {
	delete(r.chats, id)
	delete(r.messages, id)
	return nil
}

func (r *memChatRepo) CreateMessage(_ context.Context, message *entity.Message) error {
	chat, ok := r.chats[message.ChatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	chat.MessageSeq++
	message.Seq = chat.MessageSeq
	message.ID = "m" + strings.Repeat("x", int(chat.MessageSeq))
	r.messages[message.ChatID] = append(r.messages[message.ChatID], message)
	return nil
}

func (r *memChatRepo) ListMessagesByChat(_ context.Context, chatID string) ([]*entity.Message, error) {
	return r.messages[chatID], nil
}

func (r *memChatRepo) MarkMessagesRead(_ context.Context, chatID, readerID string) error {
	for _, message := range r.messages[chatID] {
		if message.SenderID == readerID || message.ReadByContains(readerID) {
			continue
		}
		message.ReadBy = append(message.ReadBy, readerID)
	}
	return nil
}

type memUserRepo struct{ users map[string]*entity.User }

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	return user, nil
}

type memListingRepo struct{ listings map[string]*entity.Listing }

func (r *memListingRepo) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	listing, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	return listing, nil
}

func setupTestServer(uid string) (*echo.Echo, *ChatHandler, *memChatRepo) {
	chatRepo := newMemChatRepo()
	userRepo := &memUserRepo{users: map[string]*entity.User{
		"buyer":  {ID: "buyer", Name: "Buyer"},
		"seller": {ID: "seller", Name: "Seller"},
	}}
	listingRepo := &memListingRepo{listings: map[string]*entity.Listing{
		"bike-1": {ID: "bike-1", Title: "City bike", Price: 120},
	}}

	uc := usecase.NewChatUseCase(chatRepo, userRepo, listingRepo)
	h := NewChatHandler(uc)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("uid", uid)
			return next(c)
		}
	})
	e.POST("/v1/chats", h.StartChat)
	e.GET("/v1/chats", h.GetUserChats)
	e.GET("/v1/chats/:id/messages", h.GetChatMessages)
	e.POST("/v1/chats/messages", h.SendMessage)
	e.PUT("/v1/chats/:id/read", h.MarkChatAsRead)

	return e, h, chatRepo
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStartChatReturns201ThenReuses(t *testing.T) {
	e, _, _ := setupTestServer("buyer")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Success bool `json:"success"`
		Data    struct {
			ID          string `json:"id"`
			LastMessage string `json:"last_message"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.True(t, created.Success)
	require.Equal(t, "Started a conversation", created.Data.LastMessage)

	rec = doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)
	require.Equal(t, http.StatusOK, rec.Code, "second start must reuse the chat")
}

func TestStartChatValidatesBody(t *testing.T) {
	e, _, _ := setupTestServer("buyer")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"buyer"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessagePersistsAndReturnsSeq(t *testing.T) {
	e, _, _ := setupTestServer("buyer")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))

	rec = doJSON(e, http.MethodPost, "/v1/chats/messages",
		`{"chat_id":"`+started.Data.ID+`","content":"still available?","message_type":"text"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sent struct {
		Data struct {
			Seq    int64    `json:"seq"`
			ReadBy []string `json:"read_by"`
			Chat   struct {
				LastMessage string `json:"last_message"`
			} `json:"chat"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sent))
	require.Equal(t, int64(1), sent.Data.Seq)
	require.NotNil(t, sent.Data.ReadBy)
	require.Empty(t, sent.Data.ReadBy)
	require.Equal(t, "still available?", sent.Data.Chat.LastMessage)
}

func TestSendMessageDefaultsToTextType(t *testing.T) {
	e, _, _ := setupTestServer("buyer")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))

	// message_type omitted entirely.
	rec = doJSON(e, http.MethodPost, "/v1/chats/messages",
		`{"chat_id":"`+started.Data.ID+`","content":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var sent struct {
		Data struct {
			MessageType string `json:"message_type"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sent))
	require.Equal(t, entity.MessageTypeText, sent.Data.MessageType)
}

func TestSendMessageRejectsImageWithoutMediaURL(t *testing.T) {
	e, _, _ := setupTestServer("buyer")

	doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)

	rec := doJSON(e, http.MethodPost, "/v1/chats/messages",
		`{"chat_id":"whatever","content":"pic","message_type":"image"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetChatMessagesRequiresMembership(t *testing.T) {
	e, _, chatRepo := setupTestServer("buyer")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"seller"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))

	// Same stores, different authenticated user.
	outsider := echo.New()
	outsider.Validator = api.NewValidator()
	uc := usecase.NewChatUseCase(chatRepo,
		&memUserRepo{users: map[string]*entity.User{"mallory": {ID: "mallory"}}},
		&memListingRepo{listings: map[string]*entity.Listing{}})
	oh := NewChatHandler(uc)
	outsider.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("uid", "mallory")
			return next(c)
		}
	})
	outsider.GET("/v1/chats/:id/messages", oh.GetChatMessages)

	rec = doJSON(outsider, http.MethodGet, "/v1/chats/"+started.Data.ID+"/messages", "")
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkChatAsRead(t *testing.T) {
	e, _, chatRepo := setupTestServer("seller")

	rec := doJSON(e, http.MethodPost, "/v1/chats", `{"listing_id":"bike-1","receiver_id":"buyer"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var started struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&started))

	chatRepo.messages[started.Data.ID] = []*entity.Message{
		{ID: "m1", ChatID: started.Data.ID, SenderID: "buyer", ReadBy: []string{}},
	}

	rec = doJSON(e, http.MethodPut, "/v1/chats/"+started.Data.ID+"/read", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"seller"}, chatRepo.messages[started.Data.ID][0].ReadBy)

	rec = doJSON(e, http.MethodPut, "/v1/chats/missing/read", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
