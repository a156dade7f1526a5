package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"resaleo/internal/domain/repository"
	"resaleo/internal/infrastructure/metrics"
	"resaleo/pkg/logger"
)

// Client is one live gateway connection for an authenticated user. A user
// may hold several clients at once (multiple tabs or devices).
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager owns all room state of the realtime gateway. A client joins its
// own user room for cross-chat notifications and any number of chat rooms
// for in-conversation updates; memberships live until the connection
// unregisters.
type Manager struct {
	clients    map[*Client]bool
	userRooms  map[string]map[*Client]bool
	chatRooms  map[string]map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	chatRepo   repository.ChatRepository
	mutex      sync.RWMutex
}

func NewManager(chatRepo repository.ChatRepository) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		userRooms:  make(map[string]map[*Client]bool),
		chatRooms:  make(map[string]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		chatRepo:   chatRepo,
	}
}

// Start runs the manager's registration loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.removeClient(client)
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) addClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.clients[client] = true
	metrics.WSActiveConnections.Inc()
}

func (m *Manager) removeClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[client]; !ok {
		return
	}
	delete(m.clients, client)
	close(client.Send)
	metrics.WSActiveConnections.Dec()

	for userID, room := range m.userRooms {
		delete(room, client)
		if len(room) == 0 {
			delete(m.userRooms, userID)
		}
	}
	for chatID, room := range m.chatRooms {
		delete(room, client)
		if len(room) == 0 {
			delete(m.chatRooms, chatID)
		}
	}
}

// JoinUserRoom subscribes the client to its notification room. Only the
// connection's own authenticated user id is accepted.
func (m *Manager) JoinUserRoom(client *Client, userID string) {
	if userID != client.UserID {
		logger.Warn("Client %s attempted to join user room %s", client.UserID, userID)
		return
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.userRooms[userID]; !ok {
		m.userRooms[userID] = make(map[*Client]bool)
	}
	m.userRooms[userID][client] = true
}

// JoinChatRoom subscribes the client to a chat room. Membership is not
// removed on navigation; stale rooms are bounded by connection lifetime.
func (m *Manager) JoinChatRoom(client *Client, chatID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.chatRooms[chatID]; !ok {
		m.chatRooms[chatID] = make(map[*Client]bool)
	}
	m.chatRooms[chatID][client] = true
}

// BroadcastToChatRoom delivers payload to every client in the chat room,
// including the sender's own connections. Delivery is best effort.
func (m *Manager) BroadcastToChatRoom(chatID string, payload []byte) {
	m.mutex.RLock()
	room := make([]*Client, 0, len(m.chatRooms[chatID]))
	for client := range m.chatRooms[chatID] {
		room = append(room, client)
	}
	m.mutex.RUnlock()

	for _, client := range room {
		m.send(client, payload)
	}
}

// BroadcastToUserRoom delivers payload to every connection of one user.
func (m *Manager) BroadcastToUserRoom(userID string, payload []byte) {
	m.mutex.RLock()
	room := make([]*Client, 0, len(m.userRooms[userID]))
	for client := range m.userRooms[userID] {
		room = append(room, client)
	}
	m.mutex.RUnlock()

	for _, client := range room {
		m.send(client, payload)
	}
}

// send pushes payload to one client without blocking; a slow consumer whose
// buffer is full loses its connection rather than stalling the gateway.
// Holding the read lock means removeClient cannot close the Send channel
// while a stale room snapshot is still delivering to it.
func (m *Manager) send(client *Client, payload []byte) {
	m.mutex.RLock()
	if !m.clients[client] {
		m.mutex.RUnlock()
		return
	}

	select {
	case client.Send <- payload:
		m.mutex.RUnlock()
	default:
		m.mutex.RUnlock()
		logger.Warn("Client %s send buffer full, dropping connection", client.UserID)
		metrics.WSDroppedClientsTotal.Inc()
		m.removeClient(client)
	}
}

// InChatRoom reports whether the client currently belongs to the chat room.
func (m *Manager) InChatRoom(client *Client, chatID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.chatRooms[chatID][client]
}

// ReadPump reads frames from the connection and dispatches them until the
// connection drops.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, payload, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Client %s read error: %v", c.UserID, err)
			}
			break
		}

		m.HandleClientEvent(c, payload)
	}
}

// WritePump drains the client's send buffer onto the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		payload, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logger.Warn("Client %s write error: %v", c.UserID, err)
			return
		}
	}
}
