package websocket

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/repository"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 10240 // 10KB
)

// Client represents a WebSocket client
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	userID      uuid.UUID
	email       string
	connectedAt time.Time

	msgRepo *repository.MessageRepository
	chRepo  *repository.ChannelRepository
	modRepo *repository.ModerationRepository
	redis   *cache.RedisClient
}

// NewClient creates a new WebSocket client
func NewClient(
	hub *Hub,
	conn *websocket.Conn,
	userID uuid.UUID,
	email string,
	msgRepo *repository.MessageRepository,
	chRepo *repository.ChannelRepository,
	modRepo *repository.ModerationRepository,
	redis *cache.RedisClient,
) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		userID:      userID,
		email:       email,
		connectedAt: time.Now(),
		msgRepo:     msgRepo,
		chRepo:      chRepo,
		modRepo:     modRepo,
		redis:       redis,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Redis-backed token bucket shared across server instances
		allowed, err := c.redis.AllowAction(c.userID, "ws_send", 10, 20)
		if err != nil {
			log.Printf("Rate limiter error: %v", err)
			allowed = true
		}
		if !allowed {
			c.sendError("rate_limited")
			continue
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming WebSocket messages
func (c *Client) handleMessage(data []byte) {
	var wsMsg models.WSMessage
	if err := json.Unmarshal(data, &wsMsg); err != nil {
		c.sendError("Invalid message format")
		return
	}

	switch wsMsg.Event {
	case models.EventMessageSend:
		c.handleMessageSend(wsMsg.Payload)

	default:
		c.sendError("Unknown event type")
	}
}

// handleMessageSend persists a chat message and publishes it. The moderation
// bot sees it on the messages channel like every other message.
func (c *Client) handleMessageSend(payload interface{}) {
	data, _ := json.Marshal(payload)
	var req models.WSMessageSendPayload
	if err := json.Unmarshal(data, &req); err != nil {
		c.sendError("Invalid message payload")
		return
	}

	isMember, err := c.chRepo.IsMember(req.ChannelID, c.userID)
	if err != nil || !isMember {
		c.sendError("Access denied")
		return
	}

	channel, err := c.chRepo.GetByID(req.ChannelID)
	if err != nil {
		c.sendError("Channel not found")
		return
	}

	// Restricted users cannot post until the restriction expires
	restriction, err := c.modRepo.GetRestriction(c.userID, channel.GuildID)
	if err == nil && restriction != nil && restriction.ExpiresAt.After(time.Now()) {
		c.sendError("You are temporarily restricted from sending messages")
		return
	}

	message := &models.Message{
		ID:        uuid.New(),
		ChannelID: req.ChannelID,
		GuildID:   channel.GuildID,
		SenderID:  c.userID,
		Body:      req.Body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := c.msgRepo.Create(message); err != nil {
		c.sendError("Failed to send message")
		return
	}

	c.redis.PublishMessage(models.WSMessage{
		Event:   models.EventMessageNew,
		Payload: message,
	})
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	errorMsg := models.WSMessage{
		Event: models.EventError,
		Payload: models.WSErrorPayload{
			Message: message,
		},
	}

	data, _ := json.Marshal(errorMsg)
	select {
	case c.send <- data:
	default:
	}
}
