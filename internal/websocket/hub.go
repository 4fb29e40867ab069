package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/models"
)

// MemberSource resolves channel membership for fan-out
type MemberSource interface {
	GetMemberIDs(channelID uuid.UUID) ([]uuid.UUID, error)
}

// Hub maintains the set of active clients and fans events out to them
type Hub struct {
	// Registered clients
	clients map[uuid.UUID]*Client

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Redis client for pub/sub
	redis *cache.RedisClient

	// Channel membership lookup
	members MemberSource

	// Mutex for thread-safe operations
	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub(redis *cache.RedisClient, members MemberSource) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		redis:      redis,
		members:    members,
	}
}

// Run starts the hub
func (h *Hub) Run() {
	// Subscribe to Redis channels
	go h.subscribeToRedis()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.userID] = client
			h.mu.Unlock()

			h.redis.SetUserOnline(client.userID)
			h.redis.PublishPresence(models.UserPresence{
				UserID:   client.userID,
				Status:   "online",
				LastSeen: client.connectedAt,
			})

			log.Printf("Client registered: %s", client.userID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
			}
			h.mu.Unlock()

			h.redis.SetUserOffline(client.userID)
			h.redis.PublishPresence(models.UserPresence{
				UserID: client.userID,
				Status: "offline",
			})

			log.Printf("Client unregistered: %s", client.userID)
		}
	}
}

// subscribeToRedis pumps pub/sub events into connected clients
func (h *Hub) subscribeToRedis() {
	msgPubSub := h.redis.SubscribeToMessages()
	defer msgPubSub.Close()

	modPubSub := h.redis.SubscribeToModeration()
	defer modPubSub.Close()

	presencePubSub := h.redis.SubscribeToPresence()
	defer presencePubSub.Close()

	msgChan := msgPubSub.Channel()
	modChan := modPubSub.Channel()
	presenceChan := presencePubSub.Channel()

	for {
		select {
		case m, ok := <-msgChan:
			if !ok {
				return
			}
			h.routeMessageEvent([]byte(m.Payload))
		case m, ok := <-modChan:
			if !ok {
				return
			}
			h.routeModerationEvent([]byte(m.Payload))
		case m, ok := <-presenceChan:
			if !ok {
				return
			}
			h.Broadcast([]byte(m.Payload))
		}
	}
}

// routeMessageEvent delivers new messages to the members of their channel
func (h *Hub) routeMessageEvent(payload []byte) {
	var ws models.WSMessage
	if err := json.Unmarshal(payload, &ws); err != nil {
		return
	}
	if ws.Event != models.EventMessageNew {
		return
	}

	raw, _ := json.Marshal(ws.Payload)
	var msg models.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}

	h.sendToChannelRaw(msg.ChannelID, payload)
}

// routeModerationEvent delivers moderation events to the right audience:
// warnings go to the warned user only, everything else to the channel or user
// it concerns.
func (h *Hub) routeModerationEvent(payload []byte) {
	var ws models.WSMessage
	if err := json.Unmarshal(payload, &ws); err != nil {
		return
	}
	raw, _ := json.Marshal(ws.Payload)

	switch ws.Event {
	case models.EventModerationWarn:
		var p models.WSWarningPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		h.sendToUserRaw(p.UserID, payload)

	case models.EventModerationNotice:
		var p models.WSNoticePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		h.sendToChannelRaw(p.ChannelID, payload)

	case models.EventMessageDeleted:
		var p models.WSMessageDeletedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		h.sendToChannelRaw(p.ChannelID, payload)

	case models.EventUserRestricted, models.EventUserUnrestricted:
		var p models.WSRestrictionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return
		}
		h.sendToUserRaw(p.UserID, payload)
	}
}

// SendToUser delivers a payload to a single connected user
func (h *Hub) SendToUser(userID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	h.sendToUserRaw(userID, data)
	return nil
}

// SendToChannel delivers a payload to all connected members of a channel
func (h *Hub) SendToChannel(channelID uuid.UUID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	h.sendToChannelRaw(channelID, data)
	return nil
}

func (h *Hub) sendToUserRaw(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case client.send <- data:
	default:
		// slow consumer, drop the connection
		h.mu.Lock()
		if _, still := h.clients[userID]; still {
			delete(h.clients, userID)
			close(client.send)
		}
		h.mu.Unlock()
	}
}

func (h *Hub) sendToChannelRaw(channelID uuid.UUID, data []byte) {
	if h.members == nil {
		h.Broadcast(data)
		return
	}
	memberIDs, err := h.members.GetMemberIDs(channelID)
	if err != nil {
		log.Printf("Failed to resolve channel members for %s: %v", channelID, err)
		return
	}
	for _, id := range memberIDs {
		h.sendToUserRaw(id, data)
	}
}

// Broadcast sends a payload to every connected client
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- data:
		default:
		}
	}
}

// OnlineUserIDs returns the ids of all connected users
func (h *Hub) OnlineUserIDs() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}
