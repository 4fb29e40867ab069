package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/repository"
)

type MessageHandler struct {
	msgRepo *repository.MessageRepository
	chRepo  *repository.ChannelRepository
	modRepo *repository.ModerationRepository
	redis   *cache.RedisClient
}

func NewMessageHandler(
	msgRepo *repository.MessageRepository,
	chRepo *repository.ChannelRepository,
	modRepo *repository.ModerationRepository,
	redis *cache.RedisClient,
) *MessageHandler {
	return &MessageHandler{
		msgRepo: msgRepo,
		chRepo:  chRepo,
		modRepo: modRepo,
		redis:   redis,
	}
}

// GetMessages returns messages for a channel
func (h *MessageHandler) GetMessages(c *gin.Context) {
	var req models.GetMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	// Check if user is a member
	isMember, err := h.chRepo.IsMember(req.ChannelID, uid)
	if err != nil || !isMember {
		ErrorResponse(c, http.StatusForbidden, "Access denied")
		return
	}

	// Set defaults
	if req.Limit == 0 {
		req.Limit = 50
	}

	messages, err := h.msgRepo.GetByChannelID(req.ChannelID, req.Limit, req.Offset)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get messages")
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage sends a new message (REST endpoint)
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	// Check if user is a member
	isMember, err := h.chRepo.IsMember(req.ChannelID, uid)
	if err != nil || !isMember {
		ErrorResponse(c, http.StatusForbidden, "Access denied")
		return
	}

	channel, err := h.chRepo.GetByID(req.ChannelID)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Channel not found")
		return
	}

	// Restricted users cannot post until the restriction expires
	restriction, err := h.modRepo.GetRestriction(uid, channel.GuildID)
	if err == nil && restriction != nil && restriction.ExpiresAt.After(time.Now()) {
		ErrorResponse(c, http.StatusForbidden, "You are temporarily restricted from sending messages")
		return
	}

	// Create message
	message := &models.Message{
		ID:        uuid.New(),
		ChannelID: req.ChannelID,
		GuildID:   channel.GuildID,
		SenderID:  uid,
		Body:      req.Body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.msgRepo.Create(message); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to send message")
		return
	}

	// Publish to Redis: the WebSocket hub broadcasts it and the moderation bot
	// screens it
	h.redis.PublishMessage(models.WSMessage{
		Event:   models.EventMessageNew,
		Payload: message,
	})

	c.JSON(http.StatusCreated, message)
}
