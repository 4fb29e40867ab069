package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/guardian"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/moderator"
	"github.com/guardianplus/backend/internal/repository"
)

type ChannelHandler struct {
	chRepo    *repository.ChannelRepository
	userRepo  *repository.UserRepository
	modRepo   *repository.ModerationRepository
	bot       *moderator.Bot
	transport guardian.ChatTransport
}

func NewChannelHandler(
	chRepo *repository.ChannelRepository,
	userRepo *repository.UserRepository,
	modRepo *repository.ModerationRepository,
	bot *moderator.Bot,
	transport guardian.ChatTransport,
) *ChannelHandler {
	return &ChannelHandler{
		chRepo:    chRepo,
		userRepo:  userRepo,
		modRepo:   modRepo,
		bot:       bot,
		transport: transport,
	}
}

// CreateChannel creates a new channel and adds the creator as a member
func (h *ChannelHandler) CreateChannel(c *gin.Context) {
	var req models.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	// Only administrators may create system channels
	if req.IsSystem {
		if isAdmin, _ := c.Get("is_admin"); isAdmin != true {
			ErrorResponse(c, http.StatusForbidden, "Administrator access required")
			return
		}
	}

	channel := &models.Channel{
		ID:        uuid.New(),
		GuildID:   req.GuildID,
		Name:      req.Name,
		Slug:      req.Slug,
		IsSystem:  req.IsSystem,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := h.chRepo.Create(channel); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create channel")
		return
	}

	if err := h.chRepo.AddMember(channel.ID, uid); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to join channel")
		return
	}

	c.JSON(http.StatusCreated, channel)
}

// GetChannel returns a channel by id
func (h *ChannelHandler) GetChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	channel, err := h.chRepo.GetByID(channelID)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Channel not found")
		return
	}

	c.JSON(http.StatusOK, channel)
}

// JoinChannel adds the caller to a channel. First-time joiners get a welcome
// from the moderation bot.
func (h *ChannelHandler) JoinChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	channel, err := h.chRepo.GetByID(channelID)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Channel not found")
		return
	}

	alreadyMember, err := h.chRepo.IsMember(channelID, uid)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to check membership")
		return
	}

	if err := h.chRepo.AddMember(channelID, uid); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to join channel")
		return
	}

	if !alreadyMember && h.bot != nil {
		if user, err := h.userRepo.GetByID(uid); err == nil {
			h.bot.Welcome(c.Request.Context(), h.transport, user, channel.GuildID)
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Joined channel"})
}

// LeaveChannel removes the caller from a channel
func (h *ChannelHandler) LeaveChannel(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	userID, _ := c.Get("user_id")
	uid := userID.(uuid.UUID)

	if err := h.chRepo.RemoveMember(channelID, uid); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to leave channel")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left channel"})
}

// GetBannedWords lists a channel's custom banned words
func (h *ChannelHandler) GetBannedWords(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	words, err := h.modRepo.GetBannedWords(channelID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get banned words")
		return
	}

	c.JSON(http.StatusOK, words)
}

// AddBannedWord adds a custom banned word to a channel
func (h *ChannelHandler) AddBannedWord(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	var req models.AddBannedWordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.modRepo.AddBannedWord(channelID, req.Word); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to add banned word")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Banned word added"})
}

// RemoveBannedWord removes a custom banned word from a channel
func (h *ChannelHandler) RemoveBannedWord(c *gin.Context) {
	channelID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
		return
	}

	word := c.Param("word")
	if word == "" {
		ErrorResponse(c, http.StatusBadRequest, "Word required")
		return
	}

	if err := h.modRepo.RemoveBannedWord(channelID, word); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to remove banned word")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Banned word removed"})
}
