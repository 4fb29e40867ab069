package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/guardian"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/repository"
)

// ModerationHandler is the administrative surface over the guardian engine:
// policy configuration, the violation leaderboard, restrictions, and the
// moderation log.
type ModerationHandler struct {
	policy  *guardian.PolicyStore
	engine  *guardian.Engine
	modRepo *repository.ModerationRepository
}

func NewModerationHandler(policy *guardian.PolicyStore, engine *guardian.Engine, modRepo *repository.ModerationRepository) *ModerationHandler {
	return &ModerationHandler{
		policy:  policy,
		engine:  engine,
		modRepo: modRepo,
	}
}

// GetConfig returns the current moderation policy
func (h *ModerationHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.policy.Snapshot())
}

// UpdateConfig applies a partial policy update. Omitted fields keep their
// current values; an invalid result leaves the current policy in effect.
func (h *ModerationHandler) UpdateConfig(c *gin.Context) {
	var req models.UpdatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	pol := h.policy.Snapshot()
	if req.Enabled != nil {
		pol.Enabled = *req.Enabled
	}
	if req.ToxicityThreshold != nil {
		pol.ToxicityThreshold = *req.ToxicityThreshold
	}
	if req.SpamThreshold != nil {
		pol.SpamThreshold = *req.SpamThreshold
	}
	if req.AutoRestrictViolations != nil {
		pol.AutoRestrictViolations = *req.AutoRestrictViolations
	}
	if req.RestrictionSeconds != nil {
		pol.RestrictionSeconds = *req.RestrictionSeconds
	}
	if req.ModLogChannelID != nil {
		pol.ModLogChannelID = req.ModLogChannelID
	}

	if err := h.policy.Replace(pol); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusOK, h.policy.Snapshot())
}

// Toggle flips or sets the enabled flag without touching the thresholds
func (h *ModerationHandler) Toggle(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	enabled := !h.policy.Snapshot().Enabled
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	c.JSON(http.StatusOK, h.policy.SetEnabled(enabled))
}

// GetViolations returns the violation leaderboard
func (h *ModerationHandler) GetViolations(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, h.engine.Ledger().TopN(limit))
}

// GetUserViolations returns one user's count and active restriction, if any
func (h *ModerationHandler) GetUserViolations(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	resp := gin.H{
		"user_id": userID,
		"count":   h.engine.Ledger().Get(userID),
	}
	if expiresAt, ok := h.engine.Mutes().Active(userID); ok {
		resp["restricted_until"] = expiresAt
	}

	c.JSON(http.StatusOK, resp)
}

// ResetUserViolations zeroes a user's violation count
func (h *ModerationHandler) ResetUserViolations(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	h.engine.Ledger().Reset(userID)
	c.JSON(http.StatusOK, gin.H{"message": "Violations reset"})
}

// ClearRestriction lifts a user's restriction ahead of its expiry
func (h *ModerationHandler) ClearRestriction(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
		return
	}

	cleared, err := h.engine.Mutes().Clear(c.Request.Context(), userID)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to clear restriction")
		return
	}
	if !cleared {
		ErrorResponse(c, http.StatusNotFound, "No active restriction")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Restriction cleared"})
}

// GetLogs returns recent moderation log entries, optionally for one channel
func (h *ModerationHandler) GetLogs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	var channelID *uuid.UUID
	if raw := c.Query("channel_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			ErrorResponse(c, http.StatusBadRequest, "Invalid channel ID")
			return
		}
		channelID = &id
	}

	logs, err := h.modRepo.GetLogs(channelID, limit)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get moderation logs")
		return
	}

	c.JSON(http.StatusOK, logs)
}
