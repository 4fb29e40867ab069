package models

import (
	"time"

	"github.com/google/uuid"
)

// ModerationLog records actions taken by the guardian pipeline or moderators
type ModerationLog struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	GuildID        *uuid.UUID     `json:"guild_id,omitempty" db:"guild_id"`
	ChannelID      *uuid.UUID     `json:"channel_id,omitempty" db:"channel_id"`
	MessageID      *uuid.UUID     `json:"message_id,omitempty" db:"message_id"`
	Action         string         `json:"action" db:"action"` // violation, auto_mute, auto_unmute, manual_unmute
	TargetUserID   *uuid.UUID     `json:"target_user_id,omitempty" db:"target_user_id"`
	Category       *string        `json:"category,omitempty" db:"category"`
	Score          *float64       `json:"score,omitempty" db:"score"`
	Reason         *string        `json:"reason,omitempty" db:"reason"`
	ViolationCount *int           `json:"violation_count,omitempty" db:"violation_count"`
	Metadata       map[string]any `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// BannedWord represents a custom banned word for a channel
type BannedWord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ChannelID uuid.UUID `json:"channel_id" db:"channel_id"`
	Word      string    `json:"word" db:"word"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UserRestriction is the persisted side of an applied mute. The expiry timer
// itself lives in memory; rows left behind after a crash are visible to
// administrators but are not re-armed on startup.
type UserRestriction struct {
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	GuildID      uuid.UUID `json:"guild_id" db:"guild_id"`
	RestrictedAt time.Time `json:"restricted_at" db:"restricted_at"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	Reason       string    `json:"reason" db:"reason"`
}

// UpdatePolicyRequest is a partial policy update; nil fields keep their
// current values.
type UpdatePolicyRequest struct {
	Enabled                *bool      `json:"enabled,omitempty"`
	ToxicityThreshold      *float64   `json:"toxicity_threshold,omitempty"`
	SpamThreshold          *int       `json:"spam_threshold,omitempty"`
	AutoRestrictViolations *int       `json:"auto_restrict_violations,omitempty"`
	RestrictionSeconds     *int       `json:"restriction_seconds,omitempty"`
	ModLogChannelID        *uuid.UUID `json:"mod_log_channel_id,omitempty"`
}

type AddBannedWordRequest struct {
	Word string `json:"word" binding:"required,max=255"`
}
