package models

import (
	"time"

	"github.com/google/uuid"
)

// Channel is a named room inside a guild (community).
type Channel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	GuildID   uuid.UUID `json:"guild_id" db:"guild_id"`
	Name      string    `json:"name" db:"name"`
	Slug      string    `json:"slug" db:"slug"`
	IsSystem  bool      `json:"is_system" db:"is_system"` // receives welcome notices
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ChannelMember struct {
	ChannelID uuid.UUID `json:"channel_id" db:"channel_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
}

type CreateChannelRequest struct {
	GuildID  uuid.UUID `json:"guild_id" binding:"required"`
	Name     string    `json:"name" binding:"required,max=100"`
	Slug     string    `json:"slug" binding:"required,max=100"`
	IsSystem bool      `json:"is_system"`
}
