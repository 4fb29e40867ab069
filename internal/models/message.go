package models

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID        uuid.UUID `json:"id" db:"id"`
	ChannelID uuid.UUID `json:"channel_id" db:"channel_id"`
	GuildID   uuid.UUID `json:"guild_id" db:"guild_id"`
	SenderID  uuid.UUID `json:"sender_id" db:"sender_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Sender    *User     `json:"sender,omitempty"`
}

type SendMessageRequest struct {
	ChannelID uuid.UUID `json:"channel_id" binding:"required"`
	Body      string    `json:"body" binding:"required,max=10000"`
}

type GetMessagesRequest struct {
	ChannelID uuid.UUID `form:"channel_id" binding:"required"`
	Limit     int       `form:"limit"`
	Offset    int       `form:"offset"`
}
