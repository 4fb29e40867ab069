package models

import (
	"time"

	"github.com/google/uuid"
)

// WebSocket event types
const (
	EventMessageSend      = "message.send"
	EventMessageNew       = "message.new"
	EventMessageDeleted   = "message.deleted"
	EventModerationWarn   = "moderation.warning"
	EventModerationNotice = "moderation.notice"
	EventUserRestricted   = "user.restricted"
	EventUserUnrestricted = "user.unrestricted"
	EventPresenceUpdate   = "presence.update"
	EventError            = "error"
)

type WSMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type WSMessageSendPayload struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Body      string    `json:"body"`
}

type WSMessageDeletedPayload struct {
	MessageID uuid.UUID `json:"message_id"`
	ChannelID uuid.UUID `json:"channel_id"`
}

// WSWarningPayload is delivered only to the warned user.
type WSWarningPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Text   string    `json:"text"`
}

type WSNoticePayload struct {
	ChannelID uuid.UUID `json:"channel_id"`
	Text      string    `json:"text"`
}

type WSRestrictionPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	GuildID   uuid.UUID `json:"guild_id"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type WSErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}
