package guardian

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Verdict is the normalized outcome of toxicity classification for one message.
type Verdict struct {
	Score      float64  `json:"toxicity_score"`
	Categories []string `json:"categories"`
	Reason     string   `json:"reason"`
	// Failed marks a classification that could not be completed. Failed
	// verdicts carry a zero score and never escalate (fail-open).
	Failed bool `json:"-"`
}

// Message is an inbound chat message as seen by the moderation pipeline.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ChannelID uuid.UUID `json:"channel_id"`
	GuildID   uuid.UUID `json:"guild_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// AuditRecord captures a single moderation action for the mod log.
type AuditRecord struct {
	UserID         uuid.UUID `json:"user_id"`
	GuildID        uuid.UUID `json:"guild_id"`
	ChannelID      uuid.UUID `json:"channel_id,omitempty"`
	MessageID      uuid.UUID `json:"message_id,omitempty"`
	Action         string    `json:"action"` // violation, auto_mute, auto_unmute, manual_unmute
	Category       string    `json:"category,omitempty"`
	Score          float64   `json:"score,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ViolationCount int       `json:"violation_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Classifier scores message text for toxicity. Implementations must not
// return errors; a failed classification is reported through Verdict.Failed.
type Classifier interface {
	Classify(ctx context.Context, text string) Verdict
}

// ChatTransport is the delivery side of the chat system. All calls are
// best-effort from the pipeline's point of view.
type ChatTransport interface {
	DeleteMessage(ctx context.Context, messageID uuid.UUID) error
	SendWarning(ctx context.Context, userID uuid.UUID, text string) error
	SendChannelNotice(ctx context.Context, channelID uuid.UUID, text string) error
}

// Restrictor applies and removes the "no communication" capability.
type Restrictor interface {
	ApplyRestriction(ctx context.Context, userID, guildID uuid.UUID, expiresAt time.Time) error
	RemoveRestriction(ctx context.Context, userID, guildID uuid.UUID) error
}

// AuditSink receives moderation audit records.
type AuditSink interface {
	Emit(ctx context.Context, rec AuditRecord) error
}

// WordList supplies per-channel banned words for the lexical fast path.
type WordList interface {
	BannedWords(ctx context.Context, channelID uuid.UUID) ([]string, error)
}
