package moderator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/guardian"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/repository"
)

// Transport implements guardian.ChatTransport on top of the message store and
// the redis moderation channel. The websocket hub picks the events up and
// fans them out to connected clients.
type Transport struct {
	redis   *cache.RedisClient
	msgRepo *repository.MessageRepository
}

func NewTransport(redis *cache.RedisClient, msgRepo *repository.MessageRepository) *Transport {
	return &Transport{redis: redis, msgRepo: msgRepo}
}

func (t *Transport) DeleteMessage(_ context.Context, messageID uuid.UUID) error {
	// look the message up first so the deletion event can carry its channel
	var channelID uuid.UUID
	if msg, err := t.msgRepo.GetByID(messageID); err == nil {
		channelID = msg.ChannelID
	}

	if err := t.msgRepo.Delete(messageID); err != nil {
		return err
	}

	event := models.WSMessage{
		Event: models.EventMessageDeleted,
		Payload: models.WSMessageDeletedPayload{
			MessageID: messageID,
			ChannelID: channelID,
		},
	}
	if err := t.redis.PublishModeration(event); err != nil {
		// the row is gone either way; clients will miss the live event only
		log.Printf("Failed to publish deletion event for %s: %v", messageID, err)
	}
	return nil
}

func (t *Transport) SendWarning(_ context.Context, userID uuid.UUID, text string) error {
	event := models.WSMessage{
		Event: models.EventModerationWarn,
		Payload: models.WSWarningPayload{
			UserID: userID,
			Text:   text,
		},
	}
	return t.redis.PublishModeration(event)
}

func (t *Transport) SendChannelNotice(_ context.Context, channelID uuid.UUID, text string) error {
	event := models.WSMessage{
		Event: models.EventModerationNotice,
		Payload: models.WSNoticePayload{
			ChannelID: channelID,
			Text:      text,
		},
	}
	return t.redis.PublishModeration(event)
}

// Restrictor implements guardian.Restrictor: it persists the restriction row
// (which the message handler consults on send) and announces the change.
type Restrictor struct {
	redis   *cache.RedisClient
	modRepo *repository.ModerationRepository
}

func NewRestrictor(redis *cache.RedisClient, modRepo *repository.ModerationRepository) *Restrictor {
	return &Restrictor{redis: redis, modRepo: modRepo}
}

func (r *Restrictor) ApplyRestriction(_ context.Context, userID, guildID uuid.UUID, expiresAt time.Time) error {
	res := &models.UserRestriction{
		UserID:    userID,
		GuildID:   guildID,
		ExpiresAt: expiresAt,
		Reason:    "auto-muted: exceeded violation threshold",
	}
	if err := r.modRepo.ApplyRestriction(userID, guildID, res); err != nil {
		return err
	}

	event := models.WSMessage{
		Event: models.EventUserRestricted,
		Payload: models.WSRestrictionPayload{
			UserID:    userID,
			GuildID:   guildID,
			ExpiresAt: expiresAt,
		},
	}
	if err := r.redis.PublishModeration(event); err != nil {
		log.Printf("Failed to publish restriction event for %s: %v", userID, err)
	}
	return nil
}

func (r *Restrictor) RemoveRestriction(_ context.Context, userID, guildID uuid.UUID) error {
	if err := r.modRepo.RemoveRestriction(userID, guildID); err != nil {
		return err
	}

	event := models.WSMessage{
		Event: models.EventUserUnrestricted,
		Payload: models.WSRestrictionPayload{
			UserID:  userID,
			GuildID: guildID,
		},
	}
	if err := r.redis.PublishModeration(event); err != nil {
		log.Printf("Failed to publish unrestriction event for %s: %v", userID, err)
	}
	return nil
}

// AuditLogger implements guardian.AuditSink. Records are persisted to the
// moderation log table and, when a mod-log channel is configured, mirrored
// there as a notice.
type AuditLogger struct {
	modRepo   *repository.ModerationRepository
	transport guardian.ChatTransport
	policy    *guardian.PolicyStore
}

func NewAuditLogger(modRepo *repository.ModerationRepository, transport guardian.ChatTransport, policy *guardian.PolicyStore) *AuditLogger {
	return &AuditLogger{modRepo: modRepo, transport: transport, policy: policy}
}

func (a *AuditLogger) Emit(ctx context.Context, rec guardian.AuditRecord) error {
	entry := &models.ModerationLog{
		ID:        uuid.New(),
		Action:    rec.Action,
		CreatedAt: rec.CreatedAt,
	}
	if rec.GuildID != uuid.Nil {
		entry.GuildID = &rec.GuildID
	}
	if rec.ChannelID != uuid.Nil {
		entry.ChannelID = &rec.ChannelID
	}
	if rec.MessageID != uuid.Nil {
		entry.MessageID = &rec.MessageID
	}
	if rec.UserID != uuid.Nil {
		entry.TargetUserID = &rec.UserID
	}
	if rec.Category != "" {
		entry.Category = &rec.Category
	}
	if rec.Score != 0 {
		entry.Score = &rec.Score
	}
	if rec.Reason != "" {
		entry.Reason = &rec.Reason
	}
	if rec.ViolationCount != 0 {
		entry.ViolationCount = &rec.ViolationCount
	}

	if err := a.modRepo.AddLog(entry); err != nil {
		return err
	}

	if modLog := a.policy.Snapshot().ModLogChannelID; modLog != nil {
		notice := formatAuditNotice(rec)
		if err := a.transport.SendChannelNotice(ctx, *modLog, notice); err != nil {
			log.Printf("Failed to mirror audit record to mod-log channel: %v", err)
		}
	}
	return nil
}

func formatAuditNotice(rec guardian.AuditRecord) string {
	switch rec.Action {
	case "violation":
		return fmt.Sprintf("Content violation by %s in %s: %s (score %.2f) - %s [violation %d]",
			rec.UserID, rec.ChannelID, rec.Category, rec.Score, rec.Reason, rec.ViolationCount)
	case "auto_unmute":
		return fmt.Sprintf("User %s has been unmuted (restriction expired)", rec.UserID)
	case "manual_unmute":
		return fmt.Sprintf("User %s has been unmuted by an administrator", rec.UserID)
	default:
		return fmt.Sprintf("Moderation action %s for user %s: %s", rec.Action, rec.UserID, rec.Reason)
	}
}

// WordList adapts the moderation repository to guardian.WordList.
type WordList struct {
	modRepo *repository.ModerationRepository
}

func NewWordList(modRepo *repository.ModerationRepository) *WordList {
	return &WordList{modRepo: modRepo}
}

func (w *WordList) BannedWords(_ context.Context, channelID uuid.UUID) ([]string, error) {
	banned, err := w.modRepo.GetBannedWords(channelID)
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(banned))
	for _, b := range banned {
		words = append(words, b.Word)
	}
	return words, nil
}
