package moderator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/cache"
	"github.com/guardianplus/backend/internal/guardian"
	"github.com/guardianplus/backend/internal/models"
	"github.com/guardianplus/backend/internal/repository"
)

// Bot feeds inbound chat messages into the guardian engine. It subscribes to
// the redis messages channel and hands each message.new event to the engine's
// per-user lanes, so one slow classification never blocks other users.
type Bot struct {
	redis   *cache.RedisClient
	engine  *guardian.Engine
	botUser string // display name used in greetings
	chRepo  *repository.ChannelRepository
}

// NewBot creates a new moderation bot instance
func NewBot(redis *cache.RedisClient, engine *guardian.Engine, chRepo *repository.ChannelRepository, botUser string) *Bot {
	return &Bot{
		redis:   redis,
		engine:  engine,
		chRepo:  chRepo,
		botUser: botUser,
	}
}

// Run starts listening for messages and feeding them to the engine
func (b *Bot) Run() {
	if b.redis == nil {
		log.Println("Moderation bot requires Redis; not started")
		return
	}

	ps := b.redis.SubscribeToMessages()
	defer ps.Close()

	ch := ps.Channel()
	log.Println("Moderation bot started and listening to messages")
	for msg := range ch {
		var ws models.WSMessage
		if err := json.Unmarshal([]byte(msg.Payload), &ws); err != nil {
			continue
		}
		if ws.Event != models.EventMessageNew {
			continue
		}
		// payload -> message
		raw, _ := json.Marshal(ws.Payload)
		var m models.Message
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}

		b.engine.Enqueue(guardian.Message{
			ID:        m.ID,
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
			SenderID:  m.SenderID,
			Body:      m.Body,
			SentAt:    m.CreatedAt,
		})
	}
}

// Welcome greets a user who joined the guild: a notice in the system channel
// and a best-effort direct greeting. Both failures are swallowed.
func (b *Bot) Welcome(ctx context.Context, transport guardian.ChatTransport, user *models.User, guildID uuid.UUID) {
	system, err := b.chRepo.GetSystemChannel(guildID)
	if err != nil {
		log.Printf("Failed to look up system channel: %v", err)
	}
	if system != nil {
		notice := fmt.Sprintf("Welcome %s! Say hi in #%s.", user.DisplayName, system.Slug)
		if err := transport.SendChannelNotice(ctx, system.ID, notice); err != nil {
			log.Printf("Failed to send welcome notice: %v", err)
		}
	}

	greeting := fmt.Sprintf("Welcome! I'm %s, this community's moderation bot. Please keep it friendly.", b.botUser)
	if err := transport.SendWarning(ctx, user.ID, greeting); err != nil {
		log.Printf("Could not DM %s: %v", user.DisplayName, err)
	}
}
