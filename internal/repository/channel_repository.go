package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/database"
	"github.com/guardianplus/backend/internal/models"
)

type ChannelRepository struct {
	db *database.DB
}

func NewChannelRepository(db *database.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create creates a new channel
func (r *ChannelRepository) Create(channel *models.Channel) error {
	query := `
		INSERT INTO channels (id, guild_id, name, slug, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		channel.ID,
		channel.GuildID,
		channel.Name,
		channel.Slug,
		channel.IsSystem,
	).Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	return nil
}

// GetByID retrieves a channel by ID
func (r *ChannelRepository) GetByID(id uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, guild_id, name, slug, is_system, created_at, updated_at
		FROM channels
		WHERE id = $1
	`

	channel := &models.Channel{}
	err := r.db.QueryRow(query, id).Scan(
		&channel.ID,
		&channel.GuildID,
		&channel.Name,
		&channel.Slug,
		&channel.IsSystem,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("channel not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return channel, nil
}

// GetBySlug retrieves a channel by slug
func (r *ChannelRepository) GetBySlug(slug string) (*models.Channel, error) {
	query := `
		SELECT id, guild_id, name, slug, is_system, created_at, updated_at
		FROM channels
		WHERE slug = $1
	`

	channel := &models.Channel{}
	err := r.db.QueryRow(query, slug).Scan(
		&channel.ID,
		&channel.GuildID,
		&channel.Name,
		&channel.Slug,
		&channel.IsSystem,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("channel not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return channel, nil
}

// GetSystemChannel returns the guild's system (welcome) channel, if any
func (r *ChannelRepository) GetSystemChannel(guildID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, guild_id, name, slug, is_system, created_at, updated_at
		FROM channels
		WHERE guild_id = $1 AND is_system = TRUE
		ORDER BY created_at
		LIMIT 1
	`

	channel := &models.Channel{}
	err := r.db.QueryRow(query, guildID).Scan(
		&channel.ID,
		&channel.GuildID,
		&channel.Name,
		&channel.Slug,
		&channel.IsSystem,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get system channel: %w", err)
	}

	return channel, nil
}

// AddMember adds a user to a channel
func (r *ChannelRepository) AddMember(channelID, userID uuid.UUID) error {
	query := `
		INSERT INTO channel_members (channel_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (channel_id, user_id) DO NOTHING
	`

	if _, err := r.db.Exec(query, channelID, userID); err != nil {
		return fmt.Errorf("failed to add channel member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a channel
func (r *ChannelRepository) RemoveMember(channelID, userID uuid.UUID) error {
	query := `DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`

	if _, err := r.db.Exec(query, channelID, userID); err != nil {
		return fmt.Errorf("failed to remove channel member: %w", err)
	}
	return nil
}

// IsMember reports whether a user belongs to a channel
func (r *ChannelRepository) IsMember(channelID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM channel_members WHERE channel_id = $1 AND user_id = $2)`

	var exists bool
	if err := r.db.QueryRow(query, channelID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check channel membership: %w", err)
	}
	return exists, nil
}

// GetMemberIDs returns all member user ids of a channel
func (r *ChannelRepository) GetMemberIDs(channelID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM channel_members WHERE channel_id = $1`

	rows, err := r.db.Query(query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel members: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
