package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/guardianplus/backend/internal/database"
	"github.com/guardianplus/backend/internal/models"
)

type ModerationRepository struct {
	db *database.DB
}

func NewModerationRepository(db *database.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

// AddBannedWord adds a banned word for a channel
func (r *ModerationRepository) AddBannedWord(channelID uuid.UUID, word string) error {
	query := `INSERT INTO channel_banned_words (id, channel_id, word, created_at) VALUES ($1,$2,$3,NOW()) ON CONFLICT (channel_id, word) DO NOTHING`
	_, err := r.db.Exec(query, uuid.New(), channelID, word)
	if err != nil {
		return fmt.Errorf("failed to add banned word: %w", err)
	}
	return nil
}

func (r *ModerationRepository) RemoveBannedWord(channelID uuid.UUID, word string) error {
	query := `DELETE FROM channel_banned_words WHERE channel_id = $1 AND word = $2`
	_, err := r.db.Exec(query, channelID, word)
	if err != nil {
		return fmt.Errorf("failed to remove banned word: %w", err)
	}
	return nil
}

func (r *ModerationRepository) GetBannedWords(channelID uuid.UUID) ([]models.BannedWord, error) {
	query := `SELECT id, channel_id, word, created_at FROM channel_banned_words WHERE channel_id = $1`
	rows, err := r.db.Query(query, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query banned words: %w", err)
	}
	defer rows.Close()

	res := []models.BannedWord{}
	for rows.Next() {
		var b models.BannedWord
		if err := rows.Scan(&b.ID, &b.ChannelID, &b.Word, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan banned word: %w", err)
		}
		res = append(res, b)
	}
	return res, nil
}

// AddLog records a moderation action
func (r *ModerationRepository) AddLog(log *models.ModerationLog) error {
	meta := sql.NullString{}
	if log.Metadata != nil {
		if b, err := json.Marshal(log.Metadata); err == nil {
			meta = sql.NullString{String: string(b), Valid: true}
		}
	}

	query := `INSERT INTO moderation_logs (id, guild_id, channel_id, message_id, action, target_user_id, category, score, reason, violation_count, metadata, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW())`
	if _, err := r.db.Exec(query, log.ID, log.GuildID, log.ChannelID, log.MessageID, log.Action, log.TargetUserID, log.Category, log.Score, log.Reason, log.ViolationCount, meta); err != nil {
		return fmt.Errorf("failed to insert moderation log: %w", err)
	}
	return nil
}

// GetLogs retrieves recent moderation logs, optionally filtered by channel
func (r *ModerationRepository) GetLogs(channelID *uuid.UUID, limit int) ([]models.ModerationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, guild_id, channel_id, message_id, action, target_user_id, category, score, reason, violation_count, metadata, created_at FROM moderation_logs`
	args := []interface{}{}
	if channelID != nil {
		query += ` WHERE channel_id = $1`
		args = append(args, *channelID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation logs: %w", err)
	}
	defer rows.Close()

	res := []models.ModerationLog{}
	for rows.Next() {
		var m models.ModerationLog
		var meta sql.NullString
		if err := rows.Scan(&m.ID, &m.GuildID, &m.ChannelID, &m.MessageID, &m.Action, &m.TargetUserID, &m.Category, &m.Score, &m.Reason, &m.ViolationCount, &meta, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan moderation log: %w", err)
		}
		if meta.Valid {
			var mm map[string]any
			_ = json.Unmarshal([]byte(meta.String), &mm)
			m.Metadata = mm
		}
		res = append(res, m)
	}
	return res, nil
}

// ApplyRestriction upserts the persisted side of a mute. Re-applying resets
// restricted_at and expires_at instead of stacking.
func (r *ModerationRepository) ApplyRestriction(userID, guildID uuid.UUID, res *models.UserRestriction) error {
	query := `
		INSERT INTO user_restrictions (user_id, guild_id, restricted_at, expires_at, reason)
		VALUES ($1, $2, NOW(), $3, $4)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET restricted_at = NOW(), expires_at = EXCLUDED.expires_at, reason = EXCLUDED.reason
	`
	if _, err := r.db.Exec(query, userID, guildID, res.ExpiresAt, res.Reason); err != nil {
		return fmt.Errorf("failed to apply restriction: %w", err)
	}
	return nil
}

// RemoveRestriction deletes the persisted restriction row
func (r *ModerationRepository) RemoveRestriction(userID, guildID uuid.UUID) error {
	query := `DELETE FROM user_restrictions WHERE user_id = $1 AND guild_id = $2`
	if _, err := r.db.Exec(query, userID, guildID); err != nil {
		return fmt.Errorf("failed to remove restriction: %w", err)
	}
	return nil
}

// GetRestriction returns a user's active restriction, nil when none exists
func (r *ModerationRepository) GetRestriction(userID, guildID uuid.UUID) (*models.UserRestriction, error) {
	query := `SELECT user_id, guild_id, restricted_at, expires_at, reason FROM user_restrictions WHERE user_id = $1 AND guild_id = $2`

	res := &models.UserRestriction{}
	err := r.db.QueryRow(query, userID, guildID).Scan(&res.UserID, &res.GuildID, &res.RestrictedAt, &res.ExpiresAt, &res.Reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restriction: %w", err)
	}
	return res, nil
}
