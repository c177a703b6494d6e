package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/models"
	"github.com/pagecraft-dev/pagecraft/internal/recent"
	"github.com/pagecraft-dev/pagecraft/internal/tasks"
)

// HandlePruneRecent trims one user's recently-used list of one type
func HandlePruneRecent(ctx context.Context, t *asynq.Task, svc *recent.Service, logger zerolog.Logger) error {
	payload, err := tasks.ParsePruneRecentPayload(t)
	if err != nil {
		// Malformed payloads will never succeed
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	deleted, err := svc.Prune(ctx, payload.UserID, payload.Type, payload.Keep)
	if err != nil {
		logger.Error().
			Err(err).
			Str("user_id", payload.UserID).
			Str("type", payload.Type).
			Msg("Failed to prune recent items")
		return err
	}

	logger.Info().
		Str("user_id", payload.UserID).
		Str("type", payload.Type).
		Int64("deleted", deleted).
		Msg("Pruned recent items")
	return nil
}

// HandlePurgeSessions deletes refresh tokens that have expired
func HandlePurgeSessions(ctx context.Context, _ *asynq.Task, db *gorm.DB, logger zerolog.Logger) error {
	deleted, err := PurgeExpiredSessions(ctx, db, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("Failed to purge expired sessions")
		return err
	}

	logger.Info().Int64("deleted", deleted).Msg("Purged expired sessions")
	return nil
}

// PurgeExpiredSessions removes refresh tokens that expired at or before now
func PurgeExpiredSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
