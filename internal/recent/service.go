package recent

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagecraft-dev/pagecraft/internal/models"
)

// DefaultLimit is how many items per (user, type) are listed and kept
const DefaultLimit = 10

// RecordResult reports the stored row and whether the list grew past its limit
type RecordResult struct {
	Item      models.RecentItem
	Count     int64
	OverLimit bool
}

// Service tracks recently used items
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
	limit  int
	now    func() time.Time
}

// NewService creates a recently-used service keeping limit items per (user, type)
func NewService(db *gorm.DB, logger zerolog.Logger, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{db: db, logger: logger, limit: limit, now: time.Now}
}

// Limit returns the per-type retention limit
func (s *Service) Limit() int {
	return s.limit
}

// Record upserts (user, type, content). An existing row only has used_at bumped.
func (s *Service) Record(ctx context.Context, userID, kind, content string) (*RecordResult, error) {
	db := s.db.WithContext(ctx)

	item := models.RecentItem{
		UserID:  userID,
		Type:    kind,
		Content: content,
		UsedAt:  s.now().UTC(),
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}, {Name: "content"}},
		DoUpdates: clause.AssignmentColumns([]string{"used_at"}),
	}).Create(&item).Error
	if err != nil {
		return nil, fmt.Errorf("failed to record recent item: %w", err)
	}

	// The conflict path keeps the original row id, so read it back
	var stored models.RecentItem
	if err := db.Where("user_id = ? AND type = ? AND content = ?", userID, kind, content).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent item: %w", err)
	}

	var count int64
	if err := db.Model(&models.RecentItem{}).
		Where("user_id = ? AND type = ?", userID, kind).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count recent items: %w", err)
	}

	return &RecordResult{
		Item:      stored,
		Count:     count,
		OverLimit: count > int64(s.limit),
	}, nil
}

// List returns the user's items, most recent first. An empty kind lists every type.
func (s *Service) List(ctx context.Context, userID, kind string, limit int) ([]models.RecentItem, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		query = query.Where("type = ?", kind)
	}

	items := []models.RecentItem{}
	if err := query.Order("used_at DESC").Order("id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent items: %w", err)
	}
	return items, nil
}

// Prune deletes everything but the newest keep items for (user, type)
func (s *Service) Prune(ctx context.Context, userID, kind string, keep int) (int64, error) {
	if keep <= 0 {
		keep = s.limit
	}
	db := s.db.WithContext(ctx)

	var ids []string
	if err := db.Model(&models.RecentItem{}).
		Where("user_id = ? AND type = ?", userID, kind).
		Order("used_at DESC").Order("id DESC").
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to list recent items: %w", err)
	}
	if len(ids) <= keep {
		return 0, nil
	}

	result := db.Where("id IN ?", ids[keep:]).Delete(&models.RecentItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune recent items: %w", result.Error)
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("type", kind).
		Int64("deleted", result.RowsAffected).
		Msg("Pruned recent items")

	return result.RowsAffected, nil
}
