package seo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pagecraft-dev/pagecraft/internal/models"
)

// ErrNotFound is returned when the portfolio does not exist or belongs to someone else
var ErrNotFound = errors.New("portfolio not found")

const maxKeywords = 20

// Params is the full set of editable SEO fields
type Params struct {
	Title        string
	Description  string
	Keywords     []string
	OGImage      string
	CanonicalURL string
	NoIndex      bool
}

// Service reads and writes per-portfolio SEO settings
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates an SEO service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Get returns the settings for a portfolio, or empty defaults when none were saved yet
func (s *Service) Get(ctx context.Context, userID, portfolioID string) (*models.SEOSetting, error) {
	if err := s.checkOwner(ctx, userID, portfolioID); err != nil {
		return nil, err
	}

	var setting models.SEOSetting
	err := s.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.SEOSetting{PortfolioID: portfolioID, Keywords: []string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seo settings: %w", err)
	}
	if setting.Keywords == nil {
		setting.Keywords = []string{}
	}
	return &setting, nil
}

// ForPortfolio loads saved settings without an owner check, for public rendering.
// A portfolio without saved settings yields nil.
func (s *Service) ForPortfolio(ctx context.Context, portfolioID string) (*models.SEOSetting, error) {
	var setting models.SEOSetting
	err := s.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load seo settings: %w", err)
	}
	return &setting, nil
}

// Upsert replaces the settings for a portfolio
func (s *Service) Upsert(ctx context.Context, userID, portfolioID string, params Params) (*models.SEOSetting, error) {
	if err := s.checkOwner(ctx, userID, portfolioID); err != nil {
		return nil, err
	}

	setting := &models.SEOSetting{
		PortfolioID:  portfolioID,
		Title:        strings.TrimSpace(params.Title),
		Description:  strings.TrimSpace(params.Description),
		Keywords:     NormalizeKeywords(params.Keywords),
		OGImage:      params.OGImage,
		CanonicalURL: params.CanonicalURL,
		NoIndex:      params.NoIndex,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "portfolio_id"}},
		UpdateAll: true,
	}).Create(setting).Error
	if err != nil {
		return nil, fmt.Errorf("failed to save seo settings: %w", err)
	}

	s.logger.Debug().Str("portfolio_id", portfolioID).Msg("SEO settings saved")
	return setting, nil
}

// NormalizeKeywords trims, lowercases and de-duplicates keywords, keeping input order
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func (s *Service) checkOwner(ctx context.Context, userID, portfolioID string) error {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Portfolio{}).
		Where("id = ? AND user_id = ?", portfolioID, userID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check portfolio: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
