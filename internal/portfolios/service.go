package portfolios

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/models"
)

var (
	ErrNotFound  = errors.New("portfolio not found")
	ErrSlugTaken = errors.New("slug already in use")
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL-safe slug
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}

// CreateParams describes a new portfolio
type CreateParams struct {
	Title    string
	Slug     string // optional, derived from Title when empty
	Template string
	Content  models.Document
}

// UpdateParams is a partial update; nil fields are left unchanged
type UpdateParams struct {
	Title     *string
	Slug      *string
	Template  *string
	Content   models.Document
	Published *bool
}

// Service owns portfolio persistence. Every call is scoped to the owning user.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewService creates a portfolio service
func NewService(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// List returns the user's portfolios, most recently updated first
func (s *Service) List(ctx context.Context, userID string) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&portfolios).Error; err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	return portfolios, nil
}

// Create stores a new portfolio owned by userID
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*models.Portfolio, error) {
	db := s.db.WithContext(ctx)

	slug := Slugify(params.Slug)
	explicit := slug != ""
	if !explicit {
		slug = Slugify(params.Title)
		if slug == "" {
			slug = "portfolio"
		}
	}

	taken, err := s.slugTaken(db, slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		if explicit {
			return nil, ErrSlugTaken
		}
		// Derived slugs get a short unique suffix instead of failing
		slug = fmt.Sprintf("%s-%s", slug, strings.ToLower(ulid.Make().String()[20:]))
	}

	portfolio := &models.Portfolio{
		UserID:   userID,
		Title:    params.Title,
		Slug:     slug,
		Template: params.Template,
		Content:  params.Content,
	}
	if err := db.Create(portfolio).Error; err != nil {
		return nil, fmt.Errorf("failed to create portfolio: %w", err)
	}

	s.logger.Info().
		Str("portfolio_id", portfolio.ID).
		Str("user_id", userID).
		Str("slug", portfolio.Slug).
		Msg("Portfolio created")

	return portfolio, nil
}

// Get loads one portfolio. Portfolios of other users are reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return &portfolio, nil
}

// GetPublished finds a published portfolio by slug, regardless of owner
func (s *Service) GetPublished(ctx context.Context, slug string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	err := s.db.WithContext(ctx).Where("slug = ? AND published = ?", slug, true).First(&portfolio).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return &portfolio, nil
}

// Update applies a partial update
func (s *Service) Update(ctx context.Context, userID, id string, params UpdateParams) (*models.Portfolio, error) {
	portfolio, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	if params.Title != nil {
		portfolio.Title = *params.Title
	}
	if params.Template != nil {
		portfolio.Template = *params.Template
	}
	if params.Content != nil {
		portfolio.Content = params.Content
	}
	if params.Published != nil {
		portfolio.Published = *params.Published
	}
	if params.Slug != nil {
		slug := Slugify(*params.Slug)
		if slug == "" {
			return nil, fmt.Errorf("slug must contain letters or digits")
		}
		if slug != portfolio.Slug {
			taken, err := s.slugTaken(db, slug, portfolio.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrSlugTaken
			}
			portfolio.Slug = slug
		}
	}

	if err := db.Save(portfolio).Error; err != nil {
		return nil, fmt.Errorf("failed to update portfolio: %w", err)
	}
	return portfolio, nil
}

// Delete removes a portfolio and its SEO settings
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio_id = ?", id).Delete(&models.SEOSetting{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Portfolio{}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete portfolio: %w", err)
	}

	s.logger.Info().Str("portfolio_id", id).Str("user_id", userID).Msg("Portfolio deleted")
	return nil
}

func (s *Service) slugTaken(db *gorm.DB, slug, exceptID string) (bool, error) {
	query := db.Model(&models.Portfolio{}).Where("slug = ?", slug)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return count > 0, nil
}
