package resources

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
)

// SEOAPI is the part of the client the SEO hook uses
type SEOAPI interface {
	GetSEO(ctx context.Context, portfolioID string) (*client.SEOSettings, error)
	UpdateSEO(ctx context.Context, portfolioID string, settings client.SEOSettings) (*client.SEOSettings, error)
}

// SEO manages a portfolio's search metadata
type SEO struct {
	state
	api SEOAPI
}

func NewSEO(api SEOAPI, logger zerolog.Logger) *SEO {
	return &SEO{state: state{logger: logger}, api: api}
}

func (s *SEO) Get(ctx context.Context, portfolioID string) Result[*client.SEOSettings] {
	return run(ctx, &s.state, "get_seo", "", func(ctx context.Context) (*client.SEOSettings, error) {
		return s.api.GetSEO(ctx, portfolioID)
	})
}

func (s *SEO) Update(ctx context.Context, portfolioID string, settings client.SEOSettings) Result[*client.SEOSettings] {
	return run(ctx, &s.state, "update_seo", "SEO settings saved", func(ctx context.Context) (*client.SEOSettings, error) {
		return s.api.UpdateSEO(ctx, portfolioID, settings)
	})
}
