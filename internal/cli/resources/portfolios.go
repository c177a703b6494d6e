package resources

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
)

// PortfolioAPI is the part of the client the portfolios hook uses
type PortfolioAPI interface {
	ListPortfolios(ctx context.Context, userID string) ([]client.Portfolio, error)
	CreatePortfolio(ctx context.Context, input client.PortfolioInput) (*client.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*client.Portfolio, error)
	UpdatePortfolio(ctx context.Context, id string, patch client.PortfolioPatch) (*client.Portfolio, error)
	DeletePortfolio(ctx context.Context, id string) error
}

// Portfolios manages the user's portfolios
type Portfolios struct {
	state
	api PortfolioAPI
}

// NewPortfolios creates the portfolios hook
func NewPortfolios(api PortfolioAPI, logger zerolog.Logger) *Portfolios {
	return &Portfolios{state: state{logger: logger}, api: api}
}

func (p *Portfolios) List(ctx context.Context, userID string) Result[[]client.Portfolio] {
	return run(ctx, &p.state, "list_portfolios", "", func(ctx context.Context) ([]client.Portfolio, error) {
		return p.api.ListPortfolios(ctx, userID)
	})
}

func (p *Portfolios) Create(ctx context.Context, input client.PortfolioInput) Result[*client.Portfolio] {
	return run(ctx, &p.state, "create_portfolio", "Portfolio created", func(ctx context.Context) (*client.Portfolio, error) {
		return p.api.CreatePortfolio(ctx, input)
	})
}

func (p *Portfolios) Get(ctx context.Context, id string) Result[*client.Portfolio] {
	return run(ctx, &p.state, "get_portfolio", "", func(ctx context.Context) (*client.Portfolio, error) {
		return p.api.GetPortfolio(ctx, id)
	})
}

func (p *Portfolios) Update(ctx context.Context, id string, patch client.PortfolioPatch) Result[*client.Portfolio] {
	return run(ctx, &p.state, "update_portfolio", "Portfolio updated", func(ctx context.Context) (*client.Portfolio, error) {
		return p.api.UpdatePortfolio(ctx, id, patch)
	})
}

func (p *Portfolios) Delete(ctx context.Context, id string) Result[struct{}] {
	return run(ctx, &p.state, "delete_portfolio", "Portfolio deleted", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.api.DeletePortfolio(ctx, id)
	})
}
