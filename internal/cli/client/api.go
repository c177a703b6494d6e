package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// User represents an account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// SocialIdentity is what the social-sync endpoint is told about an identity-provider session
type SocialIdentity struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Image    string `json:"image,omitempty"`
	Provider string `json:"provider,omitempty"`
	IDToken  string `json:"id_token,omitempty"`
}

// Portfolio represents a portfolio site
type Portfolio struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Template  string          `json:"template"`
	Content   json.RawMessage `json:"content"`
	Published bool            `json:"published"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PortfolioInput is the body of a create call
type PortfolioInput struct {
	Title    string          `json:"title"`
	Slug     string          `json:"slug,omitempty"`
	Template string          `json:"template,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
}

// PortfolioPatch is a partial update; nil fields are left alone
type PortfolioPatch struct {
	Title     *string         `json:"title,omitempty"`
	Slug      *string         `json:"slug,omitempty"`
	Template  *string         `json:"template,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Published *bool           `json:"published,omitempty"`
}

// SEOSettings are a portfolio's search metadata
type SEOSettings struct {
	PortfolioID  string    `json:"portfolio_id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Keywords     []string  `json:"keywords"`
	OGImage      string    `json:"og_image"`
	CanonicalURL string    `json:"canonical_url"`
	NoIndex      bool      `json:"no_index"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// RecentItem is one recently used piece of content
type RecentItem struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Content string    `json:"content"`
	UsedAt  time.Time `json:"used_at"`
}

// call runs req and decodes the envelope into out (which may be nil)
func (c *Client) call(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// Signup creates an account; the response sets the credential cookies
func (c *Client) Signup(ctx context.Context, email, password, name string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/signup",
		Body:   map[string]string{"email": email, "password": password, "name": name},
	}, &out)
	return out.User, err
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Body:   map[string]string{"email": email, "password": password},
	}, &out)
	return out.User, err
}

// Logout revokes the refresh token and clears the cookies
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, Request{Method: http.MethodPost, Path: "/auth/logout"}, nil)
}

// Me returns the user the credential cookies belong to
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.call(ctx, Request{Method: http.MethodGet, Path: "/auth/me"}, &out)
	return out.User, err
}

// SocialSync asks the backend to mint cookies for an identity-provider session
func (c *Client) SocialSync(ctx context.Context, identity SocialIdentity) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	err := c.call(ctx, Request{Method: http.MethodPost, Path: "/auth/social-sync", Body: identity}, &out)
	return out.User, err
}

// ListPortfolios lists the caller's portfolios. userID may be empty.
func (c *Client) ListPortfolios(ctx context.Context, userID string) ([]Portfolio, error) {
	req := Request{Method: http.MethodGet, Path: "/portfolios"}
	if userID != "" {
		req.Query = url.Values{"userId": {userID}}
	}
	var out struct {
		Portfolios []Portfolio `json:"portfolios"`
	}
	err := c.call(ctx, req, &out)
	return out.Portfolios, err
}

// CreatePortfolio creates a portfolio
func (c *Client) CreatePortfolio(ctx context.Context, input PortfolioInput) (*Portfolio, error) {
	var out struct {
		Portfolio *Portfolio `json:"portfolio"`
	}
	err := c.call(ctx, Request{Method: http.MethodPost, Path: "/portfolios/create", Body: input}, &out)
	return out.Portfolio, err
}

// GetPortfolio loads one portfolio
func (c *Client) GetPortfolio(ctx context.Context, id string) (*Portfolio, error) {
	var out struct {
		Portfolio *Portfolio `json:"portfolio"`
	}
	err := c.call(ctx, Request{Method: http.MethodGet, Path: "/portfolios/" + url.PathEscape(id)}, &out)
	return out.Portfolio, err
}

// UpdatePortfolio applies a partial update
func (c *Client) UpdatePortfolio(ctx context.Context, id string, patch PortfolioPatch) (*Portfolio, error) {
	var out struct {
		Portfolio *Portfolio `json:"portfolio"`
	}
	err := c.call(ctx, Request{Method: http.MethodPut, Path: "/portfolios/" + url.PathEscape(id), Body: patch}, &out)
	return out.Portfolio, err
}

// DeletePortfolio deletes a portfolio and its SEO settings
func (c *Client) DeletePortfolio(ctx context.Context, id string) error {
	return c.call(ctx, Request{Method: http.MethodDelete, Path: "/portfolios/" + url.PathEscape(id)}, nil)
}

// GetSEO loads a portfolio's SEO settings
func (c *Client) GetSEO(ctx context.Context, portfolioID string) (*SEOSettings, error) {
	var out struct {
		SEO *SEOSettings `json:"seo"`
	}
	err := c.call(ctx, Request{Method: http.MethodGet, Path: "/seo/" + url.PathEscape(portfolioID)}, &out)
	return out.SEO, err
}

// UpdateSEO replaces a portfolio's SEO settings
func (c *Client) UpdateSEO(ctx context.Context, portfolioID string, settings SEOSettings) (*SEOSettings, error) {
	var out struct {
		SEO *SEOSettings `json:"seo"`
	}
	err := c.call(ctx, Request{Method: http.MethodPut, Path: "/seo/" + url.PathEscape(portfolioID), Body: settings}, &out)
	return out.SEO, err
}

// ListRecent lists recently used items, newest first. Empty kind lists all types; limit 0 uses the server default.
func (c *Client) ListRecent(ctx context.Context, kind string, limit int) ([]RecentItem, error) {
	query := url.Values{}
	if kind != "" {
		query.Set("type", kind)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Items []RecentItem `json:"items"`
	}
	err := c.call(ctx, Request{Method: http.MethodGet, Path: "/recent", Query: query}, &out)
	return out.Items, err
}

// RecordRecent marks content of a type as just used
func (c *Client) RecordRecent(ctx context.Context, kind, content string) (*RecentItem, error) {
	var out struct {
		Item *RecentItem `json:"item"`
	}
	err := c.call(ctx, Request{
		Method: http.MethodPost,
		Path:   "/recent",
		Body:   map[string]string{"type": kind, "content": content},
	}, &out)
	return out.Item, err
}

// ServerInfo is what the server reports on /health
type ServerInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health queries /health on the site origin. It bypasses the interceptor
// since the endpoint needs no credentials.
func (c *Client) Health(ctx context.Context) (*ServerInfo, error) {
	target := c.SiteURL() + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Method: http.MethodGet, Path: "/health", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: kindForStatus(resp.StatusCode), Status: resp.StatusCode, Method: http.MethodGet, Path: "/health"}
	}

	var info ServerInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &info, nil
}
