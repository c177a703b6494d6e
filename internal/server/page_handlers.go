package server

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft-dev/pagecraft/internal/auth"
	"github.com/pagecraft-dev/pagecraft/internal/models"
	"github.com/pagecraft-dev/pagecraft/internal/portfolios"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// pageData feeds the "page" template
type pageData struct {
	Title   string
	Heading string
	Body    string
	Email   string
	Form    string // "login" or "signup"
	SEO     *models.SEOSetting
}

// portfolioPageData feeds the "portfolio" template
type portfolioPageData struct {
	Title     string
	SEO       *models.SEOSetting
	Portfolio *models.Portfolio
}

var staticPages = map[string]pageData{
	"/": {
		Title:   "Pagecraft",
		Heading: "Build your portfolio",
		Body:    "Pick a template, fill in your work and publish.",
	},
	"/about": {
		Title:   "About · Pagecraft",
		Heading: "About",
		Body:    "Pagecraft is a portfolio builder with SEO controls built in.",
	},
	"/pricing": {
		Title:   "Pricing · Pagecraft",
		Heading: "Pricing",
		Body:    "Free while in beta.",
	},
	"/login": {
		Title:   "Sign in · Pagecraft",
		Heading: "Sign in",
		Form:    "login",
	},
	"/signup": {
		Title:   "Create account · Pagecraft",
		Heading: "Create account",
		Form:    "signup",
	},
	"/dashboard": {
		Title:   "Dashboard · Pagecraft",
		Heading: "Your portfolios",
		Body:    "Manage portfolios and their SEO settings.",
	},
	"/match": {
		Title:   "Templates · Pagecraft",
		Heading: "Find a template",
		Body:    "Templates matched to your recent choices.",
	},
}

func (s *Server) setupPages() {
	tmpl := template.Must(template.New("").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.tmpl"))
	s.router.SetHTMLTemplate(tmpl)

	for path := range staticPages {
		s.router.GET(path, s.renderPage)
	}
	// Protected sections own everything below them
	for _, prefix := range s.guardRules.ProtectedPrefixes {
		if _, ok := staticPages[prefix]; ok {
			s.router.GET(prefix+"/*rest", s.renderPage)
		}
	}
	s.router.GET("/p/:slug", s.renderPortfolio)
}

func (s *Server) renderPage(c *gin.Context) {
	data := staticPages[strings.TrimSuffix(c.FullPath(), "/*rest")]

	// Access tokens may have expired while the refresh cookie is still good; the
	// name is only shown when the access token can be read.
	if token, err := c.Cookie(AccessCookie); err == nil {
		if claims, err := s.issuer.Validate(token, auth.TokenAccess); err == nil {
			data.Email = claims.Email
		}
	}

	c.HTML(http.StatusOK, "page", data)
}

// renderPortfolio serves a published portfolio with its SEO metadata
func (s *Server) renderPortfolio(c *gin.Context) {
	ctx := c.Request.Context()

	portfolio, err := s.portfoliosService.GetPublished(ctx, c.Param("slug"))
	if err != nil {
		if !errors.Is(err, portfolios.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Failed to load published portfolio")
		}
		c.HTML(http.StatusNotFound, "page", pageData{
			Title:   "Not found · Pagecraft",
			Heading: "Not found",
			Body:    "This portfolio does not exist or is not published.",
		})
		return
	}

	setting, err := s.seoService.ForPortfolio(ctx, portfolio.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("portfolio_id", portfolio.ID).Msg("Failed to load SEO settings")
	}

	title := portfolio.Title
	if setting != nil && setting.Title != "" {
		title = setting.Title
	}

	c.HTML(http.StatusOK, "portfolio", portfolioPageData{
		Title:     title,
		SEO:       setting,
		Portfolio: portfolio,
	})
}
