package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft-dev/pagecraft/internal/models"
	"github.com/pagecraft-dev/pagecraft/internal/portfolios"
)

// CreatePortfolioRequest represents a new portfolio
type CreatePortfolioRequest struct {
	Title    string          `json:"title" binding:"required" validate:"max=120"`
	Slug     string          `json:"slug" validate:"omitempty,slug,max=60"`
	Template string          `json:"template" validate:"max=60"`
	Content  json.RawMessage `json:"content"`
}

// UpdatePortfolioRequest is a partial update; omitted fields are unchanged
type UpdatePortfolioRequest struct {
	Title     *string         `json:"title" validate:"omitempty,min=1,max=120"`
	Slug      *string         `json:"slug" validate:"omitempty,slug,max=60"`
	Template  *string         `json:"template" validate:"omitempty,max=60"`
	Content   json.RawMessage `json:"content"`
	Published *bool           `json:"published"`
}

// validDocument accepts an absent document or any JSON object
func validDocument(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return true
	}
	var obj map[string]interface{}
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}

func (s *Server) portfolioError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, portfolios.ErrNotFound):
		respondError(c, http.StatusNotFound, "Portfolio not found")
	case errors.Is(err, portfolios.ErrSlugTaken):
		respondError(c, http.StatusConflict, "Slug already in use")
	default:
		s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Portfolio request failed")
		respondInternal(c)
	}
}

// @Summary List portfolios
// @Description Lists the caller's portfolios. A userId other than the caller's is forbidden.
// @Tags portfolios
// @Produce json
// @Param userId query string false "Owner ID (must be the caller)"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/portfolios [get]
func (s *Server) listPortfolios(c *gin.Context) {
	session, _ := GetSessionData(c)

	if owner := c.Query("userId"); owner != "" && owner != session.UserID {
		respondError(c, http.StatusForbidden, "You can only list your own portfolios")
		return
	}

	list, err := s.portfoliosService.List(c.Request.Context(), session.UserID)
	if err != nil {
		s.portfolioError(c, err)
		return
	}
	if list == nil {
		list = []models.Portfolio{}
	}

	respondOK(c, http.StatusOK, gin.H{"portfolios": list})
}

// @Summary Create portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Param request body CreatePortfolioRequest true "Portfolio"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/portfolios/create [post]
func (s *Server) createPortfolio(c *gin.Context) {
	var req CreatePortfolioRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(c, http.StatusBadRequest, "title is required")
		return
	}
	if !validDocument(req.Content) {
		respondError(c, http.StatusBadRequest, "content must be a JSON object")
		return
	}

	session, _ := GetSessionData(c)
	portfolio, err := s.portfoliosService.Create(c.Request.Context(), session.UserID, portfolios.CreateParams{
		Title:    strings.TrimSpace(req.Title),
		Slug:     req.Slug,
		Template: req.Template,
		Content:  models.Document(req.Content),
	})
	if err != nil {
		s.portfolioError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"message": "Portfolio created", "portfolio": portfolio})
}

// @Summary Get portfolio
// @Tags portfolios
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/portfolios/{id} [get]
func (s *Server) getPortfolio(c *gin.Context) {
	session, _ := GetSessionData(c)

	portfolio, err := s.portfoliosService.Get(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		s.portfolioError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"portfolio": portfolio})
}

// @Summary Update portfolio
// @Tags portfolios
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body UpdatePortfolioRequest true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/portfolios/{id} [put]
func (s *Server) updatePortfolio(c *gin.Context) {
	var req UpdatePortfolioRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if !validDocument(req.Content) {
		respondError(c, http.StatusBadRequest, "content must be a JSON object")
		return
	}

	params := portfolios.UpdateParams{
		Title:     req.Title,
		Slug:      req.Slug,
		Template:  req.Template,
		Published: req.Published,
	}
	if len(req.Content) > 0 {
		params.Content = models.Document(req.Content)
	}

	session, _ := GetSessionData(c)
	portfolio, err := s.portfoliosService.Update(c.Request.Context(), session.UserID, c.Param("id"), params)
	if err != nil {
		s.portfolioError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "Portfolio updated", "portfolio": portfolio})
}

// @Summary Delete portfolio
// @Tags portfolios
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/portfolios/{id} [delete]
func (s *Server) deletePortfolio(c *gin.Context) {
	session, _ := GetSessionData(c)

	if err := s.portfoliosService.Delete(c.Request.Context(), session.UserID, c.Param("id")); err != nil {
		s.portfolioError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "Portfolio deleted"})
}
