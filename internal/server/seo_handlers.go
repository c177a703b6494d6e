package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft-dev/pagecraft/internal/seo"
)

// UpdateSEORequest replaces a portfolio's SEO settings
type UpdateSEORequest struct {
	Title        string   `json:"title" validate:"max=70"`
	Description  string   `json:"description" validate:"max=320"`
	Keywords     []string `json:"keywords" validate:"max=50,dive,max=50"`
	OGImage      string   `json:"og_image" validate:"omitempty,url"`
	CanonicalURL string   `json:"canonical_url" validate:"omitempty,url"`
	NoIndex      bool     `json:"no_index"`
}

func (s *Server) seoError(c *gin.Context, err error) {
	if errors.Is(err, seo.ErrNotFound) {
		respondError(c, http.StatusNotFound, "Portfolio not found")
		return
	}
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("SEO request failed")
	respondInternal(c)
}

// @Summary Get SEO settings
// @Tags seo
// @Produce json
// @Param id path string true "Portfolio ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/seo/{id} [get]
func (s *Server) getSEO(c *gin.Context) {
	session, _ := GetSessionData(c)

	setting, err := s.seoService.Get(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		s.seoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"seo": setting})
}

// @Summary Update SEO settings
// @Tags seo
// @Accept json
// @Produce json
// @Param id path string true "Portfolio ID"
// @Param request body UpdateSEORequest true "SEO settings"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/seo/{id} [put]
func (s *Server) updateSEO(c *gin.Context) {
	var req UpdateSEORequest
	if !s.bindJSON(c, &req) {
		return
	}

	session, _ := GetSessionData(c)
	setting, err := s.seoService.Upsert(c.Request.Context(), session.UserID, c.Param("id"), seo.Params{
		Title:        req.Title,
		Description:  req.Description,
		Keywords:     req.Keywords,
		OGImage:      req.OGImage,
		CanonicalURL: req.CanonicalURL,
		NoIndex:      req.NoIndex,
	})
	if err != nil {
		s.seoError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"message": "SEO settings saved", "seo": setting})
}
