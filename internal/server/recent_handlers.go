package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/pagecraft-dev/pagecraft/internal/tasks"
)

// RecordRecentRequest marks content of some type as just used
type RecordRecentRequest struct {
	Type    string `json:"type" binding:"required" validate:"slug,max=32"`
	Content string `json:"content" binding:"required" validate:"max=2048"`
}

// @Summary List recently used items
// @Tags recent
// @Produce json
// @Param type query string false "Item type"
// @Param limit query int false "Maximum items"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/recent [get]
func (s *Server) listRecent(c *gin.Context) {
	kind := c.Query("type")
	if kind != "" && !slugPattern.MatchString(kind) {
		respondError(c, http.StatusBadRequest, "type may only contain lowercase letters, digits and dashes")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	session, _ := GetSessionData(c)
	items, err := s.recentService.List(c.Request.Context(), session.UserID, kind, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list recent items")
		respondInternal(c)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"items": items})
}

// @Summary Record a recently used item
// @Description Upserts on (user, type, content); repeating an item only bumps its used_at
// @Tags recent
// @Accept json
// @Produce json
// @Param request body RecordRecentRequest true "Item"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/recent [post]
func (s *Server) recordRecent(c *gin.Context) {
	var req RecordRecentRequest
	if !s.bindJSON(c, &req) {
		return
	}

	session, _ := GetSessionData(c)
	ctx := c.Request.Context()

	result, err := s.recentService.Record(ctx, session.UserID, req.Type, req.Content)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to record recent item")
		respondInternal(c)
		return
	}

	if result.OverLimit {
		s.schedulePrune(c, session.UserID, req.Type)
	}

	respondOK(c, http.StatusOK, gin.H{"item": result.Item})
}

// schedulePrune hands trimming to the worker, falling back to pruning inline
func (s *Server) schedulePrune(c *gin.Context, userID, kind string) {
	ctx := c.Request.Context()
	keep := s.recentService.Limit()

	task, err := tasks.NewPruneRecentTask(userID, kind, keep)
	if err == nil {
		_, err = s.enqueuer.EnqueueContext(ctx, task)
	}
	if err == nil || errors.Is(err, asynq.ErrDuplicateTask) {
		// A prune for this list is already pending
		s.metrics.TasksEnqueued.WithLabelValues(tasks.TypePruneRecent, "success").Inc()
		return
	}

	s.metrics.TasksEnqueued.WithLabelValues(tasks.TypePruneRecent, "failure").Inc()
	s.logger.Warn().Err(err).Str("user_id", userID).Str("type", kind).Msg("Failed to enqueue prune task, pruning inline")

	if _, err := s.recentService.Prune(ctx, userID, kind, keep); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to prune recent items")
	}
}
