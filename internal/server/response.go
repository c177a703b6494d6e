package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Every JSON response carries "success" and, on failure, a human readable "message".

func respondOK(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func respondInternal(c *gin.Context) {
	respondError(c, http.StatusInternalServerError, "Internal server error")
}

// bindJSON binds the body and runs the struct validator, answering 400 on failure
func (s *Server) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return false
	}
	if err := s.validator.Struct(req); err != nil {
		respondError(c, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
