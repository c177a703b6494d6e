package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft-dev/pagecraft/internal/auth"
)

// Credential cookie names
const (
	AccessCookie  = "pc_access"
	RefreshCookie = "pc_refresh"
)

func (s *Server) setAuthCookies(c *gin.Context, pair *auth.TokenPair) {
	now := time.Now()
	s.writeCookie(c, AccessCookie, pair.AccessToken, "/", int(pair.AccessExpiresAt.Sub(now).Seconds()))
	s.writeCookie(c, RefreshCookie, pair.RefreshToken, "/", int(pair.RefreshExpiresAt.Sub(now).Seconds()))
}

func (s *Server) clearAuthCookies(c *gin.Context) {
	s.writeCookie(c, AccessCookie, "", "/", -1)
	s.writeCookie(c, RefreshCookie, "", "/", -1)
}

func (s *Server) writeCookie(c *gin.Context, name, value, path string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   s.config.Auth.CookieDomain,
		MaxAge:   maxAge,
		Secure:   s.config.Auth.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
