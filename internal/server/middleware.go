package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/auth"
	"github.com/pagecraft-dev/pagecraft/internal/guard"
	"github.com/pagecraft-dev/pagecraft/internal/models"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingToken = errors.New("missing access token")
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// extractAccessToken reads the access cookie first, then an Authorization bearer header
func extractAccessToken(c *gin.Context) (token, method string, err error) {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie, "cookie", nil
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerPrefix) {
		if token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)); token != "" {
			return token, "bearer", nil
		}
	}

	return "", "", ErrMissingToken
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.AbortWithStatusJSON(statusCode, gin.H{"success": false, "message": message})
}

// authMiddleware validates the access credential and loads the session
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, method, err := extractAccessToken(c)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Authentication required")
			return
		}

		claims, err := s.issuer.Validate(token, auth.TokenAccess)
		if err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrInvalidToken, "Invalid or expired session")
			return
		}

		// Verify user exists in database
		var user models.User
		if err := models.FindByID(s.db.WithContext(c.Request.Context()), claims.UserID, &user); err != nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, ErrUserNotFound, "User not found")
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Email:      user.Email,
			AuthMethod: method,
		})

		c.Next()
	}
}

// hasCredentials reports whether the request carries a valid access or refresh cookie.
// Pages only need to know a session exists; an expired access token is renewed by the client.
func (s *Server) hasCredentials(c *gin.Context) bool {
	if token, err := c.Cookie(AccessCookie); err == nil && token != "" {
		if _, err := s.issuer.Validate(token, auth.TokenAccess); err == nil {
			return true
		}
	}
	if token, err := c.Cookie(RefreshCookie); err == nil && token != "" {
		if _, err := s.issuer.Validate(token, auth.TokenRefresh); err == nil {
			return true
		}
	}
	return false
}

// routeGuardMiddleware redirects page navigations according to the guard rules
func (s *Server) routeGuardMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !s.guardRules.Applies(path) {
			c.Next()
			return
		}

		decision := s.guardRules.Evaluate(path, s.hasCredentials(c))
		if decision.Action == guard.Redirect {
			s.metrics.GuardRedirects.WithLabelValues(decision.Location).Inc()
			s.logger.Debug().
				Str("path", path).
				Str("location", decision.Location).
				Msg("Route guard redirect")
			c.Redirect(http.StatusFound, decision.Location)
			c.Abort()
			return
		}

		c.Next()
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		event := s.logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// metricsMiddleware records request counts and latency by route template
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		s.metrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// rateLimitMiddleware rejects clients that exceed their per-IP budget
func (s *Server) rateLimitMiddleware(limiter *ipRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(limiter.RetryAfter().Seconds())))
			respondWithError(c, s.logger, http.StatusTooManyRequests, errors.New("rate limited"), "Too many requests, try again later")
			return
		}
		c.Next()
	}
}
