package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/auth"
	"github.com/pagecraft-dev/pagecraft/internal/models"
)

var (
	errRefreshRevoked  = errors.New("refresh token revoked")
	errUnverifiedClaim = errors.New("unverified claim for an account owned by another sign-in method")
)

// SignupRequest represents an email/password registration
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SocialSyncRequest carries the identity an external provider vouched for
type SocialSyncRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" validate:"max=100"`
	Image    string `json:"image" validate:"omitempty,url"`
	Provider string `json:"provider" validate:"omitempty,oneof=google"`
	IDToken  string `json:"id_token"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Image:     user.Image,
		Provider:  user.Provider,
		CreatedAt: user.CreatedAt,
	}
}

// startSession issues a token pair, records the refresh token and sets both cookies
func (s *Server) startSession(c *gin.Context, tx *gorm.DB, user *models.User) error {
	pair, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}

	if err := tx.Create(&models.RefreshToken{
		ID:        pair.RefreshID,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt.UTC(),
	}).Error; err != nil {
		return err
	}

	s.setAuthCookies(c, pair)
	return nil
}

// @Summary Sign up
// @Description Creates an account and starts a cookie session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup request"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/signup [post]
func (s *Server) signup(c *gin.Context) {
	var req SignupRequest
	if !s.bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	db := s.db.WithContext(c.Request.Context())

	var existing int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing user")
		respondInternal(c)
		return
	}
	if existing > 0 {
		s.metrics.AuthEvent("signup", false)
		respondError(c, http.StatusConflict, "Email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		respondInternal(c)
		return
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Provider:     models.ProviderEmail,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return s.startSession(c, tx, user)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to create user")
		respondInternal(c)
		return
	}

	s.metrics.AuthEvent("signup", true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User signed up")

	respondOK(c, http.StatusCreated, gin.H{"message": "Account created", "user": newUserDetail(user)})
}

// @Summary Login
// @Description Authenticate with email and password; sets the session cookies
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	db := s.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.AuthEvent("login", false)
			respondError(c, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		respondInternal(c)
		return
	}

	if user.PasswordHash == "" {
		s.metrics.AuthEvent("login", false)
		respondError(c, http.StatusUnauthorized, "This account uses social sign-in")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.metrics.AuthEvent("login", false)
		respondError(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := s.startSession(c, db, &user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to start session")
		respondInternal(c)
		return
	}

	s.metrics.AuthEvent("login", true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	respondOK(c, http.StatusOK, gin.H{"message": "Logged in", "user": newUserDetail(&user)})
}

// @Summary Logout
// @Description Revokes the refresh token and clears both cookies
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(RefreshCookie); err == nil && token != "" {
		if claims, err := s.issuer.Validate(token, auth.TokenRefresh); err == nil {
			if err := s.db.WithContext(c.Request.Context()).
				Where("id = ?", claims.ID).
				Delete(&models.RefreshToken{}).Error; err != nil {
				s.logger.Warn().Err(err).Str("user_id", claims.UserID).Msg("Failed to revoke refresh token")
			}
		}
	}

	s.clearAuthCookies(c)
	s.metrics.AuthEvent("logout", true)

	respondOK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// @Summary Refresh session
// @Description Exchanges the refresh cookie for a new cookie pair. The old refresh token is single-use.
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/refresh [post]
func (s *Server) refresh(c *gin.Context) {
	token, err := c.Cookie(RefreshCookie)
	if err != nil || token == "" {
		s.metrics.AuthEvent("refresh", false)
		respondError(c, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	claims, err := s.issuer.Validate(token, auth.TokenRefresh)
	if err != nil {
		s.metrics.AuthEvent("refresh", false)
		s.clearAuthCookies(c)
		respondError(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		return
	}

	var user models.User
	err = s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ? AND expires_at > ?", claims.ID, claims.UserID, time.Now().UTC()).
			Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRefreshRevoked
		}
		if err := models.FindByID(tx, claims.UserID, &user); err != nil {
			return err
		}
		return s.startSession(c, tx, &user)
	})
	if err != nil {
		s.metrics.AuthEvent("refresh", false)
		if errors.Is(err, errRefreshRevoked) || errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Str("user_id", claims.UserID).Msg("Refresh with revoked token")
			s.clearAuthCookies(c)
			respondError(c, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to rotate refresh token")
		respondInternal(c)
		return
	}

	s.metrics.AuthEvent("refresh", true)
	s.logger.Debug().Str("user_id", user.ID).Msg("Session refreshed")

	respondOK(c, http.StatusOK, gin.H{"message": "Session refreshed", "user": newUserDetail(&user)})
}

// @Summary Social sync
// @Description Finds or creates the account for a social identity and starts a cookie session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SocialSyncRequest true "Social identity"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/social-sync [post]
func (s *Server) socialSync(c *gin.Context) {
	var req SocialSyncRequest
	if !s.bindJSON(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name, image := strings.TrimSpace(req.Name), req.Image
	provider := req.Provider
	if provider == "" {
		provider = models.ProviderGoogle
	}

	verified := s.verifier != nil
	if !verified && !s.config.Social.TrustUnverified {
		s.metrics.AuthEvent("social_sync", false)
		s.logger.Warn().Str("email", email).Msg("Social sync refused: identity verification is not configured")
		respondError(c, http.StatusUnauthorized, "Identity could not be verified")
		return
	}

	if verified {
		identity, err := s.verifier.Verify(c.Request.Context(), req.IDToken)
		if err != nil {
			s.metrics.AuthEvent("social_sync", false)
			s.logger.Warn().Err(err).Str("email", email).Msg("Identity token rejected")
			respondError(c, http.StatusUnauthorized, "Identity could not be verified")
			return
		}
		if identity.Email != email {
			s.metrics.AuthEvent("social_sync", false)
			s.logger.Warn().Err(auth.ErrIdentityMismatch).Str("email", email).Msg("Identity token rejected")
			respondError(c, http.StatusUnauthorized, "Identity could not be verified")
			return
		}
		if identity.Name != "" {
			name = identity.Name
		}
		if identity.Picture != "" {
			image = identity.Picture
		}
	}

	var (
		user    models.User
		created bool
	)
	err := s.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			user = models.User{Email: email, Name: name, Image: image, Provider: provider}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		default:
			// Only a verified identity may take over an account created another way
			if !verified && (user.PasswordHash != "" || user.Provider != provider) {
				return errUnverifiedClaim
			}
			updates := map[string]interface{}{}
			if name != "" && name != user.Name {
				updates["name"] = name
			}
			if image != "" && image != user.Image {
				updates["image"] = image
			}
			if len(updates) > 0 {
				if err := tx.Model(&user).Updates(updates).Error; err != nil {
					return err
				}
			}
		}
		return s.startSession(c, tx, &user)
	})
	if errors.Is(err, errUnverifiedClaim) {
		s.metrics.AuthEvent("social_sync", false)
		s.logger.Warn().Err(err).Str("email", email).Msg("Identity token rejected")
		respondError(c, http.StatusUnauthorized, "Identity could not be verified")
		return
	}
	if err != nil {
		s.metrics.AuthEvent("social_sync", false)
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to sync social identity")
		respondInternal(c)
		return
	}

	s.metrics.AuthEvent("social_sync", true)
	s.logger.Info().
		Str("user_id", user.ID).
		Str("provider", provider).
		Bool("created", created).
		Msg("Social identity synced")

	respondOK(c, http.StatusOK, gin.H{"message": "Session synchronized", "user": newUserDetail(&user)})
}

// @Summary Get current user
// @Description Get information about the currently authenticated user
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		respondError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var user models.User
	if err := models.FindByID(s.db.WithContext(c.Request.Context()), sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		respondInternal(c)
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": newUserDetail(&user)})
}
