// Package server
//
// @title Pagecraft API
// @version 1.0
// @description Portfolio builder API
// @host localhost:8080
// @BasePath /api
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pagecraft-dev/pagecraft/internal/assert"
	"github.com/pagecraft-dev/pagecraft/internal/auth"
	"github.com/pagecraft-dev/pagecraft/internal/config"
	"github.com/pagecraft-dev/pagecraft/internal/guard"
	"github.com/pagecraft-dev/pagecraft/internal/metrics"
	"github.com/pagecraft-dev/pagecraft/internal/models"
	"github.com/pagecraft-dev/pagecraft/internal/portfolios"
	"github.com/pagecraft-dev/pagecraft/internal/recent"
	"github.com/pagecraft-dev/pagecraft/internal/seo"
	"github.com/pagecraft-dev/pagecraft/internal/store"
)

// Enqueuer is the part of *asynq.Client the server uses
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IdentityVerifier checks identity-provider tokens presented to /auth/social-sync
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.Identity, error)
}

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	enqueuer    Enqueuer
	closers     []func() error
	issuer      *auth.Issuer
	verifier    IdentityVerifier
	metrics     *metrics.Metrics
	guardRules  guard.Rules
	authLimiter *ipRateLimiter

	portfoliosService *portfolios.Service
	seoService        *seo.Service
	recentService     *recent.Service

	version string
}

// Option customizes a Server
type Option func(*Server)

// WithDB uses an already opened database instead of opening cfg.Database
func WithDB(db *gorm.DB) Option {
	return func(s *Server) { s.db = db }
}

// WithEnqueuer replaces the Redis-backed asynq client
func WithEnqueuer(e Enqueuer) Option {
	return func(s *Server) { s.enqueuer = e }
}

// WithIdentityVerifier sets the verifier used by social sync
func WithIdentityVerifier(v IdentityVerifier) Option {
	return func(s *Server) { s.verifier = v }
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string, opts ...Option) (*Server, error) {
	s := &Server{
		config:     cfg,
		logger:     zlog,
		metrics:    metrics.New(),
		guardRules: guard.DefaultRules(),
		version:    version,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.db == nil {
		db, err := store.Open(cfg.Database, zlog)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.closers = append(s.closers, func() error { return store.Close(db) })
	}

	secret, err := loadJWTSecret(s.db, cfg.Auth.JWTSecret, zlog)
	if err != nil {
		return nil, err
	}
	s.issuer, err = auth.NewIssuer(secret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	if s.verifier == nil && cfg.Social.VerifyGoogle {
		if cfg.Social.GoogleClientID == "" {
			return nil, fmt.Errorf("social sign-in verification is enabled but no Google client id is configured")
		}
		s.verifier = auth.NewGoogleVerifier(cfg.Social.GoogleClientID)
	}

	if s.enqueuer == nil {
		client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Address})
		s.enqueuer = client
		s.closers = append(s.closers, client.Close)
	}

	s.validator = newValidator()
	s.authLimiter = newIPRateLimiter(cfg.Server.AuthRatePerMinute)

	s.portfoliosService = portfolios.NewService(s.db, zlog)
	s.seoService = seo.NewService(s.db, zlog)
	s.recentService = recent.NewService(s.db, zlog, cfg.Maintenance.RecentLimit)

	s.setupRouter()

	return s, nil
}

// loadJWTSecret returns the configured secret, or the one persisted in the settings
// table, generating and storing it on first start
func loadJWTSecret(db *gorm.DB, configured string, zlog zerolog.Logger) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var setting models.Setting
	err := db.First(&setting).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return setting.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load settings: %w", err)
	}

	// 64 hex characters = 32 bytes of randomness
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	setting.JWTSecret = hex.EncodeToString(secretBytes)
	assert.Length("jwt secret", setting.JWTSecret, 64)
	if err := db.Create(&setting).Error; err != nil {
		return "", fmt.Errorf("failed to store settings: %w", err)
	}

	zlog.Info().Msg("Generated JWT secret")
	return setting.JWTSecret, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.metricsMiddleware())

	// Credentialed CORS: the browser app sends cookies cross-origin
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Runs before every page; excluded paths pass straight through
	s.router.Use(s.routeGuardMiddleware())

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.setupPages()

	api := s.router.Group("/api")

	// Public auth endpoints
	public := api.Group("/auth")
	{
		limited := public.Group("")
		limited.Use(s.rateLimitMiddleware(s.authLimiter))
		limited.POST("/signup", s.signup)
		limited.POST("/login", s.login)
		limited.POST("/refresh", s.refresh)
		limited.POST("/social-sync", s.socialSync)

		public.POST("/logout", s.logout)
	}

	// Authenticated API routes (access cookie or bearer token required)
	authed := api.Group("")
	authed.Use(s.authMiddleware())
	{
		authed.GET("/auth/me", s.getCurrentUser)

		authed.GET("/portfolios", s.listPortfolios)
		authed.POST("/portfolios/create", s.createPortfolio)
		authed.GET("/portfolios/:id", s.getPortfolio)
		authed.PUT("/portfolios/:id", s.updatePortfolio)
		authed.DELETE("/portfolios/:id", s.deletePortfolio)

		authed.GET("/seo/:id", s.getSEO)
		authed.PUT("/seo/:id", s.updateSEO)

		authed.GET("/recent", s.listRecent)
		authed.POST("/recent", s.recordRecent)
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "pagecraft-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Close releases the resources the server opened itself
func (s *Server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		_ = s.Close()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error releasing resources")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
