package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP listener
	Server ServerConfig

	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// Credential cookies and token lifetimes
	Auth AuthConfig

	// Social login reconciliation
	Social SocialConfig

	// Background maintenance
	Maintenance MaintenanceConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Port              string
	CORSOrigins       []string
	AuthRatePerMinute int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// IsPostgres reports whether the URL points at a Postgres server rather than a SQLite file
func (d DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(d.URL, "postgres://") || strings.HasPrefix(d.URL, "postgresql://")
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// AuthConfig holds JWT and cookie settings
type AuthConfig struct {
	JWTSecret       string // empty = generated once and persisted in the settings table
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieDomain    string
	CookieSecure    bool
}

// SocialConfig controls how /auth/social-sync trusts identity-provider claims
type SocialConfig struct {
	VerifyGoogle   bool
	GoogleClientID string // expected ID token audience; required when VerifyGoogle is set

	// TrustUnverified accepts claims without an ID token when VerifyGoogle is off.
	// Local development only: such claims never sign in to an existing password account.
	TrustUnverified bool
}

// MaintenanceConfig holds worker settings
type MaintenanceConfig struct {
	Schedule    string // cron expression for expired-session purges
	RecentLimit int    // recently-used items kept per (user, type)
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	rate, err := intEnv("AUTH_RATE_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	recentLimit, err := intEnv("RECENT_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	cookieSecure, err := boolEnv("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}
	verifyGoogle, err := boolEnv("SOCIAL_VERIFY_GOOGLE", true)
	if err != nil {
		return nil, err
	}
	trustUnverified, err := boolEnv("SOCIAL_TRUST_UNVERIFIED", false)
	if err != nil {
		return nil, err
	}
	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if verifyGoogle && googleClientID == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID is required when SOCIAL_VERIFY_GOOGLE is enabled (set SOCIAL_VERIFY_GOOGLE=false to disable social sign-in)")
	}

	origins := []string{"http://localhost:3000"}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = nil
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:              stringEnv("PORT", "8080"),
			CORSOrigins:       origins,
			AuthRatePerMinute: rate,
		},
		Database: DatabaseConfig{
			URL: stringEnv("DATABASE_URL", "pagecraft.sqlite"),
		},
		Redis: RedisConfig{
			Address: stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
			CookieDomain:    os.Getenv("COOKIE_DOMAIN"),
			CookieSecure:    cookieSecure,
		},
		Social: SocialConfig{
			VerifyGoogle:    verifyGoogle,
			GoogleClientID:  googleClientID,
			TrustUnverified: trustUnverified,
		},
		Maintenance: MaintenanceConfig{
			Schedule:    stringEnv("MAINTENANCE_SCHEDULE", "0 * * * *"),
			RecentLimit: recentLimit,
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be true or false", key, raw)
	}
	return v, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, raw)
	}
	return d, nil
}
