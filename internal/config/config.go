package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-wide settings. It is read once at start.
type Config struct {
	Port       int
	RootDomain string

	DatabaseURL string

	JWTSecret   string
	JWKSURL     string
	JWTAudience string

	Redis RedisConfig
	Minio MinioConfig
	AI    AIConfig
	Email EmailConfig
	Jobs  JobsConfig

	LogLevel  string
	LogFormat string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type AIConfig struct {
	GatewayURL       string
	GatewayKey       string
	Model            string
	Timeout          time.Duration
	RateLimitPerHour int
}

type EmailConfig struct {
	SendgridAPIKey string
	From           string
	FromName       string
}

type JobsConfig struct {
	Enabled        bool
	OverdueFeesAt  int // hour of day, server local time
	WhitelistPurge time.Duration
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	// A missing .env is fine; the real environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getInt("PORT", 8080),
		RootDomain:  getString("ROOT_DOMAIN", "localhost"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWKSURL:     os.Getenv("AUTH_JWKS_URL"),
		JWTAudience: getString("JWT_AUDIENCE", "authenticated"),
		Redis: RedisConfig{
			Addr:     getString("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Minio: MinioConfig{
			Endpoint:  getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getString("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getString("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getBool("MINIO_USE_SSL", false),
			Bucket:    getString("MINIO_BUCKET", "schoolhub"),
		},
		AI: AIConfig{
			GatewayURL:       getString("AI_GATEWAY_URL", "https://ai.gateway.lovable.dev/v1"),
			GatewayKey:       os.Getenv("AI_GATEWAY_KEY"),
			Model:            getString("AI_MODEL", "google/gemini-2.5-flash"),
			Timeout:          time.Duration(getInt("AI_TIMEOUT_SECONDS", 60)) * time.Second,
			RateLimitPerHour: getInt("AI_RATE_LIMIT_PER_HOUR", 60),
		},
		Email: EmailConfig{
			SendgridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			From:           getString("EMAIL_FROM", "no-reply@schoolhub.local"),
			FromName:       getString("EMAIL_FROM_NAME", "SchoolHub"),
		},
		Jobs: JobsConfig{
			Enabled:        getBool("JOBS_ENABLED", true),
			OverdueFeesAt:  getInt("JOBS_OVERDUE_FEES_HOUR", 6),
			WhitelistPurge: time.Duration(getInt("JOBS_WHITELIST_PURGE_MINUTES", 60)) * time.Minute,
		},
		LogLevel:  getString("LOG_LEVEL", "info"),
		LogFormat: getString("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" && c.JWKSURL == "" {
		errs = append(errs, errors.New("one of JWT_SECRET or AUTH_JWKS_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.AI.RateLimitPerHour < 0 {
		errs = append(errs, errors.New("AI_RATE_LIMIT_PER_HOUR cannot be negative"))
	}
	if c.Jobs.OverdueFeesAt < 0 || c.Jobs.OverdueFeesAt > 23 {
		errs = append(errs, fmt.Errorf("JOBS_OVERDUE_FEES_HOUR must be 0-23, got %d", c.Jobs.OverdueFeesAt))
	}
	if c.Jobs.Enabled && c.Jobs.WhitelistPurge <= 0 {
		errs = append(errs, errors.New("JOBS_WHITELIST_PURGE_MINUTES must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
