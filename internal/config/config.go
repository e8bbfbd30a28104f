// Package config loads the API configuration from .env and the environment.
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

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// devJWTSecret is only accepted outside production.
const devJWTSecret = "palett-development-secret"

// Config holds the application configuration.
type Config struct {
	Env  string
	Port string

	DBDriver          string
	DBDSN             string
	DBMaxOpenConns    int
	DBConnMaxLifetime time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	FalKey     string
	FalBaseURL string
	FalTimeout time.Duration

	GeminiAPIKey string
	GeminiModel  string

	CostsFile  string
	UploadDir  string
	BaseURL    string
	CORSOrigin string

	SignupCredits         int64
	GenerateRatePerMinute int
	GenerateBurst         int

	SeedAdminPassword string
	SeedUserPassword  string

	// Warnings collects non-fatal issues found while loading, for the caller
	// to log once a logger exists.
	Warnings []string
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	var warnings []string
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file loaded, relying on system environment variables")
	}
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Warnings = append(warnings, cfg.Warnings...)
	return cfg, nil
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (*Config, error) {
	r := &envReader{}

	cfg := &Config{
		Env:  strings.ToLower(getEnvString("APP_ENV", EnvDevelopment)),
		Port: getEnvString("PORT", "8080"),

		DBDriver:          strings.ToLower(getEnvString("DB_DRIVER", "mysql")),
		DBDSN:             os.Getenv("DB_DSN"),
		DBMaxOpenConns:    r.int("DB_MAX_OPEN_CONNS", 25),
		DBConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    r.duration("JWT_TTL", 72*time.Hour),

		FalKey:     os.Getenv("FAL_KEY"),
		FalBaseURL: strings.TrimRight(getEnvString("FAL_BASE_URL", "https://fal.run"), "/"),
		FalTimeout: r.duration("FAL_TIMEOUT", 5*time.Minute),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnvString("GEMINI_MODEL", "gemini-1.5-flash"),

		CostsFile:  os.Getenv("COSTS_FILE"),
		UploadDir:  getEnvString("UPLOAD_DIR", "./uploads"),
		CORSOrigin: getEnvString("CORS_ORIGIN", "http://localhost:3000"),

		SignupCredits:         int64(r.int("SIGNUP_CREDITS", 10)),
		GenerateRatePerMinute: r.int("GENERATE_RATE_PER_MINUTE", 10),
		GenerateBurst:         r.int("GENERATE_BURST", 3),

		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
		SeedUserPassword:  os.Getenv("SEED_USER_PASSWORD"),
	}
	cfg.BaseURL = strings.TrimRight(getEnvString("BASE_URL", "http://localhost:"+cfg.Port), "/")

	switch cfg.Env {
	case EnvDevelopment, EnvProduction:
	default:
		r.fail(fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, cfg.Env))
	}

	switch cfg.DBDriver {
	case "mysql":
		if cfg.DBDSN == "" {
			r.fail(errors.New("DB_DSN is required when DB_DRIVER is mysql"))
		}
	case "sqlite":
		if cfg.DBDSN == "" {
			cfg.DBDSN = "./palett.db"
		}
	default:
		r.fail(fmt.Errorf("DB_DRIVER must be mysql or sqlite, got %q", cfg.DBDriver))
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			r.fail(errors.New("JWT_SECRET is required in production"))
		} else {
			cfg.JWTSecret = devJWTSecret
			cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using the development secret")
		}
	}

	if cfg.SignupCredits < 0 {
		r.fail(errors.New("SIGNUP_CREDITS must not be negative"))
	}
	if cfg.GenerateRatePerMinute <= 0 || cfg.GenerateBurst <= 0 {
		r.fail(errors.New("GENERATE_RATE_PER_MINUTE and GENERATE_BURST must be positive"))
	}

	if err := r.err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envReader parses typed variables and remembers every failure so Load can
// report them together.
type envReader struct {
	errs []error
}

func (r *envReader) fail(err error) {
	r.errs = append(r.errs, err)
}

func (r *envReader) err() error {
	return errors.Join(r.errs...)
}

func (r *envReader) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		r.fail(fmt.Errorf("%s: %q is not an integer", key, value))
		return defaultValue
	}
	return n
}

// duration accepts Go durations ("30s", "5m") or a bare number of seconds.
func (r *envReader) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	r.fail(fmt.Errorf("%s: %q is not a duration", key, value))
	return defaultValue
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
