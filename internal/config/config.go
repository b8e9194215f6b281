package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret      string
	JWTExpiry      time.Duration
	AllowedOrigins []string // websocket origin patterns

	// Observability (optional)
	SentryDSN string

	// Caching
	CacheTTL     time.Duration
	PreloadDelay time.Duration
	SessionIdle  time.Duration

	// Energy propagation
	EnergyRetryAttempts int
	EnergyRetryDelay    time.Duration
	EnergyRetryJitter   time.Duration
	PropagateAsync      bool

	// Calendar
	Timezone string

	// Export storage (S3-compatible, optional)
	S3Bucket        string
	S3Region        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration

	SeedDemoData bool
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Habit Flywheel"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/habits.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"),

		// Security
		JWTSecret:      envRequired("JWT_SECRET"),
		JWTExpiry:      envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days
		AllowedOrigins: envList("ALLOWED_ORIGINS"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Caching
		CacheTTL:     envDuration("CACHE_TTL", 5*time.Minute),
		PreloadDelay: envDuration("PRELOAD_DELAY", 100*time.Millisecond),
		SessionIdle:  envDuration("SESSION_IDLE", 30*time.Minute),

		// Energy propagation
		EnergyRetryAttempts: envInt("ENERGY_RETRY_ATTEMPTS", 3),
		EnergyRetryDelay:    envDuration("ENERGY_RETRY_DELAY", 100*time.Millisecond),
		EnergyRetryJitter:   envDuration("ENERGY_RETRY_JITTER", 0), // 0 keeps the delay fixed
		PropagateAsync:      envBool("PROPAGATE_ASYNC", true),

		// Calendar
		Timezone: envString("TIMEZONE", "Local"),

		// Export storage
		S3Bucket:        envString("S3_BUCKET", ""),
		S3Region:        envString("S3_REGION", "us-east-1"),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", time.Hour),

		SeedDemoData: envBool("SEED_DEMO_DATA", false),
	}

	// Production: validate required settings
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction rejects settings that are only acceptable for local development.
func validateProduction(cfg *Config) {
	if len(cfg.JWTSecret) < 32 {
		slog.Error("production deployment requires JWT_SECRET of at least 32 characters")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location resolves TIMEZONE. Completion days are keyed in this zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		slog.Warn("config invalid timezone, using local", "timezone", c.Timezone, "error", err)
		return time.Local
	}
	return loc
}

// Sanitized returns a copy of the config with only public/safe fields.
// Secrets and connection strings are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName:      c.AppName,
		AppEnv:       c.AppEnv,
		Port:         c.Port,
		CacheTTL:     c.CacheTTL,
		PreloadDelay: c.PreloadDelay,
		Timezone:     c.Timezone,
	}
}
