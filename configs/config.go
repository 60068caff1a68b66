package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Sheet    SheetConfig
	Auth     AuthConfig
	Store    StoreConfig
	Telegram TelegramConfig
	Gemini   GeminiConfig
	Stub     StubConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// SheetConfig holds the remote sheet script settings
type SheetConfig struct {
	Endpoint     string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
	SeedDemo     bool
}

// AuthConfig holds session settings
type AuthConfig struct {
	SessionTTL  time.Duration
	AdminSuffix string
	JWTSecret   string
}

// StoreConfig holds the local store settings
type StoreConfig struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// TelegramConfig holds alert relay settings
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// GeminiConfig holds signal analysis settings
type GeminiConfig struct {
	APIKey string
	Model  string
}

// StubConfig holds the local sheet stub settings
type StubConfig struct {
	Port string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("GO_ENV", "development"),
		},
		Sheet: SheetConfig{
			Endpoint: getEnv("SHEET_ENDPOINT", "https://script.google.com/macros/s/REPLACE_WITH_ACTUAL_ID/exec"),
		},
		Auth: AuthConfig{
			AdminSuffix: getEnv("ADMIN_SUFFIX", "admin"),
			JWTSecret:   getEnv("JWT_SECRET", ""),
		},
		Store: StoreConfig{
			Driver:      getEnv("STORE_DRIVER", DriverSQLite),
			Path:        getEnv("STORE_PATH", "libraquant.db"),
			DatabaseURL: getEnv("DATABASE_URL", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", ""),
		},
		Stub: StubConfig{
			Port: getEnv("STUB_PORT", "8090"),
		},
	}

	var err error
	if cfg.Sheet.PollInterval, err = getDuration("POLL_INTERVAL", 12*time.Second); err != nil {
		return nil, err
	}
	if cfg.Sheet.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.Auth.SessionTTL, err = getDuration("SESSION_TTL", 6*time.Hour+30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Sheet.SeedDemo, err = getBool("SEED_DEMO_DATA", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and driver names
func (c *Config) Validate() error {
	if c.Sheet.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.Sheet.PollInterval)
	}
	if c.Sheet.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Sheet.HTTPTimeout)
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Auth.SessionTTL)
	}
	if c.Auth.AdminSuffix == "" {
		return fmt.Errorf("ADMIN_SUFFIX must not be empty")
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	return nil
}

// IsProduction reports whether GO_ENV is production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
