package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Token store backends
const (
	TokenBackendEnv    = "env"
	TokenBackendSQLite = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Whoop  WhoopConfig  `json:"whoop"`
	Tokens TokenConfig  `json:"tokens"`
	Cache  CacheConfig  `json:"cache"`
	Limits LimitsConfig `json:"limits"`
	Log    LogConfig    `json:"log"`
}

// WhoopConfig contains WHOOP API credentials and endpoints
type WhoopConfig struct {
	ClientID             string `json:"client_id"`
	ClientSecret         string `json:"client_secret"`
	BaseURL              string `json:"base_url"`
	TokenURL             string `json:"token_url"`
	AuthURL              string `json:"auth_url"`
	HTTPTimeoutSeconds   int    `json:"http_timeout_seconds"`
	RefreshMarginSeconds int    `json:"refresh_margin_seconds"`
}

// TokenConfig selects where the OAuth token pair is persisted
type TokenConfig struct {
	Backend string `json:"backend"` // "env" or "sqlite"
	Path    string `json:"path"`    // dotenv path or sqlite database path
}

// CacheConfig controls the response cache. Today's data can still change
// during the day, closed history cannot, so the TTLs differ.
type CacheConfig struct {
	TodayTTLSeconds   int `json:"today_ttl_seconds"`
	HistoryTTLSeconds int `json:"history_ttl_seconds"`
	MaxEntries        int `json:"max_entries"`
}

// LimitsConfig bounds the windows the tools accept
type LimitsConfig struct {
	MaxTrendDays int `json:"max_trend_days"`
	MaxWorkouts  int `json:"max_workouts"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.Whoop.ClientID == "" || c.Whoop.ClientSecret == "" {
		return fmt.Errorf("%w: WHOOP client credentials are required", ErrInvalidConfig)
	}

	if c.Whoop.BaseURL == "" {
		c.Whoop.BaseURL = "https://api.prod.whoop.com/developer"
	}
	if c.Whoop.TokenURL == "" {
		c.Whoop.TokenURL = "https://api.prod.whoop.com/oauth/oauth2/token"
	}
	if c.Whoop.AuthURL == "" {
		c.Whoop.AuthURL = "https://api.prod.whoop.com/oauth/oauth2/auth"
	}
	if c.Whoop.HTTPTimeoutSeconds <= 0 {
		c.Whoop.HTTPTimeoutSeconds = 10
	}
	if c.Whoop.RefreshMarginSeconds <= 0 {
		c.Whoop.RefreshMarginSeconds = 60
	}

	switch c.Tokens.Backend {
	case "":
		c.Tokens.Backend = TokenBackendEnv
	case TokenBackendEnv, TokenBackendSQLite:
	default:
		return fmt.Errorf("%w: unknown token backend %q", ErrInvalidConfig, c.Tokens.Backend)
	}
	if c.Tokens.Path == "" {
		if c.Tokens.Backend == TokenBackendSQLite {
			c.Tokens.Path = "./whoop.db"
		} else {
			c.Tokens.Path = ".env"
		}
	}

	if c.Cache.TodayTTLSeconds <= 0 {
		c.Cache.TodayTTLSeconds = 60
	}
	if c.Cache.HistoryTTLSeconds <= 0 {
		c.Cache.HistoryTTLSeconds = 900
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 64
	}

	if c.Limits.MaxTrendDays <= 0 {
		c.Limits.MaxTrendDays = 30
	}
	if c.Limits.MaxWorkouts <= 0 {
		c.Limits.MaxWorkouts = 25
	}

	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables. The same
// dotenv file that stores the token pair usually provides these, so the
// server runs with no config file at all.
func LoadFromEnv() (*Config, error) {
	config := &Config{
		Whoop: WhoopConfig{
			ClientID:             getEnv("WHOOP_CLIENT_ID", ""),
			ClientSecret:         getEnv("WHOOP_CLIENT_SECRET", ""),
			BaseURL:              getEnv("WHOOP_BASE_URL", ""),
			TokenURL:             getEnv("WHOOP_TOKEN_URL", ""),
			AuthURL:              getEnv("WHOOP_AUTH_URL", ""),
			HTTPTimeoutSeconds:   getEnvInt("WHOOP_HTTP_TIMEOUT_SECONDS", 0),
			RefreshMarginSeconds: getEnvInt("WHOOP_REFRESH_MARGIN_SECONDS", 0),
		},
		Tokens: TokenConfig{
			Backend: getEnv("WHOOP_TOKEN_BACKEND", ""),
			Path:    getEnv("WHOOP_TOKEN_PATH", ""),
		},
		Cache: CacheConfig{
			TodayTTLSeconds:   getEnvInt("WHOOP_CACHE_TODAY_TTL_SECONDS", 0),
			HistoryTTLSeconds: getEnvInt("WHOOP_CACHE_HISTORY_TTL_SECONDS", 0),
			MaxEntries:        getEnvInt("WHOOP_CACHE_MAX_ENTRIES", 0),
		},
		Limits: LimitsConfig{
			MaxTrendDays: getEnvInt("WHOOP_MAX_TREND_DAYS", 0),
			MaxWorkouts:  getEnvInt("WHOOP_MAX_WORKOUTS", 0),
		},
		Log: LogConfig{
			Format: getEnv("WHOOP_LOG_FORMAT", ""),
			Level:  getEnv("WHOOP_LOG_LEVEL", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}
