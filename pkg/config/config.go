package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/korjavin/cookalong/pkg/logger"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP server configuration
	Port   int
	APIKey string

	// Storage configuration
	DataDir     string
	RecipesFile string

	// OpenAI configuration
	OpenAIAPIBase string
	OpenAIAPIKey  string
	OpenAIModel   string

	// Telegram Bot configuration, empty disables the bot
	BotToken string

	// Session configuration
	TickInterval       time.Duration
	SessionTTL         time.Duration
	JanitorInterval    time.Duration
	GCInterval         time.Duration
	FreezeElapsedOnEnd bool

	// Logging configuration
	LogLevel string
	LogFile  string
}

// Load reads an optional .env style file and then the environment. An empty
// path means ".env" in the working directory; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	log := logger.New("config")

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
		log.Debug("No env file at %s, using the environment only", envFile)
	}

	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}

	// Log configuration with sensitive data redacted
	log.Info("Configuration loaded: %+v", cfg.Redacted())
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		APIKey:        os.Getenv("API_KEY"),
		DataDir:       getEnvWithDefault("DATA_DIR", "./data"),
		RecipesFile:   os.Getenv("RECIPES_FILE"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIAPIBase: getEnvWithDefault("OPENAI_API_BASE", "https://api.openai.com/v1"),
		OpenAIModel:   getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		BotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.Port, err = getIntWithDefault("PORT", 4000); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = getDurationWithDefault("TICK_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDurationWithDefault("SESSION_TTL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.JanitorInterval, err = getDurationWithDefault("JANITOR_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.GCInterval, err = getDurationWithDefault("GC_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.FreezeElapsedOnEnd, err = getBoolWithDefault("FREEZE_ELAPSED_ON_END", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can run a server
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DATA_DIR must not be empty")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative, got %s", c.SessionTTL)
	}
	if c.SessionTTL > 0 && c.JanitorInterval <= 0 {
		return fmt.Errorf("JANITOR_INTERVAL must be positive when SESSION_TTL is set, got %s", c.JanitorInterval)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// Redacted returns a copy safe to log
func (c Config) Redacted() Config {
	c.APIKey = redact(c.APIKey)
	c.OpenAIAPIKey = redact(c.OpenAIAPIKey)
	c.BotToken = redact(c.BotToken)
	return c
}

func redact(secret string) string {
	if len(secret) > 8 {
		return secret[:8] + "...REDACTED..."
	}
	if secret != "" {
		return "REDACTED"
	}
	return ""
}

// getEnvWithDefault returns the value of the environment variable or the default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntWithDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDurationWithDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30s or 6h: %w", key, err)
	}
	return d, nil
}

func getBoolWithDefault(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false: %w", key, err)
	}
	return b, nil
}
