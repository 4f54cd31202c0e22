package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/raine/candle-listing-bot/internal/suggest"
)

const (
	AppName     = "candle-listing-bot"
	EnvFileName = "config.env"
)

// Environment variable names.
const (
	EnvBotToken     = "BOT_TOKEN"
	EnvVisionAPIKey = "GOOGLE_VISION_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvAdminID      = "ADMIN_TELEGRAM_ID"
	EnvDBPath       = "CANDLE_DB_PATH"
	EnvDefaultMode  = "CANDLE_DEFAULT_MODE"
	EnvCacheMaxAge  = "CANDLE_CACHE_MAX_AGE"
)

const (
	defaultDBPath      = "candles.db"
	defaultCacheMaxAge = 30 * 24 * time.Hour
)

// requiredEnvVars lists all environment variables that must be set for the bot to run.
var requiredEnvVars = []string{EnvBotToken, EnvVisionAPIKey, EnvAdminID}

// Config is the bot's runtime configuration.
type Config struct {
	BotToken     string
	VisionAPIKey string
	// GeminiAPIKey is optional; without it the AI pipeline and translation are off.
	GeminiAPIKey string
	AdminID      int64
	DBPath       string
	DefaultMode  suggest.Mode
	// CacheMaxAge is how long analysis cache entries are kept.
	CacheMaxAge time.Duration
}

// Dir returns the application's config directory path, creating it if needed.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Variables already set in the environment win. Errors are
// ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// CheckRequiredConfig returns the names of any missing required variables.
func CheckRequiredConfig() []string {
	var missing []string
	for _, v := range requiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	if missing := CheckRequiredConfig(); len(missing) > 0 {
		return nil, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	adminID, err := strconv.ParseInt(os.Getenv(EnvAdminID), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a valid integer: %w", EnvAdminID, err)
	}

	mode, err := suggest.ParseMode(os.Getenv(EnvDefaultMode))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", EnvDefaultMode, err)
	}

	cacheMaxAge := defaultCacheMaxAge
	if v := os.Getenv(EnvCacheMaxAge); v != "" {
		cacheMaxAge, err = time.ParseDuration(v)
		if err != nil || cacheMaxAge <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 720h", EnvCacheMaxAge)
		}
	}

	cfg := &Config{
		BotToken:     os.Getenv(EnvBotToken),
		VisionAPIKey: os.Getenv(EnvVisionAPIKey),
		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),
		AdminID:      adminID,
		DBPath:       os.Getenv(EnvDBPath),
		DefaultMode:  mode,
		CacheMaxAge:  cacheMaxAge,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.GeminiAPIKey == "" && mode != suggest.ModeVision {
		return nil, fmt.Errorf("%s=%s needs %s", EnvDefaultMode, mode, EnvGeminiAPIKey)
	}

	return cfg, nil
}
