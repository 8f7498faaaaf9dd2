package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gwi.com/secret-santa-bot/internal/core"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type Config struct {
	TelegramToken  string
	TelegramAPIURL string
	AdminUserID    int64
	Mode           string
	WebhookURL     string
	WebhookSecret  string
	PollTimeout    int // seconds

	HTTPPort  string
	LogLevel  string
	LogFormat string

	StoreBackend     string
	ParticipantsFile string
	AssignmentsFile  string
	DatabaseURL      string

	ExclusionsFile    string
	AssignMaxAttempts int
	IntroVideoPath    string
	GeminiAPIKey      string
}

// Load reads configuration from the environment, after loading a .env file
// when one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		TelegramToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:    getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
		Mode:              getEnv("BOT_MODE", ModePolling),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
		WebhookSecret:     getEnv("WEBHOOK_SECRET", ""),
		PollTimeout:       getEnvAsInt("POLL_TIMEOUT", 30),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		StoreBackend:      getEnv("STORE_BACKEND", "json"),
		ParticipantsFile:  getEnv("PARTICIPANTS_FILE", "participants.json"),
		AssignmentsFile:   getEnv("ASSIGNMENTS_FILE", "assignments.json"),
		DatabaseURL:       getEnv("DATABASE_URL", "secret_santa.db"),
		ExclusionsFile:    getEnv("EXCLUSIONS_FILE", ""),
		AssignMaxAttempts: getEnvAsInt("ASSIGN_MAX_ATTEMPTS", core.DefaultMaxAttempts),
		IntroVideoPath:    getEnv("INTRO_VIDEO_PATH", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
	}

	if cfg.TelegramToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	adminID := getEnv("TELEGRAM_ADMIN_ID", "")
	if adminID == "" {
		return nil, errors.New("TELEGRAM_ADMIN_ID environment variable is required")
	}
	id, err := strconv.ParseInt(adminID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_ADMIN_ID must be a numeric user id: %w", err)
	}
	cfg.AdminUserID = id

	switch cfg.Mode {
	case ModePolling:
	case ModeWebhook:
		if cfg.WebhookURL == "" {
			return nil, errors.New("WEBHOOK_URL is required when BOT_MODE=webhook")
		}
		if cfg.WebhookSecret == "" {
			return nil, errors.New("WEBHOOK_SECRET is required when BOT_MODE=webhook")
		}
	default:
		return nil, fmt.Errorf("BOT_MODE must be %q or %q, got %q", ModePolling, ModeWebhook, cfg.Mode)
	}

	return cfg, nil
}

type exclusionsFile struct {
	ExcludedPairs [][]string `mapstructure:"excluded_pairs"`
}

// LoadExclusions reads exclusion pairs from a YAML file such as
//
//	excluded_pairs:
//	  - ["@alice", "@bob"]
//	  - ["Carol", "@dave"]
//
// An empty path means no exclusions.
func LoadExclusions(path string) ([]core.ExclusionRule, error) {
	if path == "" {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read exclusions file %s: %w", path, err)
	}

	var f exclusionsFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("failed to parse exclusions file %s: %w", path, err)
	}

	rules := make([]core.ExclusionRule, 0, len(f.ExcludedPairs))
	for i, pair := range f.ExcludedPairs {
		if len(pair) != 2 || pair[0] == "" || pair[1] == "" {
			return nil, fmt.Errorf("exclusion pair %d must name exactly two people, got %v", i, pair)
		}
		rules = append(rules, core.ExclusionRule{A: pair[0], B: pair[1]})
	}
	return rules, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
