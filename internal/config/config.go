package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the InstaGroq service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	DatabaseURL string

	BotToken       string
	AdminUserID    int64
	LogGroupID     int64
	MiniAppURL     string
	AdminToken     string
	InitDataMaxAge time.Duration

	ChatProvider string
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	GroqTimeout  time.Duration

	ImageProvider    string
	StabilityAPIKey  string
	StabilityTimeout time.Duration

	MemoryLimit     int
	MemoryRetention int

	AccessCacheSize int
	AccessCacheTTL  time.Duration
}

// Load reads environment variables and applies safe defaults. A .env file in
// the working directory is merged in first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "instagroq"),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		BotToken:         trimmedEnv("BOT_TOKEN"),
		MiniAppURL:       trimmedEnv("MINIAPP_URL"),
		AdminToken:       trimmedEnv("ADMIN_API_TOKEN"),
		ChatProvider:     envOrDefault("CHAT_PROVIDER", "auto"),
		GroqAPIKey:       trimmedEnv("GROQ_API_KEY"),
		GroqModel:        envOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		ImageProvider:    envOrDefault("IMAGE_PROVIDER", "auto"),
		StabilityAPIKey:  trimmedEnv("STABILITY_API_KEY"),

		ShutdownTimeout:  15 * time.Second,
		InitDataMaxAge:   24 * time.Hour,
		GroqTimeout:      60 * time.Second,
		StabilityTimeout: 90 * time.Second,
		MemoryLimit:      24,
		MemoryRetention:  48,
		AccessCacheSize:  1024,
		AccessCacheTTL:   30 * time.Second,
	}

	var err error
	cfg.AdminUserID, err = int64FromEnv("ADMIN_USER_ID", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.LogGroupID, err = int64FromEnv("LOG_GROUP_ID", 0)
	if err != nil {
		return Config{}, err
	}
	// TARGET_GROUP_ID is the historical name for the admin group; it wins.
	if v := trimmedEnv("TARGET_GROUP_ID"); v != "" {
		cfg.LogGroupID, err = int64FromEnv("TARGET_GROUP_ID", 0)
		if err != nil {
			return Config{}, err
		}
	}

	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.InitDataMaxAge, err = durationFromEnv("INITDATA_MAX_AGE", cfg.InitDataMaxAge)
	if err != nil {
		return Config{}, err
	}
	cfg.GroqTimeout, err = durationFromEnv("GROQ_TIMEOUT", cfg.GroqTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.StabilityTimeout, err = durationFromEnv("STABILITY_TIMEOUT", cfg.StabilityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessCacheTTL, err = durationFromEnv("ACCESS_CACHE_TTL", cfg.AccessCacheTTL)
	if err != nil {
		return Config{}, err
	}

	cfg.MemoryLimit, err = intFromEnv("MEMORY_LIMIT", cfg.MemoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryRetention, err = intFromEnv("MEMORY_RETENTION", cfg.MemoryRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.AccessCacheSize, err = intFromEnv("ACCESS_CACHE_SIZE", cfg.AccessCacheSize)
	if err != nil {
		return Config{}, err
	}

	if cfg.MemoryLimit <= 0 {
		return Config{}, fmt.Errorf("MEMORY_LIMIT must be positive")
	}
	if cfg.MemoryRetention < cfg.MemoryLimit {
		return Config{}, fmt.Errorf("MEMORY_RETENTION must be >= MEMORY_LIMIT")
	}
	if cfg.AccessCacheSize <= 0 {
		return Config{}, fmt.Errorf("ACCESS_CACHE_SIZE must be positive")
	}
	if cfg.GroqTimeout <= 0 || cfg.StabilityTimeout <= 0 {
		return Config{}, fmt.Errorf("provider timeouts must be positive")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.ChatProvider)) {
	case "auto", "groq", "mock":
	default:
		return Config{}, fmt.Errorf("invalid CHAT_PROVIDER: %q (expected auto|groq|mock)", cfg.ChatProvider)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.ImageProvider)) {
	case "auto", "stability", "mock":
	default:
		return Config{}, fmt.Errorf("invalid IMAGE_PROVIDER: %q (expected auto|stability|mock)", cfg.ImageProvider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
