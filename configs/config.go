package configs

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort             string
	DataDir                string
	NewsAPIKey             string
	OpenAIAPIKey           string
	OpenAIModel            string
	AdminUsername          string
	AdminPassword          string
	SecretKey              string
	RedisURL               string
	DefaultCacheTTL        time.Duration
	SessionTTL             time.Duration
	MaxArticlesPerCategory int
	EnableWebSocket        bool
	Debug                  bool
}

// Load reads configuration from the environment, falling back to defaults.
// A .env file is honored when present.
func Load() *Config {
	godotenv.Load()

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		DataDir:                getEnv("DATA_DIR", "data"),
		NewsAPIKey:             getEnv("NEWS_API_KEY", ""),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:            getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		AdminUsername:          getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:          getEnv("ADMIN_PASSWORD", "admin123"),
		SecretKey:              getEnv("SECRET_KEY", "your-secret-key-change-in-production"),
		RedisURL:               getEnv("REDIS_URL", ""),
		DefaultCacheTTL:        parseDuration(getEnv("CACHE_TTL", "5m")),
		SessionTTL:             parseDuration(getEnv("SESSION_TTL", "168h")),
		MaxArticlesPerCategory: parseInt(getEnv("MAX_ARTICLES", "10")),
		EnableWebSocket:        parseBool(getEnv("ENABLE_WEBSOCKET", "true")),
		Debug:                  parseBool(getEnv("DEBUG", "false")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}
