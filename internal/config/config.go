package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	LLM       LLMConfig
	Bookmarks BookmarkConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// DataConfig points at the three JSON data sources
type DataConfig struct {
	Dir                 string
	BasicsFile          string
	CharacteristicsFile string
	ImagesFile          string
}

// LLMConfig holds OpenAI-compatible API configuration (Groq by default)
type LLMConfig struct {
	APIKey            string
	APIBase           string
	ChatModel         string
	IntentTemperature float64
	IntentMaxTokens   int
	ReplyTemperature  float64
	ReplyMaxTokens    int
	EmbeddingModel    string // empty disables query embeddings
	Timeout           int    // seconds, per model invocation
	MaxRetries        int
	MaxConcurrency    int
	RatePerSec        float64
	Enabled           bool
}

// BookmarkConfig selects and configures the saved-property store
type BookmarkConfig struct {
	Backend string // postgres | redis | memory

	PostgresDSN        string
	PGHost             string
	PGPort             int
	PGUser             string
	PGPassword         string
	PGDatabase         string
	PGSSLMode          string
	MaxConnections     int
	MaxIdleConnections int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Env   string // dev uses the console writer
	Level string
}

// MaxIntentTemperature keeps intent extraction close to deterministic.
const MaxIntentTemperature = 0.3

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	apiKey := getEnv("GROQ_API_KEY", getEnv("OPENAI_API_KEY", ""))

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("PORT", getEnvAsInt("SERVER_PORT", 5000)),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Data: DataConfig{
			Dir:                 getEnv("DATA_DIR", "./data_sources"),
			BasicsFile:          getEnv("DATA_BASICS_FILE", "property_basics.json"),
			CharacteristicsFile: getEnv("DATA_CHARACTERISTICS_FILE", "property_characteristics.json"),
			ImagesFile:          getEnv("DATA_IMAGES_FILE", "property_images.json"),
		},
		LLM: LLMConfig{
			APIKey:            apiKey,
			APIBase:           strings.TrimRight(getEnv("LLM_API_BASE", "https://api.groq.com/openai/v1"), "/"),
			ChatModel:         getEnv("LLM_CHAT_MODEL", "llama-3.1-8b-instant"),
			IntentTemperature: getEnvAsFloat("INTENT_TEMPERATURE", 0.3),
			IntentMaxTokens:   getEnvAsInt("INTENT_MAX_TOKENS", 500),
			ReplyTemperature:  getEnvAsFloat("REPLY_TEMPERATURE", 0.7),
			ReplyMaxTokens:    getEnvAsInt("REPLY_MAX_TOKENS", 150),
			EmbeddingModel:    getEnv("LLM_EMBEDDING_MODEL", ""),
			Timeout:           getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
			MaxRetries:        getEnvAsInt("LLM_MAX_RETRIES", 2),
			MaxConcurrency:    getEnvAsInt("LLM_MAX_CONCURRENCY", 4),
			RatePerSec:        getEnvAsFloat("LLM_RATE_PER_SEC", 10),
			Enabled:           apiKey != "" && apiKey != "your_groq_api_key_here",
		},
		Bookmarks: BookmarkConfig{
			Backend:            strings.ToLower(getEnv("BOOKMARK_BACKEND", "memory")),
			PostgresDSN:        getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			PGHost:             getEnv("PG_HOST", "localhost"),
			PGPort:             getEnvAsInt("PG_PORT", 5432),
			PGUser:             getEnv("PG_USER", "postgres"),
			PGPassword:         getEnv("PG_PASSWORD", ""),
			PGDatabase:         getEnv("PG_DATABASE", "real_estate_chatbot"),
			PGSSLMode:          getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
			RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:      getEnv("REDIS_PASSWORD", ""),
			RedisDB:            getEnvAsInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Env:   getEnv("APP_ENV", "prod"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.LLM.IntentTemperature > MaxIntentTemperature {
		log.Warn().
			Float64("requested", c.LLM.IntentTemperature).
			Float64("max", MaxIntentTemperature).
			Msg("INTENT_TEMPERATURE clamped")
		c.LLM.IntentTemperature = MaxIntentTemperature
	}
	if c.LLM.MaxConcurrency <= 0 {
		c.LLM.MaxConcurrency = 1
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = 0
	}
	switch c.Bookmarks.Backend {
	case "postgres", "redis", "memory":
	default:
		return fmt.Errorf("unknown BOOKMARK_BACKEND %q (want postgres, redis or memory)", c.Bookmarks.Backend)
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.Bookmarks.PostgresDSN != "" {
		return c.Bookmarks.PostgresDSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Bookmarks.PGHost,
		c.Bookmarks.PGPort,
		c.Bookmarks.PGUser,
		c.Bookmarks.PGPassword,
		c.Bookmarks.PGDatabase,
		c.Bookmarks.PGSSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("invalid float value, using default")
		return defaultValue
	}
	return value
}
