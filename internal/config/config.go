package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all service configuration read from the environment.
// Engine tuning constants live in Params, loaded separately from YAML.
type Config struct {
	Symbols     []string
	Interval    string
	CandleCount int
	ParamsFile  string
	LogLevel    string

	// Upstream HTTP behaviour.
	BinanceBaseURL string
	RequestTimeout int // seconds
	RequestsPerSec int
	MaxRetries     int

	// HTTP API server.
	ServerHost string
	ServerPort int

	// Watcher loop for subscribed symbols.
	WatchIntervalSec int

	// Signal cache.
	CacheFreshForSec  int
	CacheRetentionSec int
	RedisEnabled      bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	// Subscription storage and Telegram delivery.
	DatabaseEnabled bool
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	TelegramToken   string
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := Config{
		Symbols:     splitSymbols(getEnvWithDefault("SYMBOLS", "BTCUSDT")),
		Interval:    getEnvWithDefault("INTERVAL", "1h"),
		CandleCount: getEnvIntWithDefault("CANDLE_COUNT", 200),
		ParamsFile:  os.Getenv("PARAMS_FILE"),
		LogLevel:    getEnvWithDefault("LOG_LEVEL", "info"),

		BinanceBaseURL: getEnvWithDefault("BINANCE_BASE_URL", "https://api.binance.com"),
		RequestTimeout: getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		RequestsPerSec: getEnvIntWithDefault("REQUESTS_PER_SEC", 5),
		MaxRetries:     getEnvIntWithDefault("MAX_RETRIES", 3),

		ServerHost: getEnvWithDefault("SERVER_HOST", "0.0.0.0"),
		ServerPort: getEnvIntWithDefault("SERVER_PORT", 8080),

		WatchIntervalSec: getEnvIntWithDefault("WATCH_INTERVAL", 300),

		CacheFreshForSec:  getEnvIntWithDefault("CACHE_FRESH_FOR", 60),
		CacheRetentionSec: getEnvIntWithDefault("CACHE_RETENTION", 3600),
		RedisEnabled:      getEnvBoolWithDefault("REDIS_ENABLED", false),
		RedisAddr:         getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvIntWithDefault("REDIS_DB", 0),

		DatabaseEnabled: getEnvBoolWithDefault("DATABASE_ENABLED", false),
		DBHost:          getEnvWithDefault("DB_HOST", "localhost"),
		DBPort:          getEnvWithDefault("DB_PORT", "5432"),
		DBUser:          getEnvWithDefault("DB_USER", "postgres"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          getEnvWithDefault("DB_NAME", "signals"),
		DBSSLMode:       getEnvWithDefault("DB_SSLMODE", "disable"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	return &cfg, nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			symbols = append(symbols, strings.ToUpper(s))
		}
	}
	return symbols
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
