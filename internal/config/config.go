package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const sampleJWTSecret = "your_jwt_secret_minimum_32_chars_here_change_this"

type Config struct {
	// Database
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBReplicaHosts []string

	// Security
	JWTSecret string
	JWTIssuer string

	// Application
	AppEnv      string
	HTTPPort    string
	MetricsPort string
	LogLevel    string

	// Rate Limiting
	RateLimitPerUser int
	RateLimitPerIP   int
	RateLimitWindow  time.Duration

	// Integrations, each disabled when empty
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CacheTTL         time.Duration
	KafkaBrokers     []string
	KafkaTopic       string
	TelegramBotToken string

	// Product
	SearchLimit     int
	SearchMinQuery  int
	FeedLimit       int
	SignupBetCoins  int64
	InviteCodeLen   int
	ShutdownTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "betpals"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "betpals"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBReplicaHosts: getEnvList("DB_REPLICA_HOSTS"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		AppEnv:      getEnv("APP_ENV", "development"),
		HTTPPort:    getEnv("HTTP_PORT", "8080"),
		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		RateLimitPerUser: getEnvInt("RATE_LIMIT_PER_USER", 60),
		RateLimitPerIP:   getEnvInt("RATE_LIMIT_PER_IP", 300),
		RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		CacheTTL:         getEnvDuration("CACHE_TTL", 5*time.Minute),
		KafkaBrokers:     getEnvList("KAFKA_BROKERS"),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "betpals.events"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		SearchLimit:     getEnvInt("SEARCH_LIMIT", 10),
		SearchMinQuery:  getEnvInt("SEARCH_MIN_QUERY", 2),
		FeedLimit:       getEnvInt("FEED_LIMIT", 20),
		SignupBetCoins:  getEnvInt64("SIGNUP_BET_COINS", 100),
		InviteCodeLen:   getEnvInt("INVITE_CODE_LENGTH", 8),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.RateLimitPerUser <= 0 || c.RateLimitPerIP <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.SearchLimit <= 0 || c.FeedLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT and FEED_LIMIT must be positive")
	}
	if c.SignupBetCoins < 0 {
		return fmt.Errorf("SIGNUP_BET_COINS cannot be negative")
	}
	if c.InviteCodeLen < 6 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be at least 6")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func (c *Config) ValidateProductionSecurity() error {
	if !c.IsProduction() {
		return nil
	}

	if c.DBSSLMode == "disable" {
		return fmt.Errorf("DB_SSLMODE cannot be 'disable' in production")
	}
	if c.JWTSecret == sampleJWTSecret {
		return fmt.Errorf("JWT_SECRET must be changed from default in production")
	}
	if c.JWTIssuer == "" {
		return fmt.Errorf("JWT_ISSUER must be set in production")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) GetDSN() string {
	return c.dsnFor(c.DBHost)
}

// GetReplicaDSNs returns one DSN per configured read replica.
func (c *Config) GetReplicaDSNs() []string {
	dsns := make([]string, 0, len(c.DBReplicaHosts))
	for _, host := range c.DBReplicaHosts {
		dsns = append(dsns, c.dsnFor(host))
	}
	return dsns
}

func (c *Config) dsnFor(host string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
