package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	API        APIConfig
	CORS       CORSConfig
	Classifier ClassifierConfig
	Moderation ModerationConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type APIConfig struct {
	RateLimitMessagesPerSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// ClassifierConfig points at an OpenAI-compatible chat completions endpoint.
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// ModerationConfig seeds the runtime policy; administrators can change it
// afterwards through the API.
type ModerationConfig struct {
	Enabled                bool
	ToxicityThreshold      float64
	SpamThreshold          int
	AutoRestrictViolations int
	RestrictionSeconds     int
	BotDisplayName         string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	redisDB := getEnvInt("REDIS_DB", 0)
	jwtExpiry := getEnvInt("JWT_EXPIRY_HOURS", 168)
	rateLimit := getEnvInt("RATE_LIMIT_MESSAGES_PER_SECOND", 10)

	origins := strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"), ",")

	classifierTimeout, err := time.ParseDuration(getEnv("CLASSIFIER_TIMEOUT", "5s"))
	if err != nil {
		classifierTimeout = 5 * time.Second
	}

	toxicity, err := strconv.ParseFloat(getEnv("MODERATION_TOXICITY_THRESHOLD", "0.7"), 64)
	if err != nil {
		toxicity = 0.7
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "guardian"),
			Password: getEnv("DB_PASSWORD", "guardian_password"),
			DBName:   getEnv("DB_NAME", "guardian_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-this-secret-key"),
			ExpiryHours: jwtExpiry,
		},
		API: APIConfig{
			RateLimitMessagesPerSec: rateLimit,
		},
		CORS: CORSConfig{
			AllowedOrigins: origins,
		},
		Classifier: ClassifierConfig{
			BaseURL: getEnv("CLASSIFIER_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("CLASSIFIER_API_KEY", ""),
			Model:   getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
			Timeout: classifierTimeout,
		},
		Moderation: ModerationConfig{
			Enabled:                getEnvBool("MODERATION_ENABLED", true),
			ToxicityThreshold:      toxicity,
			SpamThreshold:          getEnvInt("MODERATION_SPAM_THRESHOLD", 5),
			AutoRestrictViolations: getEnvInt("MODERATION_AUTO_RESTRICT_VIOLATIONS", 3),
			RestrictionSeconds:     getEnvInt("MODERATION_RESTRICTION_SECONDS", 600),
			BotDisplayName:         getEnv("MODERATION_BOT_NAME", "GuardianBot"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "change-this-secret-key" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if cfg.Classifier.APIKey == "" && cfg.Server.Env == "production" {
		return nil, fmt.Errorf("CLASSIFIER_API_KEY must be set in production")
	}

	return cfg, nil
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}
