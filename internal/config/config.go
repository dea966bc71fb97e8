package config

import (
	"fmt"
	"time"

	"carecall-backend/pkg/env"
)

// ProviderConfig holds the voice-agent provider settings. All three
// identifiers are required before any call can be placed.
type ProviderConfig struct {
	APIKey        string
	AgentID       string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
}

// Config holds the care-service configuration, read from the environment
type Config struct {
	Env  string
	Port string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     int
	RedisPassword string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string

	Provider ProviderConfig
}

// Load reads configuration from the environment
func Load() *Config {
	return &Config{
		Env:  env.GetString("ENV", "development"),
		Port: env.GetString("PORT", "8080"),

		DBHost:     env.GetString("DB_HOST", "localhost"),
		DBPort:     env.GetInt("DB_PORT", 5432),
		DBUser:     env.GetString("DB_USER", "postgres"),
		DBPassword: env.GetStringFromFile("DB_PASSWORD", ""),
		DBName:     env.GetString("DB_NAME", "carecall"),
		DBSSLMode:  env.GetString("DB_SSLMODE", "disable"),

		RedisHost:     env.GetString("REDIS_HOST", "localhost"),
		RedisPort:     env.GetInt("REDIS_PORT", 6379),
		RedisPassword: env.GetStringFromFile("REDIS_PASSWORD", ""),

		MinIOEndpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey: env.GetStringFromFile("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: env.GetStringFromFile("MINIO_SECRET_KEY", ""),
		MinIOBucket:    env.GetString("MINIO_BUCKET", "avatars"),

		Provider: ProviderConfig{
			APIKey:        env.GetStringFromFile("ELEVENLABS_API_KEY", ""),
			AgentID:       env.GetString("ELEVENLABS_AGENT_ID", ""),
			PhoneNumberID: env.GetString("ELEVENLABS_PHONE_NUMBER_ID", ""),
			BaseURL:       env.GetString("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
			Timeout:       env.GetDuration("ELEVENLABS_TIMEOUT", 30*time.Second),
		},
	}
}

// ValidateProvider checks the provider settings. A missing value means the
// call-initiation flow must never start.
func (c *Config) ValidateProvider() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	if c.Provider.AgentID == "" {
		return fmt.Errorf("ELEVENLABS_AGENT_ID is required")
	}
	if c.Provider.PhoneNumberID == "" {
		return fmt.Errorf("ELEVENLABS_PHONE_NUMBER_ID is required")
	}
	return nil
}
