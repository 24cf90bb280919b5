package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	BaseURL     string
	FrontendURL string

	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	// Auth
	JWKSURL   string
	JWTIssuer string

	// Intent parsing (LLM)
	OpenAIKey  string
	AIProvider string
	AIModel    string
	AIBaseURL  string

	// Notification gateway
	NotifyChannel    string // "http" or "amqp"
	PushGatewayURL   string
	PushTokenURL     string
	PushClientID     string
	PushClientSecret string

	// Engine policy defaults (DB-stored policy overrides these)
	SnoozeDuration     time.Duration
	AckTimeout         time.Duration
	MaxSnoozes         int
	GraceWindow        time.Duration
	MaxDispatchRetries int
	DispatchWorkers    int

	EnableHSTS      bool
	ServerDebugMode bool
	WorkerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		JWKSURL:   getEnv("JWKS_URL", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		OpenAIKey:  getEnv("OPENAI_API_KEY", ""),
		AIProvider: getEnv("AI_PROVIDER", "openai"),
		AIModel:    getEnv("AI_MODEL", ""),
		AIBaseURL:  getEnv("AI_BASE_URL", ""),

		NotifyChannel:    getEnv("NOTIFY_CHANNEL", "amqp"),
		PushGatewayURL:   getEnv("PUSH_GATEWAY_URL", ""),
		PushTokenURL:     getEnv("PUSH_OAUTH_TOKEN_URL", ""),
		PushClientID:     getEnv("PUSH_OAUTH_CLIENT_ID", ""),
		PushClientSecret: getEnv("PUSH_OAUTH_CLIENT_SECRET", ""),

		SnoozeDuration:     getEnvDuration("SNOOZE_DURATION", 10*time.Minute),
		AckTimeout:         getEnvDuration("ACK_TIMEOUT", 30*time.Minute),
		MaxSnoozes:         getEnvInt("MAX_SNOOZES", 5),
		GraceWindow:        getEnvDuration("GRACE_WINDOW", 2*time.Minute),
		MaxDispatchRetries: getEnvInt("MAX_DISPATCH_RETRIES", 5),
		DispatchWorkers:    getEnvInt("DISPATCH_WORKERS", 4),

		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for lifecycle events and notification delivery")
	}

	if cfg.NotifyChannel != "amqp" && cfg.NotifyChannel != "http" {
		return nil, fmt.Errorf("NOTIFY_CHANNEL must be \"amqp\" or \"http\", got %q", cfg.NotifyChannel)
	}

	if cfg.NotifyChannel == "http" && cfg.PushGatewayURL == "" {
		return nil, fmt.Errorf("PUSH_GATEWAY_URL is required when NOTIFY_CHANNEL=http")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
