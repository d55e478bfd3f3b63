package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration
type Config struct {
	DatabaseURL  string
	ServerPort   string
	FrontendURL  string
	AutoMigrate  bool
	EnableHSTS   bool
	RateLimit    string
	SessionTTL   time.Duration
	SessionKey   string
	RedisURL     string
	OTELEnabled  bool
	OTELEndpoint string

	OpenAIKey  string
	AIProvider string
	AIModel    string
	AIBaseURL  string

	WorkflowWebhookURL    string
	WorkflowWebhookSecret string
	AIDescriptionAPIKey   string

	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAPIVersion    string

	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
}

// fileConfig mirrors the keys accepted in the optional TOML file.
// Every field is a default that the matching environment variable overrides.
type fileConfig struct {
	Server struct {
		Port        string `toml:"port"`
		FrontendURL string `toml:"frontend_url"`
		AutoMigrate *bool  `toml:"auto_migrate"`
		EnableHSTS  *bool  `toml:"enable_hsts"`
		RateLimit   string `toml:"rate_limit"`
		Debug       *bool  `toml:"debug"`
	} `toml:"server"`
	Database struct {
		URL string `toml:"url"`
	} `toml:"database"`
	Session struct {
		StateTTL string `toml:"state_ttl"`
	} `toml:"session"`
	Redis struct {
		URL string `toml:"url"`
	} `toml:"redis"`
	AI struct {
		Provider string `toml:"provider"`
		Model    string `toml:"model"`
		BaseURL  string `toml:"base_url"`
	} `toml:"ai"`
	Workflow struct {
		WebhookURL string `toml:"webhook_url"`
	} `toml:"workflow"`
	WhatsApp struct {
		PhoneNumberID string `toml:"phone_number_id"`
		APIVersion    string `toml:"api_version"`
	} `toml:"whatsapp"`
	RabbitMQ struct {
		URL      string `toml:"url"`
		Prefetch int    `toml:"prefetch"`
	} `toml:"rabbitmq"`
	Telemetry struct {
		Enabled  *bool  `toml:"enabled"`
		Endpoint string `toml:"endpoint"`
	} `toml:"telemetry"`
}

// Load loads configuration from the optional TOML file named by
// TODO_CONFIG_FILE and then from environment variables.
func Load() (*Config, error) {
	cfg, err := LoadWithoutDatabase()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

// LoadWithoutDatabase is Load without the DATABASE_URL requirement, for
// tools that only talk to the AI or workflow endpoints.
func LoadWithoutDatabase() (*Config, error) {
	fc := &fileConfig{}
	if path := os.Getenv("TODO_CONFIG_FILE"); path != "" {
		loaded, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		fc = loaded
	}

	sessionTTL, err := time.ParseDuration(orDefault(fc.Session.StateTTL, "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid session.state_ttl: %w", err)
	}

	cfg := &Config{
		DatabaseURL:  getEnv("DATABASE_URL", fc.Database.URL),
		ServerPort:   getEnv("SERVER_PORT", orDefault(fc.Server.Port, "8080")),
		FrontendURL:  getEnv("FRONTEND_URL", orDefault(fc.Server.FrontendURL, "http://localhost:3000")),
		AutoMigrate:  getEnvBool("AUTO_MIGRATE", boolOr(fc.Server.AutoMigrate, true)),
		EnableHSTS:   getEnvBool("ENABLE_HSTS", boolOr(fc.Server.EnableHSTS, false)),
		RateLimit:    getEnv("RATE_LIMIT", orDefault(fc.Server.RateLimit, "60-M")),
		SessionTTL:   getEnvDuration("SESSION_STATE_TTL", sessionTTL),
		SessionKey:   getEnv("SESSION_SECRET", ""),
		RedisURL:     getEnv("REDIS_URL", orDefault(fc.Redis.URL, "redis://localhost:6379/0")),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", boolOr(fc.Telemetry.Enabled, false)),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", fc.Telemetry.Endpoint),

		OpenAIKey:  getEnv("OPENAI_API_KEY", ""),
		AIProvider: getEnv("AI_PROVIDER", orDefault(fc.AI.Provider, "openai")),
		AIModel:    getEnv("AI_MODEL", fc.AI.Model),
		AIBaseURL:  getEnv("AI_BASE_URL", fc.AI.BaseURL),

		WorkflowWebhookURL:    getEnv("WORKFLOW_WEBHOOK_URL", fc.Workflow.WebhookURL),
		WorkflowWebhookSecret: getEnv("WORKFLOW_WEBHOOK_SECRET", ""),
		AIDescriptionAPIKey:   getEnv("AI_DESCRIPTION_API_KEY", ""),

		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", "your_verify_token"),
		WhatsAppAccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", fc.WhatsApp.PhoneNumberID),
		WhatsAppAPIVersion:    getEnv("WHATSAPP_API_VERSION", orDefault(fc.WhatsApp.APIVersion, "v17.0")),

		RabbitMQURL:      getEnv("RABBITMQ_URL", fc.RabbitMQ.URL),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", intOr(fc.RabbitMQ.Prefetch, 1)),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", boolOr(fc.Server.Debug, false)),
	}

	return cfg, nil
}

// AllowedOrigins splits FrontendURL into trimmed, non-empty origins
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// QueueEnabled reports whether background jobs go through RabbitMQ
func (c *Config) QueueEnabled() bool {
	return c.RabbitMQURL != ""
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	fc := &fileConfig{}
	if err := toml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
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

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func boolOr(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}

func intOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
