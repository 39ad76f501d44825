package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Mpesa    MpesaConfig
	Redis    RedisConfig
	Order    OrderConfig

	// APIKey, when set, is required on the initiate endpoint via X-API-Key.
	APIKey string
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

func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type MpesaConfig struct {
	Environment    string
	ConsumerKey    string
	ConsumerSecret string
	Passkey        string
	ShortCode      string
	CallbackURL    string

	// BaseURLOverride points the client at a non-standard gateway host,
	// e.g. a local simulator. Empty selects the host for Environment.
	BaseURLOverride string
}

// BaseURL returns the Daraja API host for the configured environment.
func (m MpesaConfig) BaseURL() string {
	if m.BaseURLOverride != "" {
		return m.BaseURLOverride
	}
	if m.Environment == "production" {
		return "https://api.safaricom.co.ke"
	}
	return "https://sandbox.safaricom.co.ke"
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type OrderConfig struct {
	// WebhookURL is the order service endpoint notified when a payment
	// resolves. Empty disables notifications.
	WebhookURL string
	// SigningSecret signs outbound notifications (HMAC-SHA256, X-Signature).
	SigningSecret string
}

func Load(logger *zap.Logger) (*Config, error) {
	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Info("loaded environment from .env file")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8030"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "mpesa_payments"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Mpesa: MpesaConfig{
			Environment:     getEnv("MPESA_ENVIRONMENT", "sandbox"),
			ConsumerKey:     getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret:  getEnv("MPESA_CONSUMER_SECRET", ""),
			Passkey:         getEnv("MPESA_PASSKEY", ""),
			ShortCode:       getEnv("MPESA_SHORT_CODE", ""),
			CallbackURL:     getEnv("MPESA_CALLBACK_URL", ""),
			BaseURLOverride: getEnv("MPESA_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Order: OrderConfig{
			WebhookURL:    getEnv("ORDER_WEBHOOK_URL", ""),
			SigningSecret: getEnv("ORDER_SIGNING_SECRET", ""),
		},
		APIKey: getEnv("API_KEY", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("mpesa_environment", cfg.Mpesa.Environment))

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mpesa.ConsumerKey == "" || c.Mpesa.ConsumerSecret == "" {
		return fmt.Errorf("MPESA_CONSUMER_KEY and MPESA_CONSUMER_SECRET are required")
	}
	if c.Mpesa.ShortCode == "" || c.Mpesa.Passkey == "" {
		return fmt.Errorf("MPESA_SHORT_CODE and MPESA_PASSKEY are required")
	}
	if c.Mpesa.CallbackURL == "" {
		return fmt.Errorf("MPESA_CALLBACK_URL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
