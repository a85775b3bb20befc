package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Host          string
	LogLevel      string
	AppURL        string
	WebhookSecret string
	Broker        BrokerConfig
	Database      DatabaseConfig
	Procore       ProcoreConfig
}

type ProcoreConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c *DatabaseConfig) ConnectionString() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" sslmode=" + c.SSLMode
}

type BrokerConfig struct {
	URL      string
	ClientID string
	Username string
	Password string
}

func Load() *Config {
	godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "3002"),
		Host:          getEnv("HOST", "0.0.0.0"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AppURL:        getEnv("APP_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		Broker: BrokerConfig{
			URL:      getEnv("BROKER_URL", "tcp://localhost:1883"),
			ClientID: getEnv("BROKER_CLIENT_ID", "sync-adapter-001"),
			Username: getEnv("BROKER_USERNAME", ""),
			Password: getEnv("BROKER_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "risksure"),
			Password: getEnv("DATABASE_PASSWORD", "risksure"),
			Name:     getEnv("DATABASE_NAME", "risksure"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Procore: ProcoreConfig{
			BaseURL:      getEnv("PROCORE_URL", "https://api.procore.com"),
			ClientID:     getEnv("PROCORE_CLIENT_ID", ""),
			ClientSecret: getEnv("PROCORE_CLIENT_SECRET", ""),
			RedirectURI:  getEnv("PROCORE_REDIRECT_URI", "http://localhost:3002/oauth/callback"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
