package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	BotToken string

	// Copperx backend API
	APIBaseURL string

	// Pusher (realtime deposit notifications). Optional: when unset the bot
	// falls back to the webhook event endpoint on the web server.
	PusherAppKey  string
	PusherCluster string

	// Database. Optional: when unset sessions are memory-resident only.
	DatabaseURL string

	// Web Server
	WebBind string

	// Bearer secret for the push-event webhook endpoint
	WebhookSecret string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		APIBaseURL:    os.Getenv("API_BASE_URL"),
		PusherAppKey:  os.Getenv("PUSHER_APP_KEY"),
		PusherCluster: os.Getenv("PUSHER_CLUSTER"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WebBind:       getEnvDefault("WEB_BIND", "0.0.0.0:3000"),
		WebhookSecret: getEnvDefault("WEBHOOK_SECRET", "dev-only-change-me"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	return cfg, nil
}

// PusherEnabled reports whether realtime notifications should use Pusher.
// Both the app key and the cluster must be configured.
func (c *Config) PusherEnabled() bool {
	return c.PusherAppKey != "" && c.PusherCluster != ""
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
