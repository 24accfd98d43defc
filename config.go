package main

import (
	"os"

	"github.com/joho/godotenv"
)

// Config aggregates process configuration. Values come from the environment,
// optionally seeded from a local .env file.
type Config struct {
	DatabaseURL string
	ListenAddr  string
	JWTSecret   []byte
	LogLevel    string
}

func loadConfig() Config {
	// Missing .env is fine; env vars may be set by the runtime directly.
	_ = godotenv.Load()

	return Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ListenAddr:  getenv("LISTEN_ADDR", ":8080"),
		JWTSecret:   []byte(getenv("JWT_SECRET", "your_secret_key_please_change_in_production")),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
