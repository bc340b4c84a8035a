// Package config loads service configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service.
type Config struct {
	Port     int
	LogLevel string

	// StoreBackend selects the record store: "memory", "sqlite" or
	// "sheets".
	StoreBackend string

	// SQLite backend
	DBPath string

	// Sheets backend
	SheetsAccessToken      string // static bearer token issued out of band
	SheetsRequestsPerSecond float64

	AllowedOrigins []string
}

// Load reads a .env file when present, then the environment. Missing
// values fall back to development defaults.
func Load() Config {
	// Missing .env is fine; production relies on real env vars.
	_ = godotenv.Load()

	return Config{
		Port:                    envInt("PORT", 8080),
		LogLevel:                envStr("LOG_LEVEL", "info"),
		StoreBackend:            envStr("STORE_BACKEND", "sqlite"),
		DBPath:                  envStr("DB_PATH", "stockledger.db"),
		SheetsAccessToken:       envStr("SHEETS_ACCESS_TOKEN", ""),
		SheetsRequestsPerSecond: envFloat("SHEETS_RPS", 1),
		AllowedOrigins:          envList("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
