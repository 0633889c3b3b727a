// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all MediaHub server configuration.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Logging
	LogLevel  string
	LogFormat string

	// Library roots, scanned recursively for media files.
	MediaRoots []string

	// Periodic rescan; 0 disables the ticker (manual rescans only).
	RescanInterval time.Duration

	// Database (optional — progress tracking is disabled when empty)
	DatabaseURL string

	// Auth (optional — all callers are anonymous when empty)
	JWTSecret string

	// Watch-together
	RoomSendBuffer int
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:     envOr("LISTEN_ADDR", ":8080"),
		MetricsAddr:    envOr("METRICS_ADDR", ":9090"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "json"),
		MediaRoots:     splitList(envOr("MEDIA_ROOTS", "")),
		RescanInterval: envDuration("RESCAN_INTERVAL", 0),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		JWTSecret:      envOr("JWT_SECRET", ""),
		RoomSendBuffer: envInt("ROOM_SEND_BUFFER", 256),
	}

	if len(cfg.MediaRoots) == 0 {
		return nil, fmt.Errorf("MEDIA_ROOTS is required (comma-separated list of library directories)")
	}
	if cfg.RoomSendBuffer < 1 {
		cfg.RoomSendBuffer = 1
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
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
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
