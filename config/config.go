// Package config loads server-wide settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// ServerConfig controls the listening address, session lifecycle, and room
// inbox sizing for an Arcforge server. Game-specific tuning (physics rates,
// board sizes, and the like) lives with each GameLogic implementation
// instead, since those values are meaningless outside one game family.
type ServerConfig struct {
	Host       string
	Port       int
	EnableCORS bool

	ReconnectGrace     time.Duration
	HandshakeTimeout   time.Duration
	IdleTimeout        time.Duration
	RoomChannelSize    int
	SessionSweepPeriod time.Duration
	RoomSweepPeriod    time.Duration
}

// DefaultServerConfig returns the documented defaults: all interfaces on
// 8080, CORS open, 30s reconnect grace, 5s handshake timeout, 15s idle
// timeout, a 64-slot room inbox, and 10s background sweep periods.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:       "0.0.0.0",
		Port:       8080,
		EnableCORS: true,

		ReconnectGrace:     30 * time.Second,
		HandshakeTimeout:   5 * time.Second,
		IdleTimeout:        15 * time.Second,
		RoomChannelSize:    64,
		SessionSweepPeriod: 10 * time.Second,
		RoomSweepPeriod:    10 * time.Second,
	}
}

// LoadFromEnv reads HOST, PORT, ENABLE_CORS, RECONNECT_GRACE_SECONDS,
// HANDSHAKE_TIMEOUT_SECONDS and IDLE_TIMEOUT_SECONDS, falling back to
// DefaultServerConfig for anything unset or unparseable.
func LoadFromEnv() *ServerConfig {
	cfg := DefaultServerConfig()

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}

	if cors := os.Getenv("ENABLE_CORS"); cors == "false" {
		cfg.EnableCORS = false
	}

	if secs := os.Getenv("RECONNECT_GRACE_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			cfg.ReconnectGrace = time.Duration(s) * time.Second
		}
	}

	if secs := os.Getenv("HANDSHAKE_TIMEOUT_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			cfg.HandshakeTimeout = time.Duration(s) * time.Second
		}
	}

	if secs := os.Getenv("IDLE_TIMEOUT_SECONDS"); secs != "" {
		if s, err := strconv.Atoi(secs); err == nil {
			cfg.IdleTimeout = time.Duration(s) * time.Second
		}
	}

	return cfg
}
