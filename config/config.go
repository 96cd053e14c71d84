package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	_ = godotenv.Load()
}

type HTTPConfig struct {
	Addr            string
	BackendTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig tunes the feed engines. Values mirror the mobile client
// defaults; all are overridable from the environment.
type EngineConfig struct {
	BackendBaseURL  string
	DoubleTapWindow time.Duration
	// SimulatedDuration is the clip length assumed for media handles when
	// the backend does not report one.
	SimulatedDuration time.Duration
	StatusInterval    time.Duration
}

var (
	HTTP   = loadHTTPConfig()
	Engine = loadEngineConfig()
)

func loadHTTPConfig() HTTPConfig {
	cfg := HTTPConfig{
		Addr:            ":8080",
		BackendTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("HTTP_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.BackendTimeout = d
		}
	}

	if v := os.Getenv("HTTP_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ShutdownTimeout = d
		}
	}

	return cfg
}

func loadEngineConfig() EngineConfig {
	cfg := EngineConfig{
		BackendBaseURL:    "https://api.reelfeed.app",
		DoubleTapWindow:   300 * time.Millisecond,
		SimulatedDuration: 15 * time.Second,
		StatusInterval:    time.Second,
	}

	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.BackendBaseURL = v
	}

	if v := os.Getenv("DOUBLE_TAP_WINDOW_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.DoubleTapWindow = time.Duration(ms) * time.Millisecond
		}
	}

	if v := os.Getenv("SIMULATED_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SimulatedDuration = d
		}
	}

	if v := os.Getenv("PLAYBACK_STATUS_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.StatusInterval = d
		}
	}

	return cfg
}
