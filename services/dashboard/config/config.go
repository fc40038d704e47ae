package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the dashboard service.
type Config struct {
	BackendBaseURL  string
	Port            int
	BearerToken     string
	BackendTimeout  time.Duration
	UploadMaxBytes  int64
	Location        *time.Location
	ChartAssetsHost string
	DemoMode        bool
	DemoBackendPort int
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load() // ignore missing file

	cfg := Config{
		BackendBaseURL:  "http://localhost:8080",
		Port:            8090,
		BackendTimeout:  30 * time.Second,
		UploadMaxBytes:  10 << 20,
		Location:        time.Local,
		DemoBackendPort: 8080,
	}

	if raw := os.Getenv("BACKEND_BASE_URL"); raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return cfg, fmt.Errorf("invalid BACKEND_BASE_URL: %s", raw)
		}
		cfg.BackendBaseURL = strings.TrimRight(raw, "/")
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid PORT: %s", portStr)
		}
	} else if portStr := os.Getenv("DASHBOARD_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		} else {
			return cfg, fmt.Errorf("invalid DASHBOARD_PORT: %s", portStr)
		}
	}

	if timeoutStr := os.Getenv("BACKEND_TIMEOUT"); timeoutStr != "" {
		if d, err := time.ParseDuration(timeoutStr); err == nil && d > 0 {
			cfg.BackendTimeout = d
		} else {
			return cfg, fmt.Errorf("invalid BACKEND_TIMEOUT: %s", timeoutStr)
		}
	}

	if sizeStr := os.Getenv("UPLOAD_MAX_BYTES"); sizeStr != "" {
		if size, err := strconv.ParseInt(sizeStr, 10, 64); err == nil && size > 0 {
			cfg.UploadMaxBytes = size
		} else {
			return cfg, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %s", sizeStr)
		}
	}

	if tz := os.Getenv("DASHBOARD_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid DASHBOARD_TIMEZONE: %s", tz)
		}
		cfg.Location = loc
	}

	if demoStr := os.Getenv("DEMO_MODE"); demoStr != "" {
		demo, err := strconv.ParseBool(demoStr)
		if err != nil {
			return cfg, fmt.Errorf("invalid DEMO_MODE: %s", demoStr)
		}
		cfg.DemoMode = demo
	}

	if portStr := os.Getenv("DEMO_BACKEND_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.DemoBackendPort = port
		} else {
			return cfg, fmt.Errorf("invalid DEMO_BACKEND_PORT: %s", portStr)
		}
	}

	cfg.BearerToken = os.Getenv("API_BEARER_TOKEN")
	cfg.ChartAssetsHost = os.Getenv("CHART_ASSETS_HOST")

	return cfg, nil
}

// ListenAddr returns the host:port string for the HTTP server.
func (c Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DemoListenAddr returns the address the built-in demo backend binds to.
func (c Config) DemoListenAddr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.DemoBackendPort)
}

// DemoBaseURL is the backend URL used when demo mode is on.
func (c Config) DemoBaseURL() string {
	return "http://" + c.DemoListenAddr()
}
