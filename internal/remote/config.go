package remote

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config validation errors
var (
	// ErrMissingBaseURL is returned when BaseURL is empty
	ErrMissingBaseURL = errors.New("BaseURL is required")
	// ErrInvalidBaseURL is returned when BaseURL is not an absolute http(s) URL
	ErrInvalidBaseURL = errors.New("BaseURL must be an absolute http or https URL")
	// ErrInvalidTimeout is returned when Timeout is not positive
	ErrInvalidTimeout = errors.New("Timeout must be positive")
	// ErrInvalidRate is returned when RatePerSecond is negative
	ErrInvalidRate = errors.New("RatePerSecond cannot be negative")
	// ErrInvalidBurst is returned when Burst is not positive while rate limiting is on
	ErrInvalidBurst = errors.New("Burst must be positive when RatePerSecond is set")
)

// Config holds the configuration for the remote feed service client
type Config struct {
	// BaseURL is the origin of the remote feed service (e.g., "https://api.example.com")
	BaseURL string

	// UserAgent is sent on every request
	UserAgent string

	// Timeout bounds one HTTP exchange
	Timeout time.Duration

	// RatePerSecond throttles outgoing requests. 0 disables throttling.
	RatePerSecond float64

	// Burst is the number of requests allowed above the steady rate
	Burst int
}

// Validate checks the configuration for invalid values
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: got %q", ErrInvalidBaseURL, c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimeout, c.Timeout)
	}
	if c.RatePerSecond < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, c.RatePerSecond)
	}
	if c.RatePerSecond > 0 && c.Burst <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBurst, c.Burst)
	}
	return nil
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		UserAgent:     "feedsync/1.0",
		Timeout:       15 * time.Second,
		RatePerSecond: 5,
		Burst:         10,
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing environment variables.
//
// Environment variables:
//   - REMOTE_BASE_URL: origin of the remote feed service (default: "http://localhost:8080")
//   - REMOTE_TIMEOUT_SECONDS: per-request timeout in seconds (default: 15)
//   - REMOTE_RATE_PER_SECOND: steady request rate, 0 to disable (default: 5)
//   - REMOTE_BURST: request burst above the rate (default: 10)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("REMOTE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}

	if v := os.Getenv("REMOTE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Timeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[REMOTE] invalid REMOTE_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default", cfg.Timeout,
				"error", err,
			)
		}
	}

	if v := os.Getenv("REMOTE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.RatePerSecond = f
		} else {
			slog.Warn("[REMOTE] invalid REMOTE_RATE_PER_SECOND value, using default",
				"value", v,
				"default", cfg.RatePerSecond,
				"error", err,
			)
		}
	}

	if v := os.Getenv("REMOTE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Burst = n
		} else {
			slog.Warn("[REMOTE] invalid REMOTE_BURST value, using default",
				"value", v,
				"default", cfg.Burst,
				"error", err,
			)
		}
	}

	return cfg
}
