package config

import (
	"errors"
	"strings"
	"time"
)

// APIConfig describes the trading backend and the retry discipline applied to
// every call against it.
type APIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	BackoffFactor  int
}

func (ac *APIConfig) Load() error {
	ac.BaseURL = strings.TrimRight(getEnvOrDefault("API_BASE_URL", ""), "/")
	ac.RequestTimeout = time.Duration(getEnvOrDefaultInt("API_REQUEST_TIMEOUT_MS", 30000)) * time.Millisecond
	ac.MaxRetries = getEnvOrDefaultInt("API_MAX_RETRIES", 3)
	ac.RetryBaseDelay = time.Duration(getEnvOrDefaultInt("API_RETRY_BASE_DELAY_MS", 2000)) * time.Millisecond
	ac.BackoffFactor = getEnvOrDefaultInt("API_BACKOFF_FACTOR", 2)
	return ac.Validate()
}

func (ac *APIConfig) Validate() error {
	if ac.BaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	if ac.MaxRetries < 0 {
		return errors.New("API_MAX_RETRIES must be >= 0")
	}
	if ac.RetryBaseDelay <= 0 || ac.BackoffFactor < 1 {
		return errors.New("invalid retry backoff config")
	}
	return nil
}
