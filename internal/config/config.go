package config

import (
	"errors"
	"time"
)

type ServerEnv = string

var (
	DevEnv  ServerEnv = "dev"
	ProdEnv ServerEnv = "prod"
)

type GeneralConfig struct {
	Env      string
	LogLevel string

	// OpsHost/OpsPort expose /health and /metrics for the running session.
	OpsHost string
	OpsPort string

	// SessionMaxDuration bounds one full sell run end to end. There is no
	// finer-grained cancellation inside the retry loops; the context created
	// from this value is the only deadline.
	SessionMaxDuration time.Duration
}

func (gc *GeneralConfig) Load() error {
	gc.Env = getEnvOrDefault("ENV", "dev")
	gc.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	gc.OpsHost = getEnvOrDefault("OPS_HOST", "localhost")
	gc.OpsPort = getEnvOrDefault("OPS_PORT", "9090")
	gc.SessionMaxDuration = time.Duration(getEnvOrDefaultInt("SESSION_MAX_DURATION_SECONDS", 300)) * time.Second
	return gc.Validate()
}

func (gc *GeneralConfig) Validate() error {
	if gc.Env == "" || gc.OpsPort == "" {
		return errors.New("invalid general config")
	}
	if gc.SessionMaxDuration <= 0 {
		return errors.New("session max duration must be positive")
	}
	return nil
}
